package wave

import (
	"fmt"
)

// Chain bytecode markers, per the engine's wave-chain instruction set: a
// 255 prefix introduces a control word, anything else is a wave handle.
const (
	chainMarker    = 0xFF
	chainLoopStart = 0x00
	chainLoopEnd   = 0x01
)

// Loop-field ceilings. A loop-end instruction carries an 8-bit count and an
// 8-bit multiplier, so one flat loop repeats at most 255 + 256*255 times;
// that product is also the most a single nested inner loop can contribute
// per outer iteration.
const (
	// FullLoopRepeats is the maximum repeat count expressible by one
	// flat loop: count + 256*multiplier with both fields at 255.
	FullLoopRepeats = 256*255 + 255

	// maxFullLoops bounds the outer field of the wrapper around full
	// nested loops.
	maxFullLoops = 255 * 256
)

// Op is one instruction of a chain program.
type Op interface {
	// Plays returns how many times the op plays its handle sequence.
	Plays() int

	append(dst []byte) []byte
}

// Repeat plays a handle sequence Count times in one flat loop.
// Count must not exceed FullLoopRepeats.
type Repeat struct {
	Handles []WaveID
	Count   int
}

// Plays implements Op.
func (r Repeat) Plays() int { return r.Count }

func (r Repeat) append(dst []byte) []byte {
	dst = append(dst, chainMarker, chainLoopStart)
	dst = appendHandles(dst, r.Handles)
	dst = append(dst, chainMarker, chainLoopEnd, byte(r.Count%256), byte(r.Count/256))
	return dst
}

// RepeatNested plays a handle sequence Outer*Inner times using a loop
// within a loop. Inner must not exceed FullLoopRepeats and Outer must not
// exceed 255*256.
type RepeatNested struct {
	Handles []WaveID
	Outer   int
	Inner   int
}

// Plays implements Op.
func (r RepeatNested) Plays() int { return r.Outer * r.Inner }

func (r RepeatNested) append(dst []byte) []byte {
	dst = append(dst, chainMarker, chainLoopStart)
	dst = append(dst, chainMarker, chainLoopStart)
	dst = appendHandles(dst, r.Handles)
	dst = append(dst, chainMarker, chainLoopEnd, byte(r.Inner%256), byte(r.Inner/256))
	dst = append(dst, chainMarker, chainLoopEnd, byte(r.Outer%256), byte(r.Outer/256))
	return dst
}

func appendHandles(dst []byte, handles []WaveID) []byte {
	for _, h := range handles {
		dst = append(dst, byte(h))
	}
	return dst
}

// ChainProgram is an ordered sequence of loop instructions over one handle
// sequence. The total number of plays across the program equals the repeat
// count it was built for, exactly.
type ChainProgram struct {
	Ops []Op
}

// BuildChain encodes repeats plays of a handle sequence into a chain
// program. Repeat counts beyond one flat loop are split into full nested
// loops plus a flat remainder loop of (remainder%256 + 256*(remainder/256))
// repetitions, matching the engine's 8-bit count fields.
func BuildChain(handles []WaveID, repeats int) (ChainProgram, error) {
	if len(handles) == 0 {
		return ChainProgram{}, fmt.Errorf("%w: no wave handles", ErrInvalidInput)
	}
	for _, h := range handles {
		if h < 0 || h >= chainMarker {
			return ChainProgram{}, fmt.Errorf("%w: wave handle %d not encodable", ErrInvalidInput, h)
		}
	}
	if repeats < 1 {
		return ChainProgram{}, fmt.Errorf("%w: repeat count %d", ErrInvalidInput, repeats)
	}

	numFullLoops := repeats / FullLoopRepeats
	if numFullLoops > maxFullLoops {
		return ChainProgram{}, fmt.Errorf("%w: %d repeats need %d full loops, engine limit is %d",
			ErrCapacityExceeded, repeats, numFullLoops, maxFullLoops)
	}
	remainder := repeats % FullLoopRepeats

	var prog ChainProgram
	if numFullLoops > 0 {
		prog.Ops = append(prog.Ops, RepeatNested{
			Handles: handles,
			Outer:   numFullLoops,
			Inner:   FullLoopRepeats,
		})
	}
	if remainder > 0 {
		prog.Ops = append(prog.Ops, Repeat{
			Handles: handles,
			Count:   remainder,
		})
	}

	return prog, nil
}

// TotalPlays returns how many times the program plays its handle sequence.
func (p ChainProgram) TotalPlays() int {
	total := 0
	for _, op := range p.Ops {
		total += op.Plays()
	}
	return total
}

// Encode emits the program as engine chain bytecode.
func (p ChainProgram) Encode() []byte {
	var out []byte
	for _, op := range p.Ops {
		out = op.append(out)
	}
	return out
}
