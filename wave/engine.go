// Package wave synthesizes time-synchronized pulse trains for multiple
// output channels and drives their playback on a hardware pulse-scheduling
// engine (the pigpio daemon in production, a fake in tests).
//
// The synthesis pipeline is pure computation: channel requests are reduced
// to a minimal repeating bitmask pattern, the pattern is split into
// transport-sized slices, and the required repeat count is encoded as a
// nested-loop chain program. Only the upload and the run/poll phases touch
// hardware.
package wave

import (
	"fmt"
)

// WaveID is an opaque handle to an uploaded waveform, as returned by the
// pulse engine.
type WaveID int32

// Pulse is one half-cycle of the composite waveform. SetMask and ClearMask
// select which pins go high and low at the start of the half-cycle; Delay is
// the half-cycle length in microseconds.
type Pulse struct {
	SetMask   uint32
	ClearMask uint32
	Delay     uint32
}

// Engine is the hardware pulse-scheduling engine. Implementations must keep
// uploaded-but-uncreated pulses in an accumulation area: AddPulses may be
// called several times before CreateWave packages the accumulated pulses
// into one waveform.
type Engine interface {
	// AddPulses appends pulses to the engine's accumulation area.
	AddPulses(pulses []Pulse) error

	// CreateWave packages the accumulated pulses into a waveform and
	// returns its handle.
	CreateWave() (WaveID, error)

	// DeleteWave releases an uploaded waveform.
	DeleteWave(id WaveID) error

	// SubmitChain starts playback of an encoded chain program.
	SubmitChain(program []byte) error

	// Busy reports whether the engine is still transmitting.
	Busy() (bool, error)

	// ClearWaves deletes every waveform known to the engine.
	ClearWaves() error
}

// PinDriver configures and drives the output pins referenced by a waveform.
type PinDriver interface {
	// SetOutput switches a pin to output mode.
	SetOutput(pin uint8) error

	// Write sets a pin's output level.
	Write(pin uint8, level bool) error
}

// Default hardware ceilings for the pigpio daemon: a wave-add message
// carries at most 64 KiB of 12-byte pulse entries, and the engine holds at
// most 12000 resident pulses (PI_WAVE_MAX_PULSES).
const (
	DefaultPulsesPerMessage = 65536 / 12 // 5461
	DefaultResidentPulses   = 12000
)

// Limits holds the pulse-capacity ceilings of the target engine. They are
// configuration, not universal constants: deployments must match them to
// the real hardware's limits or generated programs will be rejected.
type Limits struct {
	// PulsesPerMessage is the maximum number of pulses one upload call
	// may carry.
	PulsesPerMessage int

	// ResidentPulses is the engine's total buffer capacity for uploaded
	// pulses.
	ResidentPulses int
}

// DefaultLimits returns the pigpio daemon's ceilings.
func DefaultLimits() Limits {
	return Limits{
		PulsesPerMessage: DefaultPulsesPerMessage,
		ResidentPulses:   DefaultResidentPulses,
	}
}

func (l Limits) validate() error {
	if l.PulsesPerMessage < 1 {
		return fmt.Errorf("%w: pulses per message %d", ErrInvalidInput, l.PulsesPerMessage)
	}
	if l.ResidentPulses < l.PulsesPerMessage {
		return fmt.Errorf("%w: resident pulse limit %d below message limit %d",
			ErrInvalidInput, l.ResidentPulses, l.PulsesPerMessage)
	}
	return nil
}
