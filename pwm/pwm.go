// Package pwm generates software PWM on multiple GPIO pins at once using
// the pulse engine's waveform playback: every pin's pulse start and length
// live in one repeating waveform, and updates swap in a new waveform
// synchronized to the old one's cycle so the outputs never glitch.
package pwm

import (
	"fmt"
	"time"

	"github.com/obulka/electricipy/pigpio"
	"github.com/obulka/electricipy/wave"
)

// Engine is the subset of the pigpio client the generator drives.
type Engine interface {
	AddPulses(pulses []wave.Pulse) error
	CreateWave() (wave.WaveID, error)
	DeleteWave(id wave.WaveID) error
	WaveSendRepeat(id wave.WaveID) error
	WaveSendUsingMode(id wave.WaveID, mode pigpio.TxMode) error
	WaveTxAt() (wave.WaveID, error)
	WaveTxStop() error
}

// pinState holds a pin's pulse placement as fractions of the period.
type pinState struct {
	start  float64
	length float64
}

const noWave = wave.WaveID(-1)

// swapTimeout bounds the wait for a synchronized wave swap to take effect.
const swapTimeout = time.Second

// Generator runs PWM on a set of pins. Changes to frequency, duty cycle,
// or pulse placement take effect when Update is called.
type Generator struct {
	eng  Engine
	pins wave.PinDriver

	period float64 // microseconds
	states map[uint8]*pinState

	current wave.WaveID
}

// New builds a generator for pins at frequency hertz. eng and pins are
// usually the same *pigpio.Client.
func New(eng Engine, pins wave.PinDriver, pinNums []uint8, frequency float64) (*Generator, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("pwm: non-positive frequency %v", frequency)
	}
	states := make(map[uint8]*pinState, len(pinNums))
	for _, pin := range pinNums {
		if pins != nil {
			if err := pins.SetOutput(pin); err != nil {
				return nil, fmt.Errorf("pwm: set pin %d to output: %w", pin, err)
			}
		}
		states[pin] = &pinState{}
	}
	return &Generator{
		eng:     eng,
		pins:    pins,
		period:  1e6 / frequency,
		states:  states,
		current: noWave,
	}, nil
}

// Frequency returns the PWM frequency in hertz.
func (g *Generator) Frequency() float64 { return 1e6 / g.period }

// Period returns the PWM period in microseconds.
func (g *Generator) Period() float64 { return g.period }

// SetFrequency changes the PWM frequency in hertz.
func (g *Generator) SetFrequency(frequency float64) error {
	if frequency <= 0 {
		return fmt.Errorf("pwm: non-positive frequency %v", frequency)
	}
	g.period = 1e6 / frequency
	return nil
}

// SetPulseLength keeps pin high for length microseconds per cycle.
func (g *Generator) SetPulseLength(pin uint8, length float64) error {
	if length > g.period || length < 0 {
		return fmt.Errorf("pwm: pulse length %vus outside period %vus", length, g.period)
	}
	g.state(pin).length = length / g.period
	return nil
}

// SetDutyCycle keeps pin high for fraction of each cycle.
func (g *Generator) SetDutyCycle(pin uint8, fraction float64) error {
	return g.SetPulseLength(pin, g.period*fraction)
}

// SetPulseStart raises pin at start microseconds into each cycle.
func (g *Generator) SetPulseStart(pin uint8, start float64) error {
	if start > g.period || start < 0 {
		return fmt.Errorf("pwm: pulse start %vus outside period %vus", start, g.period)
	}
	g.state(pin).start = start / g.period
	return nil
}

func (g *Generator) state(pin uint8) *pinState {
	s, ok := g.states[pin]
	if !ok {
		s = &pinState{}
		g.states[pin] = s
	}
	return s
}

// Update rebuilds the waveform from the current settings and swaps it in.
// The first update starts a plain repeating send; later updates use a
// repeat-sync send, wait for the new wave to take over, then delete the
// old one.
func (g *Generator) Update() error {
	if len(g.states) == 0 {
		return nil
	}

	for pin, s := range g.states {
		if err := g.eng.AddPulses(pinPulses(pin, s.start, s.length, g.period)); err != nil {
			return fmt.Errorf("pwm: add pulses for pin %d: %w", pin, err)
		}
	}

	next, err := g.eng.CreateWave()
	if err != nil {
		return fmt.Errorf("pwm: create wave: %w", err)
	}

	if g.current == noWave {
		if err := g.eng.WaveSendRepeat(next); err != nil {
			return fmt.Errorf("pwm: send wave: %w", err)
		}
		g.current = next
		return nil
	}

	if err := g.eng.WaveSendUsingMode(next, pigpio.TxModeRepeatSync); err != nil {
		return fmt.Errorf("pwm: send wave: %w", err)
	}

	// The old wave keeps playing until its cycle ends; deleting it any
	// earlier would cut the output mid-cycle.
	deadline := time.Now().Add(swapTimeout)
	for {
		at, err := g.eng.WaveTxAt()
		if err != nil {
			return fmt.Errorf("pwm: poll transmitted wave: %w", err)
		}
		if at == next {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pwm: wave %d never started transmitting", next)
		}
		time.Sleep(100 * time.Microsecond)
	}

	old := g.current
	g.current = next
	if err := g.eng.DeleteWave(old); err != nil {
		return fmt.Errorf("pwm: delete wave %d: %w", old, err)
	}
	return nil
}

// Stop halts transmission and releases the current waveform.
func (g *Generator) Stop() error {
	if err := g.eng.WaveTxStop(); err != nil {
		return fmt.Errorf("pwm: stop transmission: %w", err)
	}
	if g.current != noWave {
		if err := g.eng.DeleteWave(g.current); err != nil {
			return fmt.Errorf("pwm: delete wave %d: %w", g.current, err)
		}
		g.current = noWave
	}
	return nil
}

// pinPulses builds one period of output for a pin. Flat-high and flat-low
// cycles are a single pulse; otherwise the period splits at the rise and
// fall points, with the wrapped case (pulse spanning the period boundary)
// starting high.
func pinPulses(pin uint8, start, length, period float64) []wave.Pulse {
	mask := uint32(1) << pin
	onTime := uint32(start*period + 0.5)
	high := uint32(length*period + 0.5)
	total := uint32(period + 0.5)

	switch {
	case high == 0:
		return []wave.Pulse{{ClearMask: mask, Delay: total}}
	case high >= total:
		return []wave.Pulse{{SetMask: mask, Delay: total}}
	}

	offTime := (onTime + high) % total
	if onTime < offTime {
		return []wave.Pulse{
			{ClearMask: mask, Delay: onTime},
			{SetMask: mask, Delay: offTime - onTime},
			{ClearMask: mask, Delay: total - offTime},
		}
	}
	return []wave.Pulse{
		{SetMask: mask, Delay: offTime},
		{ClearMask: mask, Delay: onTime - offTime},
		{SetMask: mask, Delay: total - onTime},
	}
}
