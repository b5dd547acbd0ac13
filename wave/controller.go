package wave

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

type state uint8

const (
	stateIdle state = iota
	statePrepared
	stateRunning
)

// Controller owns one pulse engine and walks a channel set through the
// Idle -> Prepared -> Running -> Idle lifecycle: Prepare computes the
// shared waveform and uploads it, Run plays it back and blocks until the
// engine goes quiet, and every exit path releases the engine resources a
// successful Prepare allocated.
//
// Prepare, Run, and Close are mutually exclusive phases of one instance;
// only Stop may be called concurrently.
type Controller struct {
	eng  Engine
	pins PinDriver
	lim  Limits

	// stopped is the cancellation flag read by the Run poll loop. It is
	// the only cross-goroutine state, so Stop needs no lock.
	stopped atomic.Bool

	mu       sync.Mutex
	state    state
	channels []Channel
	pattern  Pattern
	handles  []WaveID
	program  ChainProgram
}

// NewController builds a controller around an engine. pins may be nil when
// the caller configures the output pins itself.
func NewController(eng Engine, pins PinDriver, lim Limits) (*Controller, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidInput)
	}
	if err := lim.validate(); err != nil {
		return nil, err
	}
	return &Controller{eng: eng, pins: pins, lim: lim}, nil
}

// Pattern returns the reduced pattern of the prepared channel set.
func (c *Controller) Pattern() Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pattern
}

// Prepare reduces the channel set to its minimal pattern, uploads the
// pulse buffer, and builds the chain program. Calling Prepare again with a
// new channel set releases the previous handles first.
func (c *Controller) Prepare(channels []Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateRunning {
		return fmt.Errorf("wave: controller is running")
	}
	c.releaseLocked()

	pattern, pulses, err := Reduce(channels)
	if err != nil {
		return err
	}

	handles, err := UploadSlices(c.eng, pulses, c.lim)
	if err != nil {
		return err
	}

	program, err := BuildChain(handles, pattern.Repeats)
	if err != nil {
		rollback(c.eng, handles)
		return err
	}

	c.channels = append([]Channel(nil), channels...)
	c.pattern = pattern
	c.handles = handles
	c.program = program
	c.stopped.Store(false)
	c.state = statePrepared
	return nil
}

// Run plays the prepared program and blocks until the engine finishes, the
// context is canceled, or Stop is called. The engine is polled at the
// waveform's own half-cycle interval. Stopping early is reported as
// RunStopped, not as an error. All handles are released on return, on
// every path.
func (c *Controller) Run(ctx context.Context) (RunResult, error) {
	c.mu.Lock()
	if c.state != statePrepared {
		c.mu.Unlock()
		return RunStopped, fmt.Errorf("wave: nothing prepared")
	}
	c.state = stateRunning
	program := c.program.Encode()
	interval := c.pattern.Unit
	if interval < time.Microsecond {
		interval = time.Microsecond
	}
	channels := c.channels
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.releaseLocked()
		c.mu.Unlock()
	}()

	if c.pins != nil {
		for _, ch := range channels {
			if err := c.pins.SetOutput(ch.Pin); err != nil {
				return RunStopped, fmt.Errorf("%w: set pin %d to output: %w", ErrHardware, ch.Pin, err)
			}
		}
	}

	if err := c.eng.SubmitChain(program); err != nil {
		return RunStopped, fmt.Errorf("%w: submit chain: %w", ErrHardware, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		busy, err := c.eng.Busy()
		if err != nil {
			return RunStopped, fmt.Errorf("%w: poll busy: %w", ErrHardware, err)
		}
		if !busy {
			return RunCompleted, nil
		}
		if c.stopped.Load() {
			return RunStopped, nil
		}
		select {
		case <-ctx.Done():
			return RunStopped, nil
		case <-ticker.C:
		}
	}
}

// Stop requests that an in-flight Run return early. It may be called from
// any goroutine. The engine's current transmission is not forcibly halted;
// callers that need exact cycle counts must wait for natural quiescence.
func (c *Controller) Stop() {
	c.stopped.Store(true)
}

// Close releases any handles still held and clears the channel pin
// outputs. Safe to call after a run, after a prepare that was never run,
// or repeatedly.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateRunning {
		return fmt.Errorf("wave: controller is running")
	}
	c.releaseLocked()
	return nil
}

// releaseLocked deletes held handles and drives the channel pins low.
// Failures are logged and dropped so teardown never masks a primary error.
func (c *Controller) releaseLocked() {
	for _, id := range c.handles {
		if err := c.eng.DeleteWave(id); err != nil {
			log.Printf("wave: delete handle %d: %v", id, err)
		}
	}
	if c.pins != nil {
		for _, ch := range c.channels {
			if err := c.pins.Write(ch.Pin, false); err != nil {
				log.Printf("wave: clear pin %d: %v", ch.Pin, err)
			}
		}
	}
	c.handles = nil
	c.channels = nil
	c.program = ChainProgram{}
	c.state = stateIdle
}
