package stepper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/obulka/electricipy/wave"
)

// Controller moves a set of stepper motors over one shared pulse engine.
// All motors in one move share the scheduling window: each motor's step
// count over that window fixes its speed, and the wave engine guarantees
// the counts land exactly.
type Controller struct {
	drivers []*Driver
	pins    wave.PinDriver
	waves   *wave.Controller
}

// NewController builds a controller for a set of drivers. eng and pins are
// usually the same *pigpio.Client.
func NewController(eng wave.Engine, pins wave.PinDriver, drivers ...*Driver) (*Controller, error) {
	if len(drivers) == 0 {
		return nil, fmt.Errorf("stepper: no drivers")
	}
	if pins == nil {
		return nil, fmt.Errorf("stepper: nil pin driver")
	}
	waves, err := wave.NewController(eng, pins, wave.DefaultLimits())
	if err != nil {
		return nil, err
	}
	// The controller assumes exclusive ownership of the engine; start
	// from a clean waveform table.
	if err := eng.ClearWaves(); err != nil {
		return nil, fmt.Errorf("stepper: clear waveforms: %w", err)
	}
	return &Controller{drivers: drivers, pins: pins, waves: waves}, nil
}

// Driver returns the i-th driver, in constructor order.
func (c *Controller) Driver(i int) *Driver { return c.drivers[i] }

// PrepareMoveByAngles loads the waveform that moves each motor by its
// angle (signed degrees; negative spins clockwise) over the window, and
// writes the direction, enable, and microstep pins for the move.
func (c *Controller) PrepareMoveByAngles(angles []float64, window time.Duration) error {
	if len(angles) != len(c.drivers) {
		return fmt.Errorf("stepper: %d angles for %d drivers", len(angles), len(c.drivers))
	}

	channels := make([]wave.Channel, len(c.drivers))
	for i, d := range c.drivers {
		angle := angles[i]
		if angle < 0 {
			d.SetClockwise()
			angle = -angle
		} else {
			d.SetCounterclockwise()
		}

		ch, err := wave.NewChannel(d.cfg.StepPin, d.AngleToSteps(angle), window)
		if err != nil {
			return err
		}
		channels[i] = ch
	}

	if err := c.setupPins(); err != nil {
		return err
	}
	return c.waves.Prepare(channels)
}

// PrepareMoveAtSpeeds loads the waveform that runs each motor at its speed
// (degrees/second) for the window.
func (c *Controller) PrepareMoveAtSpeeds(speeds []float64, window time.Duration) error {
	angles := make([]float64, len(speeds))
	for i, speed := range speeds {
		angles[i] = speed * window.Seconds()
	}
	return c.PrepareMoveByAngles(angles, window)
}

// PrepareMoveByDistances loads the waveform that moves each motor by a
// distance: meters for linear drivers, degrees otherwise.
func (c *Controller) PrepareMoveByDistances(distances []float64, window time.Duration) error {
	angles := make([]float64, len(distances))
	for i, d := range c.drivers {
		if d.cfg.Linear {
			angle, err := d.DistanceToAngle(distances[i])
			if err != nil {
				return err
			}
			angles[i] = angle
		} else {
			angles[i] = distances[i]
		}
	}
	return c.PrepareMoveByAngles(angles, window)
}

// Run plays the prepared move and blocks until it finishes or is stopped.
func (c *Controller) Run(ctx context.Context) (wave.RunResult, error) {
	return c.waves.Run(ctx)
}

// MoveByAnglesInTime prepares and runs an angle move.
func (c *Controller) MoveByAnglesInTime(ctx context.Context, angles []float64, window time.Duration) (wave.RunResult, error) {
	if err := c.PrepareMoveByAngles(angles, window); err != nil {
		return wave.RunStopped, err
	}
	return c.Run(ctx)
}

// MoveAtSpeedsForTime prepares and runs a speed move.
func (c *Controller) MoveAtSpeedsForTime(ctx context.Context, speeds []float64, window time.Duration) (wave.RunResult, error) {
	if err := c.PrepareMoveAtSpeeds(speeds, window); err != nil {
		return wave.RunStopped, err
	}
	return c.Run(ctx)
}

// MoveByDistancesInTime prepares and runs a distance move.
func (c *Controller) MoveByDistancesInTime(ctx context.Context, distances []float64, window time.Duration) (wave.RunResult, error) {
	if err := c.PrepareMoveByDistances(distances, window); err != nil {
		return wave.RunStopped, err
	}
	return c.Run(ctx)
}

// Stop requests that an in-flight move return early. Safe from any
// goroutine.
func (c *Controller) Stop() {
	c.waves.Stop()
}

// Close releases the loaded waveform and parks every motor: direction
// pins low, enable pins high (drivers disabled, enable is active low),
// microstep pins low. Teardown failures are logged, not returned over a
// primary error.
func (c *Controller) Close() error {
	err := c.waves.Close()
	for _, d := range c.drivers {
		c.writePin(d.cfg.DirPin, false)
		c.writePin(d.cfg.EnablePin, true)
		for _, pin := range d.cfg.MicrostepPins {
			c.writePin(pin, false)
		}
	}
	return err
}

// setupPins configures every driver pin as an output and writes the
// per-move levels: direction from the rotation sense, enable low, and the
// model's microstep levels.
func (c *Controller) setupPins() error {
	for _, d := range c.drivers {
		for _, pin := range d.Pins() {
			if err := c.pins.SetOutput(pin); err != nil {
				return fmt.Errorf("stepper: set pin %d to output: %w", pin, err)
			}
		}
		if err := c.pins.Write(d.cfg.DirPin, d.counterclockwise); err != nil {
			return fmt.Errorf("stepper: write direction pin %d: %w", d.cfg.DirPin, err)
		}
		if err := c.pins.Write(d.cfg.EnablePin, false); err != nil {
			return fmt.Errorf("stepper: write enable pin %d: %w", d.cfg.EnablePin, err)
		}
		for i, pin := range d.cfg.MicrostepPins {
			if err := c.pins.Write(pin, d.microstepLevels[i]); err != nil {
				return fmt.Errorf("stepper: write microstep pin %d: %w", pin, err)
			}
		}
	}
	return nil
}

func (c *Controller) writePin(pin uint8, level bool) {
	if err := c.pins.Write(pin, level); err != nil {
		log.Printf("stepper: clear pin %d: %v", pin, err)
	}
}
