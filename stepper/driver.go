// Package stepper controls stepper motors through the wave synthesis
// engine: motor geometry converts angles and speeds into pulse counts, and
// a controller turns those into synchronized step pulse trains.
package stepper

import (
	"fmt"
	"sort"
	"time"
)

// DriverConfig describes the wiring and mechanics of one motor driver.
type DriverConfig struct {
	StepPin       uint8
	DirPin        uint8
	EnablePin     uint8
	MicrostepPins []uint8

	// Microsteps per full step. Pass the hard-wired value if the
	// microstep pins are not connected.
	Microsteps int

	// GearRatio is motor turns per output turn.
	GearRatio float64

	// Linear marks a lead/ball screw output; Pitch is then its travel in
	// meters per output turn.
	Linear bool
	Pitch  float64
}

// Driver is one configured stepper driver. The zero value is not usable;
// build drivers with a model constructor such as NewTMC2209.
type Driver struct {
	cfg DriverConfig

	fullStepsPerTurn int
	microstepLevels  []bool

	counterclockwise bool
}

// TMC2209 microstep settings: pin levels for (MS2, MS1).
var tmc2209Microsteps = map[int][]bool{
	8:  {false, false},
	16: {true, true},
	32: {false, true},
	64: {true, false},
}

const tmc2209FullSteps = 200

// NewTMC2209 builds a driver for a TMC2209 v1.2 control board.
func NewTMC2209(cfg DriverConfig) (*Driver, error) {
	if len(cfg.MicrostepPins) > 2 {
		return nil, fmt.Errorf("stepper: TMC2209 has two microstep pins, got %d", len(cfg.MicrostepPins))
	}
	levels, ok := tmc2209Microsteps[cfg.Microsteps]
	if !ok {
		return nil, fmt.Errorf("stepper: invalid TMC2209 microsteps %d, valid: %v",
			cfg.Microsteps, microstepOptions(tmc2209Microsteps))
	}
	if cfg.GearRatio == 0 {
		cfg.GearRatio = 1
	}
	return &Driver{
		cfg:              cfg,
		fullStepsPerTurn: tmc2209FullSteps,
		microstepLevels:  levels,
		counterclockwise: true,
	}, nil
}

func microstepOptions(table map[int][]bool) []int {
	opts := make([]int, 0, len(table))
	for k := range table {
		opts = append(opts, k)
	}
	sort.Ints(opts)
	return opts
}

// StepPin returns the step pulse pin.
func (d *Driver) StepPin() uint8 { return d.cfg.StepPin }

// Pins returns every pin the driver uses.
func (d *Driver) Pins() []uint8 {
	pins := []uint8{d.cfg.StepPin, d.cfg.DirPin, d.cfg.EnablePin}
	return append(pins, d.cfg.MicrostepPins...)
}

// Counterclockwise reports the configured rotation direction.
func (d *Driver) Counterclockwise() bool { return d.counterclockwise }

// SetCounterclockwise selects counterclockwise rotation for the next move.
func (d *Driver) SetCounterclockwise() { d.counterclockwise = true }

// SetClockwise selects clockwise rotation for the next move.
func (d *Driver) SetClockwise() { d.counterclockwise = false }

// StepsPerDegree returns how many microsteps move the output one degree.
func (d *Driver) StepsPerDegree() float64 {
	return d.cfg.GearRatio * float64(d.fullStepsPerTurn) * float64(d.cfg.Microsteps) / 360
}

// AngleToSteps converts output degrees to the closest step count.
func (d *Driver) AngleToSteps(angle float64) int {
	steps := d.StepsPerDegree() * angle
	if steps < 0 {
		return int(steps - 0.5)
	}
	return int(steps + 0.5)
}

// AngularSpeedToStepPeriod converts an output speed in degrees/second to
// the full pulse period at that speed.
func (d *Driver) AngularSpeedToStepPeriod(speed float64) (time.Duration, error) {
	stepsPerSecond := d.StepsPerDegree() * speed
	if stepsPerSecond <= 0 {
		return 0, fmt.Errorf("stepper: non-positive speed %v deg/s", speed)
	}
	return time.Duration(float64(time.Second) / stepsPerSecond), nil
}

// DistanceToAngle converts linear travel in meters to output degrees.
func (d *Driver) DistanceToAngle(distance float64) (float64, error) {
	if !d.cfg.Linear {
		return 0, fmt.Errorf("stepper: driver is not linear")
	}
	return 360 * distance / d.cfg.Pitch, nil
}
