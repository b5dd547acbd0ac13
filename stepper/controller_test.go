package stepper

import (
	"context"
	"testing"
	"time"

	"github.com/obulka/electricipy/wave"
)

// fakeEngine counts pulses and plays back instantly.
type fakeEngine struct {
	uploads [][]wave.Pulse
	nextID  wave.WaveID
	deleted []wave.WaveID
	chains  int
}

func (f *fakeEngine) AddPulses(pulses []wave.Pulse) error {
	f.uploads = append(f.uploads, append([]wave.Pulse(nil), pulses...))
	return nil
}

func (f *fakeEngine) CreateWave() (wave.WaveID, error) {
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeEngine) DeleteWave(id wave.WaveID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEngine) SubmitChain([]byte) error { f.chains++; return nil }
func (f *fakeEngine) Busy() (bool, error)      { return false, nil }
func (f *fakeEngine) ClearWaves() error        { return nil }

// fakePins records the last level written per pin.
type fakePins struct {
	outputs map[uint8]bool
	levels  map[uint8]bool
}

func newFakePins() *fakePins {
	return &fakePins{outputs: make(map[uint8]bool), levels: make(map[uint8]bool)}
}

func (f *fakePins) SetOutput(pin uint8) error {
	f.outputs[pin] = true
	return nil
}

func (f *fakePins) Write(pin uint8, level bool) error {
	f.levels[pin] = level
	return nil
}

func testDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := NewTMC2209(DriverConfig{
		StepPin:       18,
		DirPin:        4,
		EnablePin:     17,
		MicrostepPins: []uint8{22, 27},
		Microsteps:    32,
	})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	return d
}

func TestPrepareMoveByAngles(t *testing.T) {
	eng := &fakeEngine{}
	pins := newFakePins()
	c, err := NewController(eng, pins, testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	if err := c.PrepareMoveByAngles([]float64{360}, time.Second); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	for _, pin := range []uint8{18, 4, 17, 22, 27} {
		if !pins.outputs[pin] {
			t.Errorf("pin %d not configured as output", pin)
		}
	}
	if !pins.levels[4] {
		t.Error("positive angle should drive the direction pin high")
	}
	if pins.levels[17] {
		t.Error("enable pin should be driven low for the move")
	}
	// 32 microsteps: MS2 low, MS1 high.
	if pins.levels[22] || !pins.levels[27] {
		t.Errorf("microstep levels: got MS2=%v MS1=%v, want low/high",
			pins.levels[22], pins.levels[27])
	}

	// One full turn at 32 microsteps is 6400 step pulses.
	total := 0
	for _, slice := range eng.uploads {
		for _, p := range slice {
			if p.SetMask&(1<<18) != 0 {
				total++
			}
		}
	}
	// The whole move is a single minimal block repeated 6400 times.
	if total != 1 {
		t.Errorf("expected 1 high half-cycle in the block, got %d", total)
	}
}

func TestPrepareMoveNegativeAngle(t *testing.T) {
	eng := &fakeEngine{}
	pins := newFakePins()
	c, err := NewController(eng, pins, testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	if err := c.PrepareMoveByAngles([]float64{-90}, time.Second); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if pins.levels[4] {
		t.Error("negative angle should drive the direction pin low")
	}
	if c.Driver(0).Counterclockwise() {
		t.Error("negative angle should select clockwise rotation")
	}
}

func TestMoveByAnglesInTime(t *testing.T) {
	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	result, err := c.MoveByAnglesInTime(context.Background(), []float64{360}, time.Second)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if result != wave.RunCompleted {
		t.Errorf("expected RunCompleted, got %v", result)
	}
	if eng.chains != 1 {
		t.Errorf("expected one submitted chain, got %d", eng.chains)
	}
	if len(eng.deleted) == 0 {
		t.Error("move completed without releasing its handles")
	}
}

func TestMoveCountMismatch(t *testing.T) {
	c, err := NewController(&fakeEngine{}, newFakePins(), testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if err := c.PrepareMoveByAngles([]float64{90, 90}, time.Second); err == nil {
		t.Error("expected an error for mismatched angle count")
	}
}

func TestPrepareMoveAtSpeeds(t *testing.T) {
	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	// 180 deg/s for 2s is one full turn.
	if err := c.PrepareMoveAtSpeeds([]float64{180}, 2*time.Second); err != nil {
		t.Fatalf("prepare: %v", err)
	}
}

func TestPrepareMoveByDistances(t *testing.T) {
	linear, err := NewTMC2209(DriverConfig{
		StepPin:    18,
		DirPin:     4,
		EnablePin:  17,
		Microsteps: 8,
		Linear:     true,
		Pitch:      0.008,
	})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}

	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), linear)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	// 8mm of travel on an 8mm pitch screw is one full turn.
	if err := c.PrepareMoveByDistances([]float64{0.008}, time.Second); err != nil {
		t.Fatalf("prepare: %v", err)
	}
}

func TestCloseParksPins(t *testing.T) {
	eng := &fakeEngine{}
	pins := newFakePins()
	c, err := NewController(eng, pins, testDriver(t))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if err := c.PrepareMoveByAngles([]float64{360}, time.Second); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if pins.levels[4] {
		t.Error("direction pin should be parked low")
	}
	if !pins.levels[17] {
		t.Error("enable pin should be parked high (driver disabled)")
	}
	if pins.levels[22] || pins.levels[27] {
		t.Error("microstep pins should be parked low")
	}
}
