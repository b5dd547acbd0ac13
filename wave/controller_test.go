package wave

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakePins records pin configuration and levels.
type fakePins struct {
	outputs []uint8
	writes  map[uint8]bool
}

func newFakePins() *fakePins {
	return &fakePins{writes: make(map[uint8]bool)}
}

func (f *fakePins) SetOutput(pin uint8) error {
	f.outputs = append(f.outputs, pin)
	return nil
}

func (f *fakePins) Write(pin uint8, level bool) error {
	f.writes[pin] = level
	return nil
}

func testChannels(t *testing.T) []Channel {
	t.Helper()
	return mustChannels(t, 20*time.Millisecond, map[uint8]int{12: 200, 16: 300})
}

func TestControllerPrepareRun(t *testing.T) {
	eng := &fakeEngine{busyLeft: 3}
	pins := newFakePins()
	c, err := NewController(eng, pins, testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(eng.created) != 1 {
		t.Fatalf("expected one uploaded slice, got %d", len(eng.created))
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result != RunCompleted {
		t.Errorf("expected RunCompleted, got %v", result)
	}

	if len(eng.chains) != 1 {
		t.Fatalf("expected one submitted chain, got %d", len(eng.chains))
	}
	if got := decodePlays(t, eng.chains[0], eng.created[0]); got != 100 {
		t.Errorf("chain plays the block %d times, want 100", got)
	}

	// Natural completion releases the handles and clears the pins.
	if len(eng.deleted) != 1 || eng.deleted[0] != eng.created[0] {
		t.Errorf("expected handle %d released, got %v", eng.created[0], eng.deleted)
	}
	for _, pin := range []uint8{12, 16} {
		if level, ok := pins.writes[pin]; !ok || level {
			t.Errorf("pin %d not cleared low after run", pin)
		}
	}
}

func TestControllerRunStopped(t *testing.T) {
	eng := &fakeEngine{busyLeft: 1 << 30}
	c, err := NewController(eng, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	done := make(chan RunResult, 1)
	go func() {
		result, err := c.Run(context.Background())
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- result
	}()

	time.Sleep(time.Millisecond)
	c.Stop()

	select {
	case result := <-done:
		if result != RunStopped {
			t.Errorf("expected RunStopped, got %v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not observe the stop flag")
	}

	if len(eng.deleted) != len(eng.created) {
		t.Errorf("stop leaked handles: created %v, deleted %v", eng.created, eng.deleted)
	}
}

func TestControllerRunCanceledContext(t *testing.T) {
	eng := &fakeEngine{busyLeft: 1 << 30}
	c, err := NewController(eng, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result != RunStopped {
		t.Errorf("expected RunStopped, got %v", result)
	}
}

func TestControllerPrepareErrors(t *testing.T) {
	c, err := NewController(&fakeEngine{}, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Prepare(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty set: expected ErrInvalidInput, got %v", err)
	}
	bad := []Channel{{Pin: 4, Pulses: 0, Period: time.Millisecond}}
	if err := c.Prepare(bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero pulse count: expected ErrInvalidInput, got %v", err)
	}
}

func TestControllerRunWithoutPrepare(t *testing.T) {
	c, err := NewController(&fakeEngine{}, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Run(context.Background()); err == nil {
		t.Error("expected an error running an unprepared controller")
	}
}

func TestControllerReprepareReleases(t *testing.T) {
	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	first := append([]WaveID(nil), eng.created...)
	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("second prepare: %v", err)
	}

	if len(eng.deleted) != len(first) {
		t.Errorf("re-prepare should release %v, deleted %v", first, eng.deleted)
	}
}

func TestControllerCloseWithoutRun(t *testing.T) {
	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Prepare(testChannels(t)); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(eng.deleted) != len(eng.created) {
		t.Errorf("close leaked handles: created %v, deleted %v", eng.created, eng.deleted)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestControllerMotorScenario(t *testing.T) {
	// Two motors: 720 and 320 step pulses over a two-second window.
	window := 2 * time.Second
	channels := mustChannels(t, window, map[uint8]int{12: 720, 16: 320})

	eng := &fakeEngine{}
	c, err := NewController(eng, newFakePins(), testLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Prepare(channels); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	pattern := c.Pattern()
	if pattern.Repeats != 40 {
		t.Errorf("repeats: expected 40, got %d", pattern.Repeats)
	}

	// Replaying every uploaded slice in order, Repeats times, must
	// deliver the exact requested pulse counts.
	var buffer []Pulse
	for _, slice := range eng.uploads {
		buffer = append(buffer, slice...)
	}
	if got := countRisingEdges(buffer, 12, pattern.Repeats); got != 720 {
		t.Errorf("pin 12: expected 720 pulses, got %d", got)
	}
	if got := countRisingEdges(buffer, 16, pattern.Repeats); got != 320 {
		t.Errorf("pin 16: expected 320 pulses, got %d", got)
	}
}
