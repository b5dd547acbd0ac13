package wave

import (
	"fmt"
	"sort"
	"time"
)

// Channel describes one output channel's share of a scheduling window: the
// pin to pulse, how many full pulse cycles it must receive, and the
// resulting pulse period. Channels are immutable once built.
type Channel struct {
	Pin    uint8
	Pulses int
	Period time.Duration
}

// NewChannel builds the channel request for pulses full cycles spread
// evenly over window.
func NewChannel(pin uint8, pulses int, window time.Duration) (Channel, error) {
	if pulses < 1 {
		return Channel{}, fmt.Errorf("%w: pulse count %d for pin %d", ErrInvalidInput, pulses, pin)
	}
	if window <= 0 {
		return Channel{}, fmt.Errorf("%w: window %v for pin %d", ErrInvalidInput, window, pin)
	}
	return Channel{
		Pin:    pin,
		Pulses: pulses,
		Period: window / time.Duration(pulses),
	}, nil
}

// Pattern describes the minimal repeating block shared by a channel set.
//
// Replaying the block Repeats times delivers every channel exactly its
// requested pulse count; that equality is the correctness contract of the
// whole engine.
type Pattern struct {
	// HalfCycles is the number of half-cycle entries in one block.
	HalfCycles int

	// Unit is the half-cycle tick length, half the fastest channel's
	// period.
	Unit time.Duration

	// Repeats is how many times the block must replay, the GCD of all
	// pulse counts.
	Repeats int
}

// Reduce computes the minimal shared pattern for a channel set and
// synthesizes its pulse buffer.
//
// All channels run from one tick clock: each half-cycle entry composes the
// set and clear masks of every pin, so the channels stay phase-aligned
// (all start high at half-cycle zero) without per-channel timers. A
// channel with n pulses per block goes high on the n half-cycles where
// (h*n) % HalfCycles wraps, which spreads its pulses evenly across the
// block and delivers exact counts even when the pulse ratios do not divide
// the block length.
func Reduce(channels []Channel) (Pattern, []Pulse, error) {
	if len(channels) == 0 {
		return Pattern{}, nil, fmt.Errorf("%w: no channels", ErrInvalidInput)
	}

	sorted := make([]Channel, len(channels))
	copy(sorted, channels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Period < sorted[j].Period
	})

	repeats := 0
	maxPulses := 0
	for _, ch := range sorted {
		if ch.Pulses < 1 {
			return Pattern{}, nil, fmt.Errorf("%w: pulse count %d for pin %d",
				ErrInvalidInput, ch.Pulses, ch.Pin)
		}
		if ch.Period <= 0 {
			return Pattern{}, nil, fmt.Errorf("%w: period %v for pin %d",
				ErrInvalidInput, ch.Period, ch.Pin)
		}
		repeats = gcd(repeats, ch.Pulses)
		if ch.Pulses > maxPulses {
			maxPulses = ch.Pulses
		}
	}

	pattern := Pattern{
		HalfCycles: 2 * maxPulses / repeats,
		Unit:       sorted[0].Period / 2,
		Repeats:    repeats,
	}

	delay := uint32(pattern.Unit.Round(time.Microsecond) / time.Microsecond)
	if delay == 0 {
		delay = 1
	}

	pulses := make([]Pulse, pattern.HalfCycles)
	for h := 0; h < pattern.HalfCycles; h++ {
		entry := Pulse{Delay: delay}
		for _, ch := range sorted {
			perBlock := ch.Pulses / repeats
			if (h*perBlock)%pattern.HalfCycles < perBlock {
				entry.SetMask |= 1 << ch.Pin
			} else {
				entry.ClearMask |= 1 << ch.Pin
			}
		}
		pulses[h] = entry
	}

	return pattern, pulses, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
