package pigpio

import "fmt"

// StatusError is a negative status code returned by the daemon.
type StatusError int32

// Daemon status codes this client runs into in practice.
const (
	ErrBadUserGPIO   StatusError = -2
	ErrBadGPIO       StatusError = -3
	ErrBadMode       StatusError = -4
	ErrBadLevel      StatusError = -5
	ErrTooManyPulses StatusError = -36
	ErrBadWaveID     StatusError = -66
	ErrTooManyCBs    StatusError = -67
	ErrTooManyOOL    StatusError = -68
	ErrEmptyWaveform StatusError = -69
	ErrNoWaveformID  StatusError = -70
)

var statusText = map[StatusError]string{
	ErrBadUserGPIO:   "GPIO not 0-31",
	ErrBadGPIO:       "GPIO not 0-53",
	ErrBadMode:       "mode not 0-7",
	ErrBadLevel:      "level not 0-1",
	ErrTooManyPulses: "waveform has too many pulses",
	ErrBadWaveID:     "non existent wave id",
	ErrTooManyCBs:    "no more CBs for waveform",
	ErrTooManyOOL:    "no more OOL for waveform",
	ErrEmptyWaveform: "attempt to create an empty waveform",
	ErrNoWaveformID:  "no more waveform ids",
}

func (e StatusError) Error() string {
	if text, ok := statusText[e]; ok {
		return fmt.Sprintf("pigpio: %s (status %d)", text, int32(e))
	}
	return fmt.Sprintf("pigpio: status %d", int32(e))
}
