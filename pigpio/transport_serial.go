package pigpio

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig holds the settings for a serial-linked daemon connection,
// for setups where the daemon socket is bridged onto a serial console.
type SerialConfig struct {
	// Device path (e.g. "/dev/ttyUSB0").
	Device string

	// Baud rate of the link.
	Baud int

	// ReadTimeout bounds a single read; zero blocks.
	ReadTimeout time.Duration
}

// DefaultSerialConfig returns the usual settings for a device path.
func DefaultSerialConfig(device string) *SerialConfig {
	return &SerialConfig{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// OpenSerial opens a serial link to a forwarded daemon socket.
func OpenSerial(cfg *SerialConfig) (Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pigpio: nil serial config")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pigpio: open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}
