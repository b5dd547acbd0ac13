// Package pigpio is a client for the pigpio daemon's socket interface. It
// implements the wave.Engine and wave.PinDriver contracts on top of the
// daemon's command protocol, over TCP or a serial link.
package pigpio

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Transport carries the daemon's command stream.
// Implementations:
//   - TCP socket to a local or remote pigpiod (DialTCP)
//   - serial link to a forwarded daemon socket (OpenSerial)
//   - in-memory pipe for tests
type Transport interface {
	io.ReadWriteCloser
}

// DefaultAddr is the pigpio daemon's default listen address.
const DefaultAddr = "localhost:8888"

const dialTimeout = 5 * time.Second

// DialTCP connects to a pigpio daemon over TCP. An empty addr dials
// DefaultAddr.
func DialTCP(addr string) (Transport, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("pigpio: dial %s: %w", addr, err)
	}
	return conn, nil
}
