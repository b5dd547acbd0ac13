package pigpio

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Socket command numbers, from the daemon's command table. Only the
// commands this client issues are listed.
const (
	cmdModes uint32 = 0
	cmdWrite uint32 = 4

	cmdWvClr uint32 = 27
	cmdWvAG  uint32 = 28
	cmdWvBsy uint32 = 32
	cmdWvHlt uint32 = 33
	cmdWvCre uint32 = 49
	cmdWvDel uint32 = 50
	cmdWvTxR uint32 = 52
	cmdWvCha uint32 = 93
	cmdWvTxM uint32 = 100
	cmdWvTat uint32 = 101
)

// Client issues commands to a pigpio daemon. Every command is a 16-byte
// little-endian header (command, p1, p2, extension length) followed by the
// extension payload; the daemon echoes the header back with the result in
// the final word. Commands are serialized: the daemon handles one request
// per connection at a time.
type Client struct {
	mu sync.Mutex
	t  Transport
}

// Dial connects to a daemon over TCP. An empty addr dials DefaultAddr.
func Dial(addr string) (*Client, error) {
	t, err := DialTCP(addr)
	if err != nil {
		return nil, err
	}
	return NewClient(t), nil
}

// NewClient wraps an open transport.
func NewClient(t Transport) *Client {
	return &Client{t: t}
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Close()
}

// command exchanges one request for its result word. A negative result is
// returned as a StatusError.
func (c *Client) command(cmd, p1, p2 uint32, ext []byte) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], cmd)
	binary.LittleEndian.PutUint32(hdr[4:], p1)
	binary.LittleEndian.PutUint32(hdr[8:], p2)
	binary.LittleEndian.PutUint32(hdr[12:], uint32(len(ext)))

	if _, err := c.t.Write(hdr[:]); err != nil {
		return 0, fmt.Errorf("pigpio: send command %d: %w", cmd, err)
	}
	if len(ext) > 0 {
		if _, err := c.t.Write(ext); err != nil {
			return 0, fmt.Errorf("pigpio: send command %d payload: %w", cmd, err)
		}
	}

	var reply [16]byte
	if _, err := io.ReadFull(c.t, reply[:]); err != nil {
		return 0, fmt.Errorf("pigpio: read command %d reply: %w", cmd, err)
	}

	res := int32(binary.LittleEndian.Uint32(reply[12:]))
	if res < 0 {
		return res, StatusError(res)
	}
	return res, nil
}
