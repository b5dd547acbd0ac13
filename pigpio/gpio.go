package pigpio

// Pin modes for cmdModes. Only input and output are needed here; the
// daemon's alternate-function modes are out of scope.
const (
	pinModeInput  uint32 = 0
	pinModeOutput uint32 = 1
)

// SetOutput switches a GPIO to output mode. It implements wave.PinDriver.
func (c *Client) SetOutput(pin uint8) error {
	_, err := c.command(cmdModes, uint32(pin), pinModeOutput, nil)
	return err
}

// SetInput switches a GPIO back to input mode.
func (c *Client) SetInput(pin uint8) error {
	_, err := c.command(cmdModes, uint32(pin), pinModeInput, nil)
	return err
}

// Write sets a GPIO output level. It implements wave.PinDriver.
func (c *Client) Write(pin uint8, level bool) error {
	var lv uint32
	if level {
		lv = 1
	}
	_, err := c.command(cmdWrite, uint32(pin), lv, nil)
	return err
}
