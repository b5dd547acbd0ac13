package pigpio

import (
	"encoding/binary"

	"github.com/obulka/electricipy/wave"
)

// TxMode selects how the daemon plays a single waveform.
type TxMode uint32

const (
	TxModeOneShot TxMode = iota
	TxModeRepeat
	TxModeOneShotSync
	TxModeRepeatSync
)

// pulseBytes is the wire size of one pulse entry: three 32-bit words
// (set mask, clear mask, microsecond delay).
const pulseBytes = 12

// AddPulses appends pulses to the daemon's wave accumulation area
// (WVAG). It implements wave.Engine.
func (c *Client) AddPulses(pulses []wave.Pulse) error {
	ext := make([]byte, len(pulses)*pulseBytes)
	for i, p := range pulses {
		off := i * pulseBytes
		binary.LittleEndian.PutUint32(ext[off:], p.SetMask)
		binary.LittleEndian.PutUint32(ext[off+4:], p.ClearMask)
		binary.LittleEndian.PutUint32(ext[off+8:], p.Delay)
	}
	_, err := c.command(cmdWvAG, 0, 0, ext)
	return err
}

// CreateWave packages the accumulated pulses into a waveform (WVCRE) and
// returns its handle. It implements wave.Engine.
func (c *Client) CreateWave() (wave.WaveID, error) {
	res, err := c.command(cmdWvCre, 0, 0, nil)
	if err != nil {
		return 0, err
	}
	return wave.WaveID(res), nil
}

// DeleteWave releases a waveform (WVDEL). It implements wave.Engine.
func (c *Client) DeleteWave(id wave.WaveID) error {
	_, err := c.command(cmdWvDel, uint32(id), 0, nil)
	return err
}

// SubmitChain starts playback of chain bytecode (WVCHA). It implements
// wave.Engine.
func (c *Client) SubmitChain(program []byte) error {
	_, err := c.command(cmdWvCha, 0, 0, program)
	return err
}

// Busy reports whether a waveform is still being transmitted (WVBSY). It
// implements wave.Engine.
func (c *Client) Busy() (bool, error) {
	res, err := c.command(cmdWvBsy, 0, 0, nil)
	if err != nil {
		return false, err
	}
	return res != 0, nil
}

// ClearWaves deletes every waveform known to the daemon (WVCLR). It
// implements wave.Engine.
func (c *Client) ClearWaves() error {
	_, err := c.command(cmdWvClr, 0, 0, nil)
	return err
}

// WaveSendRepeat plays one waveform in an endless loop (WVTXR).
func (c *Client) WaveSendRepeat(id wave.WaveID) error {
	_, err := c.command(cmdWvTxR, uint32(id), 0, nil)
	return err
}

// WaveSendUsingMode plays one waveform with an explicit transmit mode
// (WVTXM). The sync modes defer the switch until the running waveform
// finishes its cycle, which is what makes glitch-free PWM updates
// possible.
func (c *Client) WaveSendUsingMode(id wave.WaveID, mode TxMode) error {
	_, err := c.command(cmdWvTxM, uint32(id), uint32(mode), nil)
	return err
}

// WaveTxAt returns the waveform currently being transmitted (WVTAT).
func (c *Client) WaveTxAt() (wave.WaveID, error) {
	res, err := c.command(cmdWvTat, 0, 0, nil)
	if err != nil {
		return 0, err
	}
	return wave.WaveID(res), nil
}

// WaveTxStop aborts the current waveform transmission (WVHLT).
func (c *Client) WaveTxStop() error {
	_, err := c.command(cmdWvHlt, 0, 0, nil)
	return err
}
