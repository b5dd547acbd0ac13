package wave

import (
	"fmt"
	"log"
)

// UploadSlices pushes a pulse buffer to the engine and registers the
// resulting waveforms, returning their handles in buffer order.
//
// The buffer is cut under two independent ceilings: no upload call carries
// more than lim.PulsesPerMessage entries, and the slices are grouped into
// residency windows of at most lim.ResidentPulses entries so large
// waveforms assemble incrementally without overrunning the engine's pulse
// memory. Any engine failure deletes the handles already created by this
// call before the error is returned.
func UploadSlices(eng Engine, pulses []Pulse, lim Limits) ([]WaveID, error) {
	if err := lim.validate(); err != nil {
		return nil, err
	}
	if len(pulses) == 0 {
		return nil, fmt.Errorf("%w: empty pulse buffer", ErrInvalidInput)
	}

	var handles []WaveID
	sent := 0
	for _, size := range sliceSizes(len(pulses), lim) {
		id, err := uploadOne(eng, pulses[sent:sent+size])
		if err != nil {
			rollback(eng, handles)
			return nil, err
		}
		handles = append(handles, id)
		sent += size
	}
	return handles, nil
}

// sliceSizes plans the slice lengths for an n-entry buffer: per residency
// window, as many full message-sized slices as fit, then the window
// remainder.
func sliceSizes(n int, lim Limits) []int {
	var sizes []int
	for remaining := n; remaining > 0; {
		window := remaining
		if window > lim.ResidentPulses {
			window = lim.ResidentPulses
		}
		for i := 0; i < window/lim.PulsesPerMessage; i++ {
			sizes = append(sizes, lim.PulsesPerMessage)
		}
		if rem := window % lim.PulsesPerMessage; rem > 0 {
			sizes = append(sizes, rem)
		}
		remaining -= window
	}
	return sizes
}

func uploadOne(eng Engine, slice []Pulse) (WaveID, error) {
	if err := eng.AddPulses(slice); err != nil {
		return 0, fmt.Errorf("%w: upload %d pulses: %w", ErrHardware, len(slice), err)
	}
	id, err := eng.CreateWave()
	if err != nil {
		return 0, fmt.Errorf("%w: create wave: %w", ErrHardware, err)
	}
	return id, nil
}

// rollback deletes partially-created handles. Delete failures are logged
// and dropped so they cannot mask the upload error already in flight.
func rollback(eng Engine, handles []WaveID) {
	for _, id := range handles {
		if err := eng.DeleteWave(id); err != nil {
			log.Printf("wave: rollback of handle %d failed: %v", id, err)
		}
	}
}
