package dualshock4

import (
	"fmt"

	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/internal/server/api"
)

func init() {
	api.RegisterFormat("ds4", inputStateFormat{})
	api.RegisterFormat("ds4hid", hidFormat{size: InputReportSize})
	api.RegisterFormat("ds4bt", hidFormat{size: BluetoothInputReportSize})
}

// inputStateFormat reads InputState frames.
type inputStateFormat struct{}

func (inputStateFormat) FrameSize() int { return InputStateSize }

func (inputStateFormat) Decode(frame []byte) (device.Report, error) {
	var s InputState
	if err := s.UnmarshalBinary(frame); err != nil {
		return device.Report{}, fmt.Errorf("unmarshal input state: %w", err)
	}
	return s.Report(), nil
}

// hidFormat reads raw hidraw input reports of a fixed size.
type hidFormat struct {
	size int
}

func (f hidFormat) FrameSize() int { return f.size }

func (f hidFormat) Decode(frame []byte) (device.Report, error) {
	return ParseInputReport(frame)
}
