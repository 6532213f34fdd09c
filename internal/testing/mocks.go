package testing

import (
	"testing"

	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/internal/server/api"
)

type mockFormat struct {
	size   int
	decode func(frame []byte) (device.Report, error)
}

func (m *mockFormat) FrameSize() int { return m.size }

func (m *mockFormat) Decode(frame []byte) (device.Report, error) { return m.decode(frame) }

// RegisterMockFormat registers a feed format under name that cuts the stream
// into size-byte frames and hands them to decode. A nil decode yields a
// neutral report whose LeftX is the first frame byte.
func RegisterMockFormat(t *testing.T, name string, size int, decode func(frame []byte) (device.Report, error)) {
	t.Helper()
	if decode == nil {
		decode = func(frame []byte) (device.Report, error) {
			r := device.NeutralReport()
			r.LeftX = frame[0]
			return r, nil
		}
	}
	api.RegisterFormat(name, &mockFormat{size: size, decode: decode})
}
