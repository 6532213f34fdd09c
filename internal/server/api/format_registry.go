package api

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/Alia5/ds4dsu/device"
)

// DefaultFormat is used when an attach request names no format.
const DefaultFormat = "ds4"

// ErrUnknownFormat is returned for a format name nobody registered.
var ErrUnknownFormat = errors.New("unknown feed format")

// FeedFormat decodes the fixed-size frames of a report stream.
type FeedFormat interface {
	// FrameSize is the size of one frame on the stream.
	FrameSize() int
	// Decode converts one frame into a report.
	Decode(frame []byte) (device.Report, error)
}

var (
	formatRegistry   = make(map[string]FeedFormat)
	formatRegistryMu sync.RWMutex
)

// RegisterFormat registers a feed format. This should be called from device
// package init() functions. The name is case-insensitive.
func RegisterFormat(name string, f FeedFormat) {
	formatRegistryMu.Lock()
	defer formatRegistryMu.Unlock()
	formatRegistry[strings.ToLower(name)] = f
}

// GetFormat returns the format registered under name, or nil.
func GetFormat(name string) FeedFormat {
	formatRegistryMu.RLock()
	defer formatRegistryMu.RUnlock()
	return formatRegistry[strings.ToLower(name)]
}

// ListFormats returns the registered format names, sorted.
func ListFormats() []string {
	formatRegistryMu.RLock()
	defer formatRegistryMu.RUnlock()
	names := make([]string, 0, len(formatRegistry))
	for name := range formatRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
