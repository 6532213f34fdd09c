package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Alia5/ds4dsu/device"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

var (
	// ErrNotAttached is returned when a slot has no API-attached controller.
	ErrNotAttached = errors.New("no controller attached through the API")
	// ErrStreamActive is returned when a second stream is opened for a feed.
	ErrStreamActive = errors.New("report stream already active")
)

// Feed is a controller attached through the API. Reports arrive on a stream
// connection and are broadcast to the DSU clients of its slot.
type Feed struct {
	slot     uint8
	identity device.Identity
	format   string
	dsu      *srvdsu.Server

	// timeout is how long the feed may go without a stream.
	timeout time.Duration

	mu        sync.Mutex
	streaming bool
	detached  bool
	timer     *time.Timer
}

// Identity implements device.Controller.
func (f *Feed) Identity() device.Identity { return f.identity }

func (f *Feed) Slot() uint8 { return f.slot }

func (f *Feed) Format() string { return f.format }

// Report broadcasts r for this feed's slot and returns the number of
// datagrams sent.
func (f *Feed) Report(r *device.Report) int {
	return f.dsu.Report(f.slot, f, r)
}

// Streaming reports whether a stream connection is currently feeding reports.
func (f *Feed) Streaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *Feed) beginStream() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.detached:
		return ErrNotAttached
	case f.streaming:
		return ErrStreamActive
	}
	f.streaming = true
	if f.timer != nil {
		f.timer.Stop()
	}
	return nil
}

func (f *Feed) endStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streaming = false
	if f.timer != nil && !f.detached {
		f.timer.Reset(f.timeout)
	}
}

// markDetached flips the feed to detached unless a stream holds it and force
// is false. It reports whether the caller should remove the feed.
func (f *Feed) markDetached(force bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detached || (f.streaming && !force) {
		return false
	}
	f.detached = true
	if f.timer != nil {
		f.timer.Stop()
	}
	return true
}

// Attach registers a new feed controller into an empty slot. Unless a stream
// connects within DeviceHandlerConnectTimeout the feed is detached again.
func (a *Server) Attach(slot uint8, id device.Identity, format string) (*Feed, error) {
	if format == "" {
		format = DefaultFormat
	}
	if GetFormat(format) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	f := &Feed{
		slot:     slot,
		identity: id,
		format:   format,
		dsu:      a.dsu,
		timeout:  a.config.DeviceHandlerConnectTimeout,
	}

	a.feedsMu.Lock()
	defer a.feedsMu.Unlock()
	if err := a.dsu.AttachController(slot, f); err != nil {
		return nil, err
	}
	if f.timeout > 0 {
		f.mu.Lock()
		f.timer = time.AfterFunc(f.timeout, func() {
			if a.detachFeed(f, false) {
				a.logger.Info("timeout: detached controller (no stream)", "slot", slot, "address", id.Address)
			}
		})
		f.mu.Unlock()
	}
	a.feeds[slot] = f
	return f, nil
}

// Detach removes the API-attached controller of a slot. An open stream keeps
// running but its reports are dropped.
func (a *Server) Detach(slot uint8) error {
	f := a.Feed(slot)
	if f == nil {
		return fmt.Errorf("slot %d: %w", slot, ErrNotAttached)
	}
	a.detachFeed(f, true)
	return nil
}

// Feed returns the API-attached controller of a slot, or nil.
func (a *Server) Feed(slot uint8) *Feed {
	a.feedsMu.Lock()
	defer a.feedsMu.Unlock()
	return a.feeds[slot]
}

func (a *Server) detachFeed(f *Feed, force bool) bool {
	if !f.markDetached(force) {
		return false
	}
	a.feedsMu.Lock()
	if a.feeds[f.slot] == f {
		delete(a.feeds, f.slot)
	}
	a.feedsMu.Unlock()
	a.dsu.UnregisterController(f.slot, f)
	return true
}

func (a *Server) detachAll() {
	a.feedsMu.Lock()
	feeds := make([]*Feed, 0, len(a.feeds))
	for _, f := range a.feeds {
		feeds = append(feeds, f)
	}
	a.feedsMu.Unlock()
	for _, f := range feeds {
		a.detachFeed(f, true)
	}
}
