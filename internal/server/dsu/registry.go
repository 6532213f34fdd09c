package dsu

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/Alia5/ds4dsu/dsu"
)

// Registration is one UDP peer's standing request for pad data.
type Registration struct {
	Addr     netip.AddrPort
	Filter   dsu.DataRequest
	LastSeen time.Time
}

// Match reports whether pad data for the given slot should go to this peer.
func (r Registration) Match(info dsu.SlotInfo) bool {
	switch r.Filter.Mode {
	case dsu.ModeAll:
		return true
	case dsu.ModeSlot:
		return r.Filter.Slot == info.Slot
	case dsu.ModeMAC:
		return r.Filter.MAC == info.MAC
	default:
		return false
	}
}

// Stale reports whether the registration has not been renewed for longer than timeout.
func (r Registration) Stale(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.LastSeen) > timeout
}

// Registry tracks subscribed peers keyed by address. Eviction happens only
// when subscribers are looked up for a broadcast.
type Registry struct {
	mu      sync.Mutex
	clients map[netip.AddrPort]*Registration
	timeout time.Duration
	now     func() time.Time
}

// NewRegistry creates an empty registry. A nil clock uses time.Now.
func NewRegistry(timeout time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		clients: make(map[netip.AddrPort]*Registration),
		timeout: timeout,
		now:     now,
	}
}

// Register adds addr with the given filter, or refreshes the timestamp of an
// existing registration. The filter of an existing registration is kept.
func (r *Registry) Register(addr netip.AddrPort, filter dsu.DataRequest) (created bool) {
	addr = normalizeAddr(addr)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.clients[addr]; ok {
		reg.LastSeen = now
		return false
	}
	r.clients[addr] = &Registration{Addr: addr, Filter: filter, LastSeen: now}
	return true
}

// Len returns the number of registrations, stale ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Subscribers evicts stale registrations and returns the live ones matching
// info. Both results are copies and safe to use without the lock.
func (r *Registry) Subscribers(info dsu.SlotInfo) (matched []Registration, evicted []Registration) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, reg := range r.clients {
		if reg.Stale(now, r.timeout) {
			evicted = append(evicted, *reg)
			delete(r.clients, addr)
			continue
		}
		if reg.Match(info) {
			matched = append(matched, *reg)
		}
	}
	return matched, evicted
}

// List returns a snapshot of all registrations ordered by address.
func (r *Registry) List() []Registration {
	r.mu.Lock()
	out := make([]Registration, 0, len(r.clients))
	for _, reg := range r.clients {
		out = append(out, *reg)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Addr.Compare(out[j].Addr) < 0 })
	return out
}

func normalizeAddr(a netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(a.Addr().Unmap(), a.Port())
}
