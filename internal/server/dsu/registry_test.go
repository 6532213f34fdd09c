package dsu_test

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ds4dsu/dsu"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	macA = [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x01}
	macB = [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x02}
)

func slotWithMAC(slot uint8, mac [6]byte) dsu.SlotInfo {
	info := dsu.EmptySlot(slot)
	info.State = dsu.StateConnected
	info.MAC = mac
	return info
}

func TestRegistrationMatch(t *testing.T) {
	cases := []struct {
		name     string
		filter   dsu.DataRequest
		info     dsu.SlotInfo
		expected bool
	}{
		{name: "all slot 0", filter: dsu.DataRequest{Mode: dsu.ModeAll}, info: slotWithMAC(0, macA), expected: true},
		{name: "all slot 3 other mac", filter: dsu.DataRequest{Mode: dsu.ModeAll}, info: slotWithMAC(3, macB), expected: true},
		{name: "slot match", filter: dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 2}, info: slotWithMAC(2, macB), expected: true},
		{name: "slot mismatch same mac", filter: dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 2, MAC: macA}, info: slotWithMAC(1, macA), expected: false},
		{name: "mac match other slot", filter: dsu.DataRequest{Mode: dsu.ModeMAC, MAC: macA}, info: slotWithMAC(3, macA), expected: true},
		{name: "mac mismatch same slot", filter: dsu.DataRequest{Mode: dsu.ModeMAC, Slot: 1, MAC: macA}, info: slotWithMAC(1, macB), expected: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := srvdsu.Registration{Filter: tc.filter}
			assert.Equal(t, tc.expected, reg.Match(tc.info))
		})
	}
}

func TestRegistryRegisterKeepsFirstFilter(t *testing.T) {
	clock := newFakeClock()
	r := srvdsu.NewRegistry(5*time.Second, clock.Now)
	addr := netip.MustParseAddrPort("127.0.0.1:4000")

	assert.True(t, r.Register(addr, dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 1}))
	clock.Advance(2 * time.Second)
	assert.False(t, r.Register(addr, dsu.DataRequest{Mode: dsu.ModeAll}))

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 1}, list[0].Filter)
	assert.Equal(t, clock.Now(), list[0].LastSeen)
}

func TestRegistryNormalizesMappedAddresses(t *testing.T) {
	r := srvdsu.NewRegistry(5*time.Second, nil)
	assert.True(t, r.Register(netip.MustParseAddrPort("[::ffff:127.0.0.1]:4000"), dsu.DataRequest{}))
	assert.False(t, r.Register(netip.MustParseAddrPort("127.0.0.1:4000"), dsu.DataRequest{}))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryLazyEviction(t *testing.T) {
	clock := newFakeClock()
	r := srvdsu.NewRegistry(5*time.Second, clock.Now)
	stale := netip.MustParseAddrPort("127.0.0.1:4000")
	fresh := netip.MustParseAddrPort("127.0.0.1:4001")

	r.Register(stale, dsu.DataRequest{Mode: dsu.ModeAll})
	clock.Advance(3 * time.Second)
	r.Register(fresh, dsu.DataRequest{Mode: dsu.ModeAll})

	clock.Advance(2 * time.Second)
	matched, evicted := r.Subscribers(slotWithMAC(0, macA))
	assert.Len(t, matched, 2, "exactly 5s is not stale")
	assert.Empty(t, evicted)

	clock.Advance(time.Millisecond)
	assert.Equal(t, 2, r.Len(), "eviction only happens on lookup")

	matched, evicted = r.Subscribers(slotWithMAC(0, macA))
	require.Len(t, matched, 1)
	assert.Equal(t, fresh, matched[0].Addr)
	require.Len(t, evicted, 1)
	assert.Equal(t, stale, evicted[0].Addr)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEvictsNonMatchingStale(t *testing.T) {
	clock := newFakeClock()
	r := srvdsu.NewRegistry(5*time.Second, clock.Now)
	r.Register(netip.MustParseAddrPort("127.0.0.1:4000"), dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 3})

	clock.Advance(6 * time.Second)
	matched, evicted := r.Subscribers(slotWithMAC(0, macA))
	assert.Empty(t, matched)
	assert.Len(t, evicted, 1)
	assert.Zero(t, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := srvdsu.NewRegistry(5*time.Second, nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for p := range 100 {
				r.Register(netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(1000+i*100+p)), dsu.DataRequest{})
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				r.Subscribers(slotWithMAC(uint8(i%4), macA))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, r.Len())
	assert.Len(t, r.List(), 800)
}

func TestRegistryListOrdered(t *testing.T) {
	r := srvdsu.NewRegistry(5*time.Second, nil)
	r.Register(netip.MustParseAddrPort("127.0.0.2:1"), dsu.DataRequest{})
	r.Register(netip.MustParseAddrPort("127.0.0.1:9"), dsu.DataRequest{})
	r.Register(netip.MustParseAddrPort("127.0.0.1:2"), dsu.DataRequest{})

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "127.0.0.1:2", list[0].Addr.String())
	assert.Equal(t, "127.0.0.1:9", list[1].Addr.String())
	assert.Equal(t, "127.0.0.2:1", list[2].Addr.String())
}
