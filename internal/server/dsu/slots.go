package dsu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/dsu"
)

var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotOccupied   = errors.New("slot occupied")
)

type slot struct {
	ctrl device.Controller
	seq  atomic.Uint32
}

// SlotTable maps slot indices to the controllers occupying them.
type SlotTable struct {
	mu    sync.RWMutex
	slots []*slot
}

// NewSlotTable creates a table with n empty slots.
func NewSlotTable(n int) *SlotTable {
	t := &SlotTable{slots: make([]*slot, n)}
	for i := range t.slots {
		t.slots[i] = &slot{}
	}
	return t
}

// Len returns the slot capacity.
func (t *SlotTable) Len() int { return len(t.slots) }

func (t *SlotTable) get(index uint8) (*slot, error) {
	if int(index) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrSlotOutOfRange, index, len(t.slots))
	}
	return t.slots[index], nil
}

// Register puts ctrl into the slot, replacing any previous controller, and
// restarts the slot's sequence at 0.
func (t *SlotTable) Register(index uint8, ctrl device.Controller) error {
	s, err := t.get(index)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s.ctrl = ctrl
	s.seq.Store(0)
	return nil
}

// Claim is like Register but fails with ErrSlotOccupied if another
// controller holds the slot.
func (t *SlotTable) Claim(index uint8, ctrl device.Controller) error {
	s, err := t.get(index)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.ctrl != nil && s.ctrl != ctrl {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, index)
	}
	if s.ctrl != ctrl {
		s.ctrl = ctrl
		s.seq.Store(0)
	}
	return nil
}

// Unregister empties the slot if ctrl still occupies it. A nil ctrl empties
// the slot unconditionally.
func (t *SlotTable) Unregister(index uint8, ctrl device.Controller) bool {
	s, err := t.get(index)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.ctrl == nil || (ctrl != nil && s.ctrl != ctrl) {
		return false
	}
	s.ctrl = nil
	return true
}

// Controller returns the controller occupying the slot, or nil.
func (t *SlotTable) Controller(index uint8) device.Controller {
	s, err := t.get(index)
	if err != nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return s.ctrl
}

// Info returns the slot description as of now.
func (t *SlotTable) Info(index uint8) dsu.SlotInfo {
	return slotInfo(index, t.Controller(index))
}

// Next returns the slot info and the next sequence number for a broadcast on
// behalf of ctrl. ok is false when ctrl no longer occupies the slot. Info and
// sequence are taken under the same lock so they always belong together.
func (t *SlotTable) Next(index uint8, ctrl device.Controller) (info dsu.SlotInfo, seq uint32, ok bool) {
	s, err := t.get(index)
	if err != nil {
		return info, 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s.ctrl == nil || s.ctrl != ctrl {
		return info, 0, false
	}
	// Add returns the new value; the first broadcast carries 0.
	seq = s.seq.Add(1) - 1
	return slotInfo(index, s.ctrl), seq, true
}

// Sequence returns the number of broadcasts since the slot was last registered.
func (t *SlotTable) Sequence(index uint8) uint32 {
	s, err := t.get(index)
	if err != nil {
		return 0
	}
	return s.seq.Load()
}

func slotInfo(index uint8, ctrl device.Controller) dsu.SlotInfo {
	if ctrl == nil {
		return dsu.EmptySlot(index)
	}
	id := ctrl.Identity()
	info := dsu.SlotInfo{
		Slot:       index,
		State:      dsu.StateConnected,
		Model:      dsu.ModelFullGyro,
		Connection: connectionType(id.Connection),
		MAC:        dsu.PlaceholderMAC,
		Battery:    dsu.BatteryCharged,
	}
	if mac, err := dsu.ParseMAC(id.Address); err == nil {
		info.MAC = mac
	}
	return info
}

func connectionType(c device.Connection) dsu.ConnectionType {
	switch c {
	case device.ConnectionUSB:
		return dsu.ConnectionUSB
	case device.ConnectionBluetooth:
		return dsu.ConnectionBluetooth
	default:
		return dsu.ConnectionNone
	}
}
