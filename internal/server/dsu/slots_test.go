package dsu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/dsu"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
	th "github.com/Alia5/ds4dsu/internal/testing"
)

func TestSlotTableInfo(t *testing.T) {
	table := srvdsu.NewSlotTable(4)

	assert.Equal(t, dsu.EmptySlot(1), table.Info(1))

	require.NoError(t, table.Register(1, th.NewController("aa:bb:cc:dd:ee:ff", device.ConnectionBluetooth)))
	assert.Equal(t, dsu.SlotInfo{
		Slot:       1,
		State:      dsu.StateConnected,
		Model:      dsu.ModelFullGyro,
		Connection: dsu.ConnectionBluetooth,
		MAC:        [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		Battery:    dsu.BatteryCharged,
	}, table.Info(1))

	require.NoError(t, table.Register(2, th.NewController("not-a-mac", device.ConnectionUSB)))
	info := table.Info(2)
	assert.Equal(t, dsu.StateConnected, info.State)
	assert.Equal(t, dsu.ConnectionUSB, info.Connection)
	assert.Equal(t, dsu.PlaceholderMAC, info.MAC)

	require.NoError(t, table.Register(3, th.NewController("01:02:03:04:05:06", device.ConnectionUnknown)))
	assert.Equal(t, dsu.ConnectionNone, table.Info(3).Connection)
}

func TestSlotTableOutOfRange(t *testing.T) {
	table := srvdsu.NewSlotTable(4)
	ctrl := th.NewController("01:02:03:04:05:06", device.ConnectionUSB)

	assert.ErrorIs(t, table.Register(4, ctrl), srvdsu.ErrSlotOutOfRange)
	assert.ErrorIs(t, table.Claim(200, ctrl), srvdsu.ErrSlotOutOfRange)
	assert.False(t, table.Unregister(4, ctrl))
	assert.Nil(t, table.Controller(4))
	_, _, ok := table.Next(4, ctrl)
	assert.False(t, ok)
}

func TestSlotTableSequence(t *testing.T) {
	table := srvdsu.NewSlotTable(4)
	a := th.NewController("01:02:03:04:05:06", device.ConnectionUSB)
	b := th.NewController("01:02:03:04:05:07", device.ConnectionUSB)
	require.NoError(t, table.Register(0, a))
	require.NoError(t, table.Register(1, b))

	for i := range uint32(10) {
		_, seq, ok := table.Next(0, a)
		require.True(t, ok)
		assert.Equal(t, i, seq)
	}
	info, seq, ok := table.Next(1, b)
	require.True(t, ok)
	assert.Equal(t, uint32(0), seq)
	assert.Equal(t, uint8(1), info.Slot)

	assert.Equal(t, uint32(10), table.Sequence(0))
	assert.Equal(t, uint32(1), table.Sequence(1))

	require.NoError(t, table.Register(0, a))
	assert.Zero(t, table.Sequence(0), "registering restarts the sequence")
}

func TestSlotTableStaleHandle(t *testing.T) {
	table := srvdsu.NewSlotTable(4)
	old := th.NewController("01:02:03:04:05:06", device.ConnectionUSB)
	cur := th.NewController("01:02:03:04:05:06", device.ConnectionUSB)

	require.NoError(t, table.Register(0, old))
	require.NoError(t, table.Register(0, cur))

	_, _, ok := table.Next(0, old)
	assert.False(t, ok)
	assert.False(t, table.Unregister(0, old))
	assert.Same(t, cur, table.Controller(0))

	assert.True(t, table.Unregister(0, cur))
	assert.Nil(t, table.Controller(0))
	assert.False(t, table.Unregister(0, nil))
}

func TestSlotTableClaim(t *testing.T) {
	table := srvdsu.NewSlotTable(2)
	a := th.NewController("01:02:03:04:05:06", device.ConnectionUSB)
	b := th.NewController("01:02:03:04:05:07", device.ConnectionUSB)

	require.NoError(t, table.Claim(0, a))
	_, _, _ = table.Next(0, a)
	require.NoError(t, table.Claim(0, a), "claiming again with the same handle is fine")
	assert.Equal(t, uint32(1), table.Sequence(0), "re-claim keeps the sequence")

	assert.ErrorIs(t, table.Claim(0, b), srvdsu.ErrSlotOccupied)
	assert.True(t, table.Unregister(0, nil))
	assert.NoError(t, table.Claim(0, b))
}
