package dsu_test

import (
	"testing"

	"github.com/Alia5/ds4dsu/dsu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientFrame(t dsu.MessageType, payload []byte) []byte {
	return dsu.NewClientBuilder(t, 42).Bytes(payload).Finalize()
}

func TestParseRequest(t *testing.T) {
	mac := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

	cases := []struct {
		name     string
		frame    []byte
		expected dsu.Request
	}{
		{
			name:     "version",
			frame:    clientFrame(dsu.MessageVersion, nil),
			expected: dsu.VersionRequest{},
		},
		{
			name:     "ports",
			frame:    clientFrame(dsu.MessagePorts, []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x03}),
			expected: dsu.PortsRequest{Slots: []uint8{0, 3}},
		},
		{
			name:     "ports with trailing bytes",
			frame:    clientFrame(dsu.MessagePorts, []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03}),
			expected: dsu.PortsRequest{Slots: []uint8{1}},
		},
		{
			name:     "data all",
			frame:    clientFrame(dsu.MessageData, []byte{0x00, 0x00, 0, 0, 0, 0, 0, 0}),
			expected: dsu.DataRequest{Mode: dsu.ModeAll},
		},
		{
			name:     "data slot",
			frame:    clientFrame(dsu.MessageData, []byte{0x01, 0x02, 0, 0, 0, 0, 0, 0}),
			expected: dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 2},
		},
		{
			name:     "data mac",
			frame:    clientFrame(dsu.MessageData, append([]byte{0x02, 0x00}, mac[:]...)),
			expected: dsu.DataRequest{Mode: dsu.ModeMAC, MAC: mac},
		},
		{
			name:     "unknown type",
			frame:    clientFrame(dsu.MessageType(0x00100003), nil),
			expected: dsu.UnknownRequest{Type: 0x00100003},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := dsu.ParseRequest(tc.frame)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, req)
		})
	}
}

func TestParseRequestMalformed(t *testing.T) {
	cases := []struct {
		name  string
		frame []byte
	}{
		{name: "short header", frame: []byte("DSUC")},
		{name: "ports without count", frame: clientFrame(dsu.MessagePorts, []byte{0x01})},
		{name: "ports count exceeds bytes", frame: clientFrame(dsu.MessagePorts, []byte{0x04, 0, 0, 0, 0x00})},
		{name: "ports negative count", frame: clientFrame(dsu.MessagePorts, []byte{0xFF, 0xFF, 0xFF, 0xFF})},
		{name: "data too short", frame: clientFrame(dsu.MessageData, []byte{0x00, 0x00})},
		{name: "data too long", frame: clientFrame(dsu.MessageData, make([]byte, 9))},
		{name: "data bad mode", frame: clientFrame(dsu.MessageData, []byte{0x03, 0, 0, 0, 0, 0, 0, 0})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dsu.ParseRequest(tc.frame)
			assert.ErrorIs(t, err, dsu.ErrMalformedMessage)
		})
	}
}

func TestRequestMarshalRoundTrip(t *testing.T) {
	ports := dsu.PortsRequest{Slots: []uint8{0, 1, 2, 3}}
	b, err := ports.MarshalBinary()
	require.NoError(t, err)
	req, err := dsu.ParseRequest(clientFrame(dsu.MessagePorts, b))
	require.NoError(t, err)
	assert.Equal(t, ports, req)

	data := dsu.DataRequest{Mode: dsu.ModeMAC, MAC: [6]byte{1, 2, 3, 4, 5, 6}}
	b, err = data.MarshalBinary()
	require.NoError(t, err)
	req, err = dsu.ParseRequest(clientFrame(dsu.MessageData, b))
	require.NoError(t, err)
	assert.Equal(t, data, req)
}

func TestDataRequestString(t *testing.T) {
	assert.Equal(t, "all", dsu.DataRequest{Mode: dsu.ModeAll}.String())
	assert.Equal(t, "slot=3", dsu.DataRequest{Mode: dsu.ModeSlot, Slot: 3}.String())
	assert.Equal(t, "mac=0A:0B:0C:0D:0E:0F", dsu.DataRequest{Mode: dsu.ModeMAC, MAC: [6]byte{10, 11, 12, 13, 14, 15}}.String())
}

func TestParseMAC(t *testing.T) {
	mac, err := dsu.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, mac)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", dsu.FormatMAC(mac))

	_, err = dsu.ParseMAC("not a mac")
	assert.Error(t, err)
	_, err = dsu.ParseMAC("00:00:5e:00:53:01:02:03")
	assert.Error(t, err)
}

func TestPortInfo(t *testing.T) {
	info := dsu.SlotInfo{
		Slot:       1,
		State:      dsu.StateConnected,
		Model:      dsu.ModelFullGyro,
		Connection: dsu.ConnectionBluetooth,
		MAC:        [6]byte{1, 2, 3, 4, 5, 6},
		Battery:    dsu.BatteryCharged,
	}
	payload := dsu.BuildPortInfo(info)
	assert.Equal(t, []byte{0x01, 0x02, 0x02, 0x02, 1, 2, 3, 4, 5, 6, 0xEF, 0x00}, payload)

	got, err := dsu.ParsePortInfo(payload)
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.True(t, got.Connected())
	assert.Equal(t, "01:02:03:04:05:06", got.MACString())

	_, err = dsu.ParsePortInfo(payload[:5])
	assert.ErrorIs(t, err, dsu.ErrMalformedMessage)
}

func TestEmptySlot(t *testing.T) {
	info := dsu.EmptySlot(3)
	assert.Equal(t, []byte{0x03, 0x00, 0x02, 0x00, 0, 0, 0, 0, 0, 0xFF, 0xEF, 0x00}, dsu.BuildPortInfo(info))
	assert.False(t, info.Connected())
}
