package apiclient_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Alia5/ds4dsu/apiclient"
	"github.com/Alia5/ds4dsu/device/dualshock4"
	"github.com/Alia5/ds4dsu/dsu"
	"github.com/Alia5/ds4dsu/internal/server/api"
	"github.com/Alia5/ds4dsu/internal/server/api/handler"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
	th "github.com/Alia5/ds4dsu/internal/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStream_NotSupportedWithMockTransport(t *testing.T) {
	c := testClient(map[string]string{}, nil)
	_, err := c.OpenStream(context.Background(), 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported with mock transport")
}

func TestAttachAndConnect(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(responses map[string]string) error
		wantSlot      bool
		wantErrSubstr string
	}{
		{
			name: "success parse then stream error",
			setup: func(responses map[string]string) error {
				responses["slots/{slot}/attach"] = `{"slot":0,"state":"connected","connection":"usb","mac":"AA:BB:CC:DD:EE:FF","sequence":0,"format":"ds4"}`
				return nil
			},
			wantSlot:      true,
			wantErrSubstr: "not supported with mock transport",
		},
		{
			name:          "transport dial error",
			setup:         func(responses map[string]string) error { return errors.New("dial fail") },
			wantErrSubstr: "dial fail",
		},
		{
			name: "api error response",
			setup: func(responses map[string]string) error {
				responses["slots/{slot}/attach"] = `{"status":404,"title":"Not Found","detail":"slot 9 not found"}`
				return nil
			},
			wantErrSubstr: "slot 9 not found",
		},
		{
			name: "strict JSON decode error (extra field)",
			setup: func(responses map[string]string) error {
				responses["slots/{slot}/attach"] = `{"slot":0,"state":"connected","connection":"usb","mac":"AA:BB:CC:DD:EE:FF","sequence":0,"extra":true}`
				return nil
			},
			wantErrSubstr: "decode:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := map[string]string{}
			errInject := error(nil)
			if e := tt.setup(responses); e != nil {
				errInject = e
			}
			c := testClient(responses, errInject)
			stream, slot, err := c.AttachAndConnect(context.Background(), 0, usbPad, "")
			assert.Nil(t, stream)
			if tt.wantSlot {
				require.NotNil(t, slot, "slot response should be parsed")
				assert.Equal(t, "AA:BB:CC:DD:EE:FF", slot.MAC)
			} else {
				assert.Nil(t, slot)
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrSubstr)
		})
	}
}

func startFeedAPI(t *testing.T) (addr string, srv *srvdsu.Server) {
	t.Helper()
	addr, srv, _ = th.StartAPIServer(t, srvdsu.ServerConfig{}, api.ServerConfig{DeviceHandlerConnectTimeout: time.Second},
		func(r *api.Router, s *srvdsu.Server, apiSrv *api.Server) {
			r.Register("slots/{slot}/attach", handler.SlotAttach(apiSrv))
			r.RegisterStream("slots/{slot}/stream", api.FeedStreamHandler())
		})
	return addr, srv
}

func TestFeedStream_WriteBinary(t *testing.T) {
	addr, srv := startFeedAPI(t)

	dc := th.DialDSU(t, srv.Addr())
	dc.Subscribe(dsu.DataRequest{Mode: dsu.ModeAll})
	require.Eventually(t, func() bool { return srv.Registry().Len() == 1 }, time.Second, 5*time.Millisecond)

	stream, _, err := apiclient.New(addr).AttachAndConnect(context.Background(), 0, usbPad, "")
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, uint8(0), stream.Slot)

	state := dualshock4.NeutralInputState()
	state.Buttons = dualshock4.ButtonCross
	state.R2 = 200
	require.NoError(t, stream.WriteBinary(&state))

	frame := dc.Read(time.Second)
	require.NotNil(t, frame)
	_, payload, err := dsu.DecodeHeader(frame)
	require.NoError(t, err)
	p, err := dsu.ParsePadData(payload)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), p.Cross)
	assert.Equal(t, uint8(200), p.R2)
}

func TestFeedStream_Close(t *testing.T) {
	addr, _ := startFeedAPI(t)

	stream, _, err := apiclient.New(addr).AttachAndConnect(context.Background(), 1, usbPad, "")
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close(), "second close is a no-op")

	_, err = stream.Write([]byte{0x01})
	assert.ErrorIs(t, err, apiclient.ErrStreamClosed)
	assert.ErrorIs(t, stream.WriteBinary(&dualshock4.InputState{}), apiclient.ErrStreamClosed)
}

func TestOpenStream_UnexpectedAck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("hello\n"))
	}()

	_, err = apiclient.New(ln.Addr().String()).OpenStream(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected stream response")
}
