package handler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ds4dsu/apiclient"
	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/internal/server/api"
	"github.com/Alia5/ds4dsu/internal/server/api/handler"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
	handlerTest "github.com/Alia5/ds4dsu/internal/testing"
)

func TestSlotDetach(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, s *srvdsu.Server, apiSrv *api.Server)
		slot             string
		expectedResponse string
		expectEmpty      bool
	}{
		{
			name: "detach attached feed",
			setup: func(t *testing.T, s *srvdsu.Server, apiSrv *api.Server) {
				_, err := apiSrv.Attach(1, device.Identity{Address: "AA:BB:CC:DD:EE:FF", Connection: device.ConnectionUSB}, "ds4")
				require.NoError(t, err)
			},
			slot:             "1",
			expectedResponse: `{"slot":1}`,
			expectEmpty:      true,
		},
		{
			name:             "nothing attached",
			slot:             "1",
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 1: no controller attached through the API"}`,
			expectEmpty:      true,
		},
		{
			name: "controller not owned by the API",
			setup: func(t *testing.T, s *srvdsu.Server, apiSrv *api.Server) {
				require.NoError(t, s.RegisterController(0, handlerTest.NewController("11:22:33:44:55:66", device.ConnectionBluetooth)))
			},
			slot:             "0",
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 0: no controller attached through the API"}`,
		},
		{
			name:             "invalid slot",
			slot:             "-1",
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid slot: strconv.ParseUint: parsing \"-1\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, srv, apiSrv := handlerTest.StartAPIServer(t, srvdsu.ServerConfig{}, api.ServerConfig{DeviceHandlerConnectTimeout: time.Minute},
				func(r *api.Router, s *srvdsu.Server, apiSrv *api.Server) {
					r.Register("slots/{slot}/detach", handler.SlotDetach(apiSrv))
				})
			if tt.setup != nil {
				tt.setup(t, srv, apiSrv)
			}

			c := apiclient.NewTransport(addr)
			line, err := c.Do("slots/{slot}/detach", nil, map[string]string{"slot": tt.slot})
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)

			if tt.expectEmpty {
				assert.False(t, srv.SlotInfo(1).Connected())
			}
		})
	}
}
