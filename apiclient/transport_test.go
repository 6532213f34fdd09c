package apiclient_test

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Alia5/ds4dsu/apiclient"
	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/internal/server/api/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer accepts one connection, records the request up to and
// including the null terminator and answers with response.
func startTestServer(t *testing.T, response string) (addr string, gotReqLine <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, _ := bufio.NewReader(conn).ReadString('\x00')
		got <- line
		if response != "" {
			_, _ = conn.Write([]byte(response))
		}
	}()
	return ln.Addr().String(), got
}

func TestTransportPayloadEncoding(t *testing.T) {
	type S struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	type testCase struct {
		name         string
		path         string
		params       map[string]string
		payload      any
		expectedLine string
	}

	cases := []testCase{
		{
			name:         "nil payload",
			payload:      nil,
			expectedLine: "echo\x00",
		},
		{
			name:         "empty string payload",
			payload:      "",
			expectedLine: "echo\x00",
		},
		{
			name:         "bytes payload",
			payload:      []byte("rawbytes"),
			expectedLine: "echo rawbytes\x00",
		},
		{
			name:         "string payload with newline",
			payload:      "multi\nline",
			expectedLine: "echo multi\nline\x00",
		},
		{
			name:         "struct payload json marshaled",
			payload:      S{A: 7, B: "zzz"},
			expectedLine: `echo {"a":7,"b":"zzz"}` + "\x00",
		},
		{
			name:         "path params filled and lowercased",
			path:         "Slots/{slot}/Attach",
			params:       map[string]string{"slot": "3"},
			payload:      apitypes.AttachRequest{MAC: "AA:BB:CC:DD:EE:FF", Connection: "usb"},
			expectedLine: `slots/3/attach {"mac":"AA:BB:CC:DD:EE:FF","connection":"usb"}` + "\x00",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addr, got := startTestServer(t, "ok\n")
			path := tc.path
			if path == "" {
				path = "echo"
			}
			out, err := apiclient.NewTransport(addr).Do(path, tc.payload, tc.params)
			require.NoError(t, err)
			assert.Equal(t, "ok", out)

			select {
			case line := <-got:
				assert.Equal(t, tc.expectedLine, line)
			case <-time.After(2 * time.Second):
				t.Fatal("server never saw the request")
			}
		})
	}
}

func TestTransportMultiLineResponse(t *testing.T) {
	resp := "{\n  \"a\": 1,\n  \"b\": 2\n}\n" // multi-line + trailing newline
	addr, _ := startTestServer(t, resp)

	out, err := apiclient.NewTransport(addr).Do("echo", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}", out)
}

func TestTransportDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = apiclient.NewTransport(addr).Do("ping", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial:")
}

func TestEncryptedTransport(t *testing.T) {
	type testCase struct {
		name          string
		password      string
		serverHandler func(t *testing.T, conn net.Conn)
		line          string
		expectedErr   error
	}

	echoHandler := func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)

		key, err := auth.DeriveKey("test123")
		assert.NoError(t, err)

		secureConn, err := auth.Accept(conn, r, key)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				b, _ := json.Marshal(apiErr)
				_, _ = conn.Write(append(b, '\n'))
			}
			return
		}

		line, err := bufio.NewReader(secureConn).ReadString('\x00')
		if err != nil {
			return
		}
		_, err = secureConn.Write([]byte(line))
		assert.NoError(t, err)
	}

	cases := []testCase{
		{
			name:          "success",
			password:      "test123",
			serverHandler: echoHandler,
			line:          "echo hi",
		},
		{
			name:          "wrong password",
			password:      "wrongpass",
			serverHandler: echoHandler,
			expectedErr:   errors.New("401 Unauthorized: invalid password"),
		},
		{
			name:     "bad handshake response",
			password: "test123",
			serverHandler: func(t *testing.T, conn net.Conn) {
				defer conn.Close()
				_, _ = io.ReadFull(conn, make([]byte, len(auth.HandshakeMagic)+2*auth.NonceSize))
				_, _ = conn.Write([]byte("NO\x00" + strings.Repeat("x", 32)))
			},
			expectedErr: errors.New("invalid handshake response"),
		},
		{
			name:     "server closes early",
			password: "test123",
			serverHandler: func(t *testing.T, conn net.Conn) {
				_ = conn.Close()
			},
			expectedErr: errors.New(""),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			defer ln.Close()

			go func() {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				tc.serverHandler(t, conn)
			}()

			client := apiclient.NewTransportWithPassword(ln.Addr().String(), tc.password)
			path, payload, _ := strings.Cut(tc.line, " ")
			out, err := client.Do(path, payload, nil)

			if tc.expectedErr != nil {
				assert.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.line, strings.TrimSuffix(out, "\x00"))
		})
	}
}
