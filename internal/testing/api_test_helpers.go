package testing

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Alia5/ds4dsu/internal/log"
	"github.com/Alia5/ds4dsu/internal/server/api"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

// StartAPIServer starts a DSU server and an API server on free loopback ports
// and calls register to allow the caller to register the handlers needed for
// the test. Zero fields of dsuCfg and apiCfg keep their test defaults.
// Everything is shut down when the test ends.
func StartAPIServer(
	t *testing.T,
	dsuCfg srvdsu.ServerConfig,
	apiCfg api.ServerConfig,
	register func(r *api.Router, s *srvdsu.Server, apiSrv *api.Server),
) (addr string, srv *srvdsu.Server, apiSrv *api.Server) {
	t.Helper()
	if dsuCfg.Addr == "" {
		dsuCfg.Addr = "127.0.0.1:0"
	}
	srv = srvdsu.New(dsuCfg, slog.Default(), log.NewRaw(nil))
	if err := srv.Listen(); err != nil {
		t.Fatalf("dsu listen failed: %v", err)
	}
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = srv.Serve()
	}()

	if apiCfg.Addr == "" {
		apiCfg.Addr = "127.0.0.1:0"
	}
	apiSrv, err := api.New(srv, apiCfg.Addr, apiCfg, slog.Default())
	if err != nil {
		t.Fatalf("api create failed: %v", err)
	}
	if register != nil {
		register(apiSrv.Router(), srv, apiSrv)
	}
	if err := apiSrv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}

	t.Cleanup(func() {
		apiSrv.Close()
		_ = srv.Close()
		<-served
	})
	return apiSrv.Addr().String(), srv, apiSrv
}

// ExecCmd dials the API server, sends cmd and reads the full response.
// The command should not include a trailing newline. Returns the response
// without the trailing newline.
func ExecCmd(t *testing.T, addr string, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))

	_, _ = fmt.Fprintf(c, "%s\x00", cmd)

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read failed: %v", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}
