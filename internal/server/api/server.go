// Package api implements the feed API: a small TCP protocol through which
// controller drivers attach controllers to DSU slots and stream their reports.
//
// Request framing is `<path>[ SP <payload>]\x00`; the server answers with one
// JSON line and closes the connection. Stream paths keep the connection open
// and consume fixed-size frames instead.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Alia5/ds4dsu/internal/server/api/auth"
	apierror "github.com/Alia5/ds4dsu/internal/server/api/error"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

// Server accepts feed API connections for one DSU server.
type Server struct {
	dsu    *srvdsu.Server
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config ServerConfig
	key    []byte

	feeds   map[uint8]*Feed
	feedsMu sync.Mutex
}

// New creates a new API server bound to a DSU server. A non-empty
// config.Password enables the handshake.
func New(s *srvdsu.Server, addr string, config ServerConfig, logger *slog.Logger) (*Server, error) {
	a := &Server{
		dsu:    s,
		addr:   addr,
		logger: logger,
		config: config,
		router: NewRouter(),
		feeds:  make(map[uint8]*Feed),
	}
	if config.Password != "" {
		key, err := auth.DeriveKey(config.Password)
		if err != nil {
			return nil, fmt.Errorf("derive API key: %w", err)
		}
		a.key = key
	}
	return a, nil
}

// Router returns the router used by the API server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// DSU returns the underlying DSU server.
func (a *Server) DSU() *srvdsu.Server { return a.dsu }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Addr returns the listen address, or nil before Start.
func (a *Server) Addr() net.Addr {
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Start listens on the configured address and serves incoming API commands.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("API listening", "addr", ln.Addr().String(), "auth", a.key != nil)
	go a.serve()
	return nil
}

// Close stops the API server and detaches every API-attached controller.
func (a *Server) Close() {
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.detachAll()
}

func (a *Server) serve() {
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("API server stopped")
				return
			}
			a.logger.Error("API accept error", "error", err)
			return
		}
		go a.handleConn(c)
	}
}

func (a *Server) writeError(w io.Writer, err error) {
	problemJSON, _ := json.Marshal(apierror.WrapError(err))
	fmt.Fprintf(w, "%s\n", problemJSON)
}

func (a *Server) writeOK(w io.Writer, rest string) {
	fmt.Fprintf(w, "%s\n", rest)
}

// bufferedConn reads through the bufio.Reader that already holds the start of
// the stream.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func isLoopback(addr net.Addr) bool {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.IsLoopback()
	}
	return false
}

// secure performs the optional handshake and returns the connection to use
// from here on.
func (a *Server) secure(conn net.Conn, r *bufio.Reader) (net.Conn, *bufio.Reader, error) {
	isAuth, err := auth.IsAuthHandshake(r)
	if err != nil {
		return nil, nil, err
	}
	if !isAuth {
		if a.config.RequireAuth || !isLoopback(conn.RemoteAddr()) {
			return nil, nil, apierror.ErrUnauthorized("authentication required")
		}
		return conn, r, nil
	}
	if a.key == nil {
		return nil, nil, apierror.ErrUnauthorized("authentication is not configured")
	}
	sc, err := auth.Accept(conn, r, a.key)
	if err != nil {
		return nil, nil, err
	}
	return sc, bufio.NewReader(sc), nil
}

func splitRequest(req string) (path, payload string) {
	i := strings.IndexFunc(req, unicode.IsSpace)
	if i < 0 {
		return req, ""
	}
	return req[:i], req[i+1:]
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())
	if a.config.ConnectionTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(a.config.ConnectionTimeout))
	}

	c, r, err := a.secure(conn, bufio.NewReader(conn))
	if err != nil {
		if errors.Is(err, io.EOF) {
			connLogger.Debug("api connection closed before request")
			return
		}
		connLogger.Warn("api handshake failed", "error", err)
		a.writeError(conn, err)
		return
	}

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if errors.Is(err, io.EOF) {
			connLogger.Error("api incomplete request (no null terminator)")
		} else {
			connLogger.Error("read api data", "error", err)
		}
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	path, payload := splitRequest(strings.TrimSuffix(reqData, "\x00"))
	if path == "" {
		connLogger.Error("api empty path")
		a.writeError(c, apierror.ErrBadRequest("empty path"))
		return
	}
	path = strings.ToLower(path)
	connLogger.Debug("api cmd", "path", path)

	if h, params := a.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("api handler error", "path", path, "error", err)
			a.writeError(c, err)
			return
		}
		connLogger.Debug("api handler success", "path", path)
		a.writeOK(c, res.JSON)
		return
	}

	if sh, params := a.router.MatchStream(path); sh != nil {
		a.handleStream(bufferedConn{Conn: c, r: r}, sh, params, connLogger)
		return
	}

	connLogger.Error("api unknown path", "path", path)
	a.writeError(c, apierror.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}

func (a *Server) handleStream(conn net.Conn, sh StreamHandlerFunc, params map[string]string, logger *slog.Logger) {
	slot, err := strconv.ParseUint(params["slot"], 10, 8)
	if err != nil {
		a.writeError(conn, apierror.ErrBadRequest(fmt.Sprintf("invalid slot: %v", err)))
		return
	}
	feed := a.Feed(uint8(slot))
	if feed == nil {
		a.writeError(conn, apierror.ErrNotFound(fmt.Sprintf("no controller attached to slot %d", slot)))
		return
	}
	if err := feed.beginStream(); err != nil {
		if errors.Is(err, ErrStreamActive) {
			a.writeError(conn, apierror.ErrConflict(fmt.Sprintf("slot %d: %v", slot, err)))
		} else {
			a.writeError(conn, apierror.ErrNotFound(fmt.Sprintf("slot %d: %v", slot, err)))
		}
		return
	}

	// An empty line acknowledges the stream; errors above are problem+json.
	a.writeOK(conn, "")

	logger = logger.With("slot", slot, "format", feed.Format())
	logger.Info("api stream begin")
	if err := sh(conn, feed, logger); err != nil {
		logger.Error("api stream handler error", "error", err)
	}
	logger.Info("api stream end")
	feed.endStream()
}
