// Package dsu runs the DSU UDP server: it answers port info requests,
// keeps track of subscribed clients and broadcasts controller reports to them.
package dsu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/dsu"
	"github.com/Alia5/ds4dsu/internal/log"
	"github.com/Alia5/ds4dsu/internal/util"
)

// ErrBind is returned when the UDP socket cannot be bound.
var ErrBind = errors.New("dsu: bind failed")

// Largest datagram we accept; requests are far smaller.
const maxDatagramSize = 1024

type Server struct {
	config    *ServerConfig
	logger    *slog.Logger
	rawLogger log.RawLogger
	registry  *Registry
	slots     *SlotTable
	opts      dsu.ReportOptions
	now       func() time.Time
	stats     stats

	conn      *net.UDPConn
	connMu    sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the wall clock used for client staleness and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(config ServerConfig, logger *slog.Logger, rawLogger log.RawLogger, opts ...Option) *Server {
	s := &Server{
		config:    &config,
		logger:    logger,
		rawLogger: rawLogger,
		opts: dsu.ReportOptions{
			RemapButtons: config.RemapButtons,
			SendTouch:    !config.NoTouch,
		},
		now:   time.Now,
		ready: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.registry = NewRegistry(config.clientTimeout(), func() time.Time { return s.now() })
	s.slots = NewSlotTable(config.slots())
	if s.rawLogger == nil {
		s.rawLogger = log.NewRaw(nil)
	}
	return s
}

// Listen binds the UDP socket. Errors wrap ErrBind.
func (s *Server) Listen() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return fmt.Errorf("%w: already listening on %s", ErrBind, s.conn.LocalAddr())
	}
	var lc net.ListenConfig
	if s.config.ReuseAddr {
		lc.Control = util.ReuseAddrControl
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBind, err)
	}
	s.conn = pc.(*net.UDPConn)
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("DSU server listening", "addr", s.conn.LocalAddr().String())
	return nil
}

// ListenAndServe binds the socket and runs the receive loop until Close.
// A bind failure is returned before anything is served.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve runs the receive loop on a socket bound with Listen.
func (s *Server) Serve() error {
	conn := s.udpConn()
	if conn == nil {
		return fmt.Errorf("%w: not listening", ErrBind)
	}
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("DSU server stopped")
				return nil
			}
			s.logger.Error("DSU read error", "error", err)
			return err
		}
		s.handleDatagram(buf[:n], addr)
	}
}

// Ready returns a channel that is closed once the socket is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	conn := s.udpConn()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

// Close closes the socket, which ends Serve.
func (s *Server) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Server) udpConn() *net.UDPConn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// Registry exposes the client registry.
func (s *Server) Registry() *Registry { return s.registry }

// Slots exposes the slot table.
func (s *Server) Slots() *SlotTable { return s.slots }

func (s *Server) handleDatagram(data []byte, addr netip.AddrPort) {
	s.stats.received.Add(1)
	s.rawLogger.Log(true, addr.String(), data)

	req, err := dsu.ParseRequest(data)
	if err != nil {
		s.stats.malformed.Add(1)
		s.logger.Debug("dropping malformed datagram", "remote", addr.String(), "error", err)
		return
	}

	switch r := req.(type) {
	case dsu.VersionRequest:
		// Clients do not wait for an answer.
	case dsu.PortsRequest:
		s.handlePorts(r, addr)
	case dsu.DataRequest:
		if s.registry.Register(addr, r) {
			s.logger.Info("Client connected", "remote", addr.String(), "filter", r.String())
		}
	case dsu.UnknownRequest:
		s.stats.unknown.Add(1)
		s.logger.Warn("dropping datagram", "remote", addr.String(), "error", fmt.Errorf("%w: 0x%08x", dsu.ErrUnknownMessageType, uint32(r.Type)))
	}
}

func (s *Server) handlePorts(r dsu.PortsRequest, addr netip.AddrPort) {
	for _, index := range r.Slots {
		if int(index) >= s.slots.Len() {
			continue
		}
		frame := dsu.Encode(dsu.MessagePorts, dsu.BuildPortInfo(s.slots.Info(index)))
		if err := s.send(frame, addr); err != nil {
			s.logger.Warn("failed to send port info", "remote", addr.String(), "slot", index, "error", err)
			continue
		}
		s.stats.portsSent.Add(1)
	}
}

func (s *Server) send(frame []byte, addr netip.AddrPort) error {
	conn := s.udpConn()
	if conn == nil {
		return net.ErrClosed
	}
	s.rawLogger.Log(false, addr.String(), frame)
	_, err := conn.WriteToUDPAddrPort(frame, addr)
	if err != nil {
		s.stats.sendErrors.Add(1)
	}
	return err
}

// RegisterController puts ctrl into the slot, replacing whatever was there,
// and restarts the slot's sequence.
func (s *Server) RegisterController(slot uint8, ctrl device.Controller) error {
	if err := s.slots.Register(slot, ctrl); err != nil {
		return err
	}
	s.logControllerAttached(slot, ctrl)
	return nil
}

// AttachController is RegisterController for an empty slot. It fails with
// ErrSlotOccupied if another controller holds the slot.
func (s *Server) AttachController(slot uint8, ctrl device.Controller) error {
	if err := s.slots.Claim(slot, ctrl); err != nil {
		return err
	}
	s.logControllerAttached(slot, ctrl)
	return nil
}

func (s *Server) logControllerAttached(slot uint8, ctrl device.Controller) {
	id := ctrl.Identity()
	s.logger.Info("Controller attached", "slot", slot, "address", id.Address, "connection", id.Connection.String())
}

// UnregisterController empties the slot if ctrl still occupies it.
func (s *Server) UnregisterController(slot uint8, ctrl device.Controller) bool {
	if !s.slots.Unregister(slot, ctrl) {
		return false
	}
	s.logger.Info("Controller detached", "slot", slot)
	return true
}

// SlotInfo returns the current description of a slot.
func (s *Server) SlotInfo(slot uint8) dsu.SlotInfo { return s.slots.Info(slot) }

// Report broadcasts one controller report to every live client whose filter
// matches the slot. Reports from a controller that no longer occupies the
// slot are ignored. It returns the number of datagrams sent.
func (s *Server) Report(slot uint8, ctrl device.Controller, r *device.Report) int {
	if s.registry.Len() == 0 {
		return 0
	}
	info, seq, ok := s.slots.Next(slot, ctrl)
	if !ok {
		return 0
	}

	subs, evicted := s.registry.Subscribers(info)
	for _, reg := range evicted {
		s.stats.evicted.Add(1)
		s.logger.Info("Client disconnected", "remote", reg.Addr.String(), "filter", reg.Filter.String())
	}
	if len(subs) == 0 {
		return 0
	}

	payload := dsu.BuildPadData(info, seq, r, s.opts, s.now())
	sent := 0
	for _, reg := range subs {
		frame := dsu.Encode(dsu.MessageData, payload)
		if err := s.send(frame, reg.Addr); err != nil {
			s.logger.Warn("failed to send pad data", "remote", reg.Addr.String(), "slot", slot, "error", err)
			continue
		}
		sent++
	}
	s.stats.dataSent.Add(uint64(sent))
	return sent
}
