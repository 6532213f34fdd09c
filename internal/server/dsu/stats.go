package dsu

import "sync/atomic"

// Stats is a snapshot of the server counters.
type Stats struct {
	Received   uint64 `json:"received"`
	Malformed  uint64 `json:"malformed"`
	Unknown    uint64 `json:"unknown"`
	PortsSent  uint64 `json:"portsSent"`
	DataSent   uint64 `json:"dataSent"`
	SendErrors uint64 `json:"sendErrors"`
	Evicted    uint64 `json:"evicted"`
}

type stats struct {
	received   atomic.Uint64
	malformed  atomic.Uint64
	unknown    atomic.Uint64
	portsSent  atomic.Uint64
	dataSent   atomic.Uint64
	sendErrors atomic.Uint64
	evicted    atomic.Uint64
}

// Stats returns the counters accumulated since the server was created.
func (s *Server) Stats() Stats {
	return Stats{
		Received:   s.stats.received.Load(),
		Malformed:  s.stats.malformed.Load(),
		Unknown:    s.stats.unknown.Load(),
		PortsSent:  s.stats.portsSent.Load(),
		DataSent:   s.stats.dataSent.Load(),
		SendErrors: s.stats.sendErrors.Load(),
		Evicted:    s.stats.evicted.Load(),
	}
}
