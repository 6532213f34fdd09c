package handler

import (
	"log/slog"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/dsu"
	"github.com/Alia5/ds4dsu/internal/server/api"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

// ClientsList returns a handler listing the DSU clients currently subscribed.
// Stale clients are listed until the next broadcast evicts them.
func ClientsList(s *srvdsu.Server) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		regs := s.Registry().List()
		out := apitypes.ClientsListResponse{Clients: make([]apitypes.Client, 0, len(regs))}
		for _, reg := range regs {
			c := apitypes.Client{
				Addr:     reg.Addr.String(),
				Mode:     reg.Filter.Mode.String(),
				LastSeen: reg.LastSeen,
			}
			switch reg.Filter.Mode {
			case dsu.ModeSlot:
				slot := reg.Filter.Slot
				c.Slot = &slot
			case dsu.ModeMAC:
				c.MAC = dsu.FormatMAC(reg.Filter.MAC)
			}
			out.Clients = append(out.Clients, c)
		}
		return writeJSON(res, out)
	}
}
