package handler

import (
	"log/slog"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/internal/server/api"
)

// SlotsList returns a handler that describes every DSU slot.
// Error logging is centralized in the API server.
func SlotsList(apiSrv *api.Server) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		n := apiSrv.DSU().Slots().Len()
		out := apitypes.SlotsListResponse{Slots: make([]apitypes.Slot, 0, n)}
		for i := range n {
			out.Slots = append(out.Slots, slotView(apiSrv, uint8(i)))
		}
		return writeJSON(res, out)
	}
}
