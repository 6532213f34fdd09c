package handler

import (
	"log/slog"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/internal/server/api"
	apierror "github.com/Alia5/ds4dsu/internal/server/api/error"
)

// SlotDetach returns a handler that removes the API-attached controller of a slot.
func SlotDetach(apiSrv *api.Server) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		slot, err := slotParam(req)
		if err != nil {
			return err
		}
		if err := apiSrv.Detach(slot); err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		logger.Info("detached controller", "slot", slot)
		return writeJSON(res, apitypes.DetachResponse{Slot: slot})
	}
}
