package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/dsu"
	"github.com/Alia5/ds4dsu/internal/server/api"
	apierror "github.com/Alia5/ds4dsu/internal/server/api/error"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

// SlotAttach returns a handler that attaches a feed controller to an empty slot.
// The controller must open slots/{slot}/stream before the connect timeout.
func SlotAttach(apiSrv *api.Server) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		slot, err := slotParam(req)
		if err != nil {
			return err
		}
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing payload")
		}
		var body apitypes.AttachRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
		}

		mac, err := dsu.ParseMAC(body.MAC)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid mac: %v", err))
		}
		conn, ok := device.ParseConnection(strings.ToLower(body.Connection))
		if !ok {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid connection %q (want usb or bluetooth)", body.Connection))
		}

		id := device.Identity{Address: dsu.FormatMAC(mac), Connection: conn}
		if _, err := apiSrv.Attach(slot, id, strings.ToLower(body.Format)); err != nil {
			switch {
			case errors.Is(err, srvdsu.ErrSlotOutOfRange):
				return apierror.ErrNotFound(fmt.Sprintf("slot %d not found", slot))
			case errors.Is(err, srvdsu.ErrSlotOccupied):
				return apierror.ErrConflict(fmt.Sprintf("slot %d is occupied", slot))
			case errors.Is(err, api.ErrUnknownFormat):
				return apierror.ErrBadRequest(err.Error())
			default:
				return apierror.ErrInternal(fmt.Sprintf("failed to attach controller: %v", err))
			}
		}
		logger.Info("attached controller", "slot", slot, "address", id.Address)
		return writeJSON(res, slotView(apiSrv, slot))
	}
}
