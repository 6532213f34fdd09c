package handler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/dsu"
	"github.com/Alia5/ds4dsu/internal/server/api"
	apierror "github.com/Alia5/ds4dsu/internal/server/api/error"
)

func slotParam(req *api.Request) (uint8, error) {
	s, ok := req.Params["slot"]
	if !ok {
		return 0, apierror.ErrBadRequest("missing slot parameter")
	}
	slot, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, apierror.ErrBadRequest(fmt.Sprintf("invalid slot: %v", err))
	}
	return uint8(slot), nil
}

func slotView(apiSrv *api.Server, slot uint8) apitypes.Slot {
	info := apiSrv.DSU().SlotInfo(slot)
	out := apitypes.Slot{
		Slot:       slot,
		State:      info.State.String(),
		Connection: info.Connection.String(),
		MAC:        dsu.FormatMAC(info.MAC),
		Sequence:   apiSrv.DSU().Slots().Sequence(slot),
	}
	if f := apiSrv.Feed(slot); f != nil {
		out.Format = f.Format()
	}
	return out
}

func writeJSON(res *api.Response, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
	}
	res.JSON = string(b)
	return nil
}
