package handler

import (
	"log/slog"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/internal/server/api"
)

// Ping answers with the server identity and version.
func Ping(version string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		return writeJSON(res, apitypes.PingResponse{Server: "ds4dsu", Version: version})
	}
}
