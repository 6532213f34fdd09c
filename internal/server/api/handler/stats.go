package handler

import (
	"log/slog"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/internal/server/api"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
)

// Stats returns a handler reporting the DSU server counters.
func Stats(s *srvdsu.Server) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := s.Stats()
		return writeJSON(res, apitypes.StatsResponse{
			Received:   st.Received,
			Malformed:  st.Malformed,
			Unknown:    st.Unknown,
			PortsSent:  st.PortsSent,
			DataSent:   st.DataSent,
			SendErrors: st.SendErrors,
			Evicted:    st.Evicted,
			Clients:    s.Registry().Len(),
		})
	}
}

// FormatsList returns a handler listing the registered feed formats.
func FormatsList() api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		return writeJSON(res, apitypes.FormatsListResponse{Formats: api.ListFormats()})
	}
}
