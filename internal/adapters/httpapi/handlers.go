package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/probe"
)

const defaultRequestTimeout = 30 * time.Second

type healthResponse struct {
	Status string                `json:"status"`
	CDN    *probe.HealthSnapshot `json:"cdn,omitempty"`
}

// handleHealth renvoie "degraded" quand le CDN ne répond plus normalement
// (erreurs réseau ou 5xx consécutives), pas quand les épisodes sont simplement absents.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.deps.Health != nil {
		snap := s.deps.Health.Snapshot()
		resp.CDN = &snap
		if snap.Degraded {
			resp.Status = "degraded"
		}
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// writeErr traduit une erreur applicative en statut HTTP.
func writeErr(w http.ResponseWriter, err error) {
	var coded *app.CodedError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ports.ErrConflict):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &coded) && coded.Code == app.CodeInvalidParams:
		httpjson.WriteCodedError(w, http.StatusBadRequest, coded.Code, coded.Error())
	case errors.As(err, &coded):
		httpjson.WriteCodedError(w, http.StatusInternalServerError, coded.Code, coded.Error())
	default:
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
