package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
)

const maxSettingsBody = 16 << 10

// SettingsHandler expose les réglages de synchro. PUT accepte un document
// partiel: les champs absents gardent leur valeur courante. L'application
// à chaud (limiter, débit des sondes, workers) passe par SettingsService.OnChange.
type SettingsHandler struct {
	settings *app.SettingsService
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Routes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.put)
	})
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	merged, err := h.settings.Get(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&merged); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid settings: "+err.Error())
		return
	}

	updated, err := h.settings.Put(r.Context(), merged)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
