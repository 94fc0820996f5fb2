package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
)

type ShowsHandler struct {
	catalog *app.CatalogService
	jobs    *app.JobService
}

func NewShowsHandler(catalog *app.CatalogService, jobs *app.JobService) *ShowsHandler {
	return &ShowsHandler{catalog: catalog, jobs: jobs}
}

func (h *ShowsHandler) Routes(r chi.Router) {
	r.Route("/shows", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/status", h.status)
		if h.jobs != nil {
			r.Post("/{id}/sync", h.sync)
		}
	})
}

func (h *ShowsHandler) list(w http.ResponseWriter, r *http.Request) {
	ongoing := r.URL.Query().Get("ongoing") == "true"
	shows, err := h.catalog.List(r.Context(), ongoing)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, shows)
}

func (h *ShowsHandler) get(w http.ResponseWriter, r *http.Request) {
	sh, err := h.catalog.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sh)
}

func (h *ShowsHandler) status(w http.ResponseWriter, r *http.Request) {
	ov, err := h.catalog.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ov)
}

type showSyncRequest struct {
	DryRun bool `json:"dryRun"`
}

// sync met en file une passe limitée à cette série (qu'elle soit en cours ou non).
func (h *ShowsHandler) sync(w http.ResponseWriter, r *http.Request) {
	var req showSyncRequest
	if err := decodeOptional(r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sh, err := h.catalog.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	run, err := h.jobs.Enqueue(r.Context(), app.PassOptions{DryRun: req.DryRun, ShowIDs: []string{sh.ID}})
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, run)
}
