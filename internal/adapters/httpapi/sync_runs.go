package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
)

// SyncRunsHandler expose les passes asynchrones.
type SyncRunsHandler struct {
	jobs *app.JobService
}

func NewSyncRunsHandler(jobs *app.JobService) *SyncRunsHandler {
	return &SyncRunsHandler{jobs: jobs}
}

func (h *SyncRunsHandler) Routes(r chi.Router) {
	r.Post("/sync", h.create)
	r.Route("/sync/runs", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type syncRequest struct {
	DryRun      bool     `json:"dryRun"`
	ShowIDs     []string `json:"showIds,omitempty"`
	OngoingOnly *bool    `json:"ongoingOnly,omitempty"`
}

func (req syncRequest) options() app.PassOptions {
	opts := app.PassOptions{DryRun: req.DryRun, ShowIDs: req.ShowIDs, OngoingOnly: true}
	if req.OngoingOnly != nil {
		opts.OngoingOnly = *req.OngoingOnly
	}
	return opts
}

// decodeOptional accepte un corps vide.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *SyncRunsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeOptional(r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	run, err := h.jobs.Enqueue(r.Context(), req.options())
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, run)
}

func (h *SyncRunsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if st := domain.JobState(q.Get("state")); st != "" && !st.Valid() {
		httpjson.WriteError(w, http.StatusBadRequest, "unknown state")
		return
	}
	if t := q.Get("type"); t != "" && !domain.IsSyncJobType(t) {
		httpjson.WriteError(w, http.StatusBadRequest, "unknown run type")
		return
	}
	runs, err := h.jobs.List(r.Context(), app.RunFilter{
		Type:  q.Get("type"),
		State: domain.JobState(q.Get("state")),
		Limit: limit,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, runs)
}

func (h *SyncRunsHandler) get(w http.ResponseWriter, r *http.Request) {
	run, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, run)
}

func (h *SyncRunsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	run, err := h.jobs.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, run)
}
