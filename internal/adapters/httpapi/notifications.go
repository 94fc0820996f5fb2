package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/httpjson"
)

type NotificationsHandler struct {
	notifications *app.NotificationService
}

func NewNotificationsHandler(n *app.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: n}
}

func (h *NotificationsHandler) Routes(r chi.Router) {
	r.Get("/notifications", h.list)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, err := h.notifications.List(r.Context(), q.Get("show"), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}
