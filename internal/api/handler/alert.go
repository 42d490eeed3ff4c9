package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/service"
)

type AlertHandler struct {
	svc *service.AlertService
}

func NewAlertHandler(svc *service.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// Active lists unresolved alerts, optionally narrowed to ?date=.
func (h *AlertHandler) Active(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, ok := parseDate(w, r, raw)
		if !ok {
			return
		}
		date = &d
	}
	alerts, err := h.svc.ActiveAlerts(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "list alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	RespondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	alert, err := h.svc.Resolve(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, r, err, "resolve alert")
		return
	}
	RespondJSON(w, http.StatusOK, alert)
}
