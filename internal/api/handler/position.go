package handler

import (
	"net/http"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/service"
)

type PositionHandler struct {
	svc *service.PositionService
}

func NewPositionHandler(svc *service.PositionService) *PositionHandler {
	return &PositionHandler{svc: svc}
}

func (h *PositionHandler) Totals(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	totals, err := h.svc.GetTotals(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "get totals")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"date":       date.Format(domain.DateLayout),
		"currencies": totals,
	})
}

func (h *PositionHandler) Position(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	report, err := h.svc.GetPosition(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "get position")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}
