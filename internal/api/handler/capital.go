package handler

import (
	"net/http"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/service"
)

type CapitalHandler struct {
	svc *service.CapitalService
}

func NewCapitalHandler(svc *service.CapitalService) *CapitalHandler {
	return &CapitalHandler{svc: svc}
}

type upsertCapitalRequest struct {
	Amount        string `json:"amount" validate:"required"`
	EffectiveDate string `json:"effective_date" validate:"required"`
}

// ForDate returns the capital in force on ?date=, or today.
func (h *CapitalHandler) ForDate(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	amount, err := h.svc.CapitalForDate(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "get capital")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"date":   date.Format(domain.DateLayout),
		"amount": amount.String(),
	})
}

func (h *CapitalHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.CapitalHistory(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "get capital history")
		return
	}
	if records == nil {
		records = []models.CapitalRecord{}
	}
	RespondJSON(w, http.StatusOK, records)
}

func (h *CapitalHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req upsertCapitalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseDecimal(w, r, "amount", req.Amount)
	if !ok {
		return
	}
	effective, ok := parseDate(w, r, req.EffectiveDate)
	if !ok {
		return
	}
	rec, err := h.svc.UpsertCapital(r.Context(), amount, effective, actor)
	if err != nil {
		respondServiceError(w, r, err, "upsert capital")
		return
	}
	RespondJSON(w, http.StatusOK, rec)
}
