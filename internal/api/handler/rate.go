package handler

import (
	"net/http"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/google/uuid"
)

type RateHandler struct {
	svc *service.ExchangeRateService
}

func NewRateHandler(svc *service.ExchangeRateService) *RateHandler {
	return &RateHandler{svc: svc}
}

type recordRateRequest struct {
	CurrencyID  string `json:"currency_id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required"`
	BuyingRate  string `json:"buying_rate" validate:"required"`
	SellingRate string `json:"selling_rate" validate:"required"`
}

func (h *RateHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req recordRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}
	buying, ok := parseDecimal(w, r, "buying_rate", req.BuyingRate)
	if !ok {
		return
	}
	selling, ok := parseDecimal(w, r, "selling_rate", req.SellingRate)
	if !ok {
		return
	}

	rate, err := h.svc.RecordRate(r.Context(), service.RecordRateInput{
		CurrencyID:  uuid.MustParse(req.CurrencyID),
		Date:        date,
		BuyingRate:  buying,
		SellingRate: selling,
	}, actor)
	if err != nil {
		respondServiceError(w, r, err, "record rate")
		return
	}
	RespondJSON(w, http.StatusCreated, rate)
}

func (h *RateHandler) Mid(w http.ResponseWriter, r *http.Request) {
	currencyID, err := uuid.Parse(r.URL.Query().Get("currency_id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-currency_id", "Invalid currency_id")
		return
	}
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	mid, found, err := h.svc.MidRate(r.Context(), currencyID, date)
	if err != nil {
		respondServiceError(w, r, err, "get mid rate")
		return
	}
	if !found {
		RespondError(w, r, http.StatusNotFound, "rate/not-published", "no rate published for that date")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"currency_id": currencyID.String(),
		"date":        date.Format(domain.DateLayout),
		"mid_rate":    mid.String(),
	})
}
