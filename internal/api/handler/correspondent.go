package handler

import (
	"net/http"
	"strconv"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/google/uuid"
)

type CorrespondentHandler struct {
	svc *service.CorrespondentService
}

func NewCorrespondentHandler(svc *service.CorrespondentService) *CorrespondentHandler {
	return &CorrespondentHandler{svc: svc}
}

type createBankRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	CurrencyID string  `json:"currency_id" validate:"required,uuid"`
	MaxLimit   *string `json:"max_limit"`
	MinLimit   *string `json:"min_limit"`
}

type updateLimitsRequest struct {
	MaxLimit *string `json:"max_limit"`
	MinLimit *string `json:"min_limit"`
}

type addBalanceRequest struct {
	Date   string `json:"date" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

func (h *CorrespondentHandler) CreateBank(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req createBankRequest
	if !decodeBody(w, r, &req) {
		return
	}
	maxLimit, ok := parseOptionalDecimal(w, r, "max_limit", req.MaxLimit)
	if !ok {
		return
	}
	minLimit, ok := parseOptionalDecimal(w, r, "min_limit", req.MinLimit)
	if !ok {
		return
	}

	bank, err := h.svc.CreateBank(r.Context(), service.CreateBankInput{
		Name:       req.Name,
		CurrencyID: uuid.MustParse(req.CurrencyID),
		MaxLimit:   maxLimit,
		MinLimit:   minLimit,
	}, actor)
	if err != nil {
		respondServiceError(w, r, err, "create correspondent bank")
		return
	}
	RespondJSON(w, http.StatusCreated, bank)
}

// ListBanks lists active banks; ?all=true includes inactive ones.
func (h *CorrespondentHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	banks, err := h.svc.ListBanks(r.Context(), !all)
	if err != nil {
		respondServiceError(w, r, err, "list correspondent banks")
		return
	}
	if banks == nil {
		banks = []models.CorrespondentBank{}
	}
	RespondJSON(w, http.StatusOK, banks)
}

func (h *CorrespondentHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateLimitsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	maxLimit, ok := parseOptionalDecimal(w, r, "max_limit", req.MaxLimit)
	if !ok {
		return
	}
	minLimit, ok := parseOptionalDecimal(w, r, "min_limit", req.MinLimit)
	if !ok {
		return
	}

	bank, err := h.svc.UpdateLimits(r.Context(), id, maxLimit, minLimit, actor)
	if err != nil {
		respondServiceError(w, r, err, "update correspondent limits")
		return
	}
	RespondJSON(w, http.StatusOK, bank)
}

// AddBalance records the bank's balance. Limit breaches raise alerts; they
// never fail the request.
func (h *CorrespondentHandler) AddBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req addBalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}
	amount, ok := parseDecimal(w, r, "amount", req.Amount)
	if !ok {
		return
	}

	bal, err := h.svc.AddBalance(r.Context(), id, date, amount, actor)
	if err != nil {
		respondServiceError(w, r, err, "add correspondent balance")
		return
	}
	RespondJSON(w, http.StatusCreated, bal)
}

func (h *CorrespondentHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	res, err := h.svc.SweepLimits(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "sweep correspondent limits")
		return
	}
	RespondJSON(w, http.StatusOK, res)
}

func (h *CorrespondentHandler) Limits(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	report, err := h.svc.LimitsReport(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "limits report")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

func (h *CorrespondentHandler) CashCover(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	report, err := h.svc.CashCoverReport(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "cash cover report")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}
