package handler

import (
	"context"
	"net/http"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/google/uuid"
)

// BalanceHandler serves the balance ledger and its maker-checker workflow.
type BalanceHandler struct {
	svc *service.LedgerService
}

func NewBalanceHandler(svc *service.LedgerService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

type createBalanceRequest struct {
	Date       string `json:"date" validate:"required"`
	CurrencyID string `json:"currency_id" validate:"required,uuid"`
	ItemID     string `json:"item_id" validate:"required,uuid"`
	Amount     string `json:"amount" validate:"required"`
	Notes      string `json:"notes" validate:"max=500"`
}

type updateBalanceRequest struct {
	Amount string  `json:"amount" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *BalanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req createBalanceRequest
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

	entry, err := h.svc.CreateEntry(r.Context(), service.CreateEntryInput{
		Date:       date,
		CurrencyID: uuid.MustParse(req.CurrencyID),
		ItemID:     uuid.MustParse(req.ItemID),
		Amount:     amount,
		Notes:      req.Notes,
	}, actor)
	if err != nil {
		respondServiceError(w, r, err, "create balance entry")
		return
	}
	RespondJSON(w, http.StatusCreated, entry)
}

func (h *BalanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	entries, err := h.svc.ListEntries(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "list balance entries")
		return
	}
	if entries == nil {
		entries = []models.BalanceEntry{}
	}
	RespondJSON(w, http.StatusOK, entries)
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "get balance entry")
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}

func (h *BalanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateBalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseDecimal(w, r, "amount", req.Amount)
	if !ok {
		return
	}

	entry, err := h.svc.Update(r.Context(), id, service.UpdateEntryInput{Amount: amount, Notes: req.Notes}, actor)
	if err != nil {
		respondServiceError(w, r, err, "update balance entry")
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}

func (h *BalanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, actor); err != nil {
		respondServiceError(w, r, err, "delete balance entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BalanceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit balance entry", h.svc.Submit)
}

func (h *BalanceHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "authorize balance entry", h.svc.Authorize)
}

func (h *BalanceHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reopen balance entry", h.svc.Reopen)
}

func (h *BalanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.svc.Reject(r.Context(), id, req.Reason, actor)
	if err != nil {
		respondServiceError(w, r, err, "reject balance entry")
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}

type entryTransition func(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.BalanceEntry, error)

func (h *BalanceHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn entryTransition) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entry, err := fn(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, r, err, op)
		return
	}
	RespondJSON(w, http.StatusOK, entry)
}
