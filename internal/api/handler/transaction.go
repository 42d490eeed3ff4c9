package handler

import (
	"context"
	"net/http"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	svc *service.TransactionService
}

func NewTransactionHandler(svc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

type createTransactionRequest struct {
	Date       string `json:"date" validate:"required"`
	CurrencyID string `json:"currency_id" validate:"required,uuid"`
	Type       string `json:"type" validate:"required,oneof=purchase sale"`
	Amount     string `json:"amount" validate:"required"`
	Rate       string `json:"rate" validate:"required"`
	Notes      string `json:"notes" validate:"max=500"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
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
	rate, ok := parseDecimal(w, r, "rate", req.Rate)
	if !ok {
		return
	}

	txn, err := h.svc.Create(r.Context(), service.CreateTransactionInput{
		Date:       date,
		CurrencyID: uuid.MustParse(req.CurrencyID),
		Type:       req.Type,
		Amount:     amount,
		Rate:       rate,
		Notes:      req.Notes,
	}, actor)
	if err != nil {
		respondServiceError(w, r, err, "create transaction")
		return
	}
	RespondJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	txns, err := h.svc.List(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err, "list transactions")
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	RespondJSON(w, http.StatusOK, txns)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	txn, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "get transaction")
		return
	}
	RespondJSON(w, http.StatusOK, txn)
}

func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit transaction", h.svc.Submit)
}

// Authorize moves the transaction to authorized and propagates it into the
// ledger atomically.
func (h *TransactionHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "authorize transaction", h.svc.Authorize)
}

func (h *TransactionHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reopen transaction", h.svc.Reopen)
}

func (h *TransactionHandler) Reject(w http.ResponseWriter, r *http.Request) {
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
	txn, err := h.svc.Reject(r.Context(), id, req.Reason, actor)
	if err != nil {
		respondServiceError(w, r, err, "reject transaction")
		return
	}
	RespondJSON(w, http.StatusOK, txn)
}

func (h *TransactionHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID, models.Actor) (*models.Transaction, error)) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	txn, err := fn(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, r, err, op)
		return
	}
	RespondJSON(w, http.StatusOK, txn)
}
