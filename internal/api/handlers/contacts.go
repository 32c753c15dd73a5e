package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khata-app/khata-backend/internal/api/httpx"
	"github.com/khata-app/khata-backend/internal/api/validate"
	"github.com/khata-app/khata-backend/internal/ledger"
	"github.com/khata-app/khata-backend/internal/middleware"
	"github.com/khata-app/khata-backend/internal/models"
	"github.com/khata-app/khata-backend/internal/services"
)

type LedgerHandler struct {
	Rec *services.Reconciler
}

func NewLedgerHandler(rec *services.Reconciler) *LedgerHandler {
	return &LedgerHandler{Rec: rec}
}

func session(r *http.Request) services.Session {
	uid, _ := middleware.UserID(r.Context())
	return services.Session{UserID: uid}
}

// List serves the customer/supplier overview screens.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.UserType(r.URL.Query().Get("type"))
	out, err := h.Rec.Overview(r.Context(), session(r), filter)
	if err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type contactReq struct {
	Name        string          `json:"name"`
	PhoneNumber string          `json:"phone_number"`
	Email       string          `json:"email"`
	Address     string          `json:"address"`
	UserType    models.UserType `json:"user_type"`
}

func (r contactReq) model() models.Contact {
	return models.Contact{
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Address:     r.Address,
		UserType:    r.UserType,
	}
}

func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	c, err := h.Rec.CreateContact(r.Context(), session(r), req.model())
	if err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Rec.Detail(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// GetByPhone is the pull-to-refresh path: seed a view from the phone number
// and reconcile it against the store.
func (h *LedgerHandler) GetByPhone(w http.ResponseWriter, r *http.Request) {
	view := h.Rec.NewView(models.Contact{PhoneNumber: chi.URLParam(r, "phone")})
	if err := h.Rec.Refresh(r.Context(), session(r), view); err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req contactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	view := h.Rec.NewView(models.Contact{ID: chi.URLParam(r, "id"), PhoneNumber: req.PhoneNumber})
	if err := h.Rec.EditContact(r.Context(), session(r), view, req.model()); err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

type addTxnReq struct {
	contactReq
	Type   models.TransactionType `json:"type"`
	Amount int64                  `json:"amount"`
}

// AddTransaction records a send/receive entry keyed by phone number,
// creating the contact when the phone is not in the ledger yet.
func (h *LedgerHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTxnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	if req.Type != models.TxnSend && req.Type != models.TxnReceive {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "type must be send or receive", nil)
		return
	}
	view := h.Rec.NewView(req.model())
	if err := h.Rec.AddTransaction(r.Context(), session(r), view, req.Type, req.Amount); err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, view)
}

type editTxnReq struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
}

func (h *LedgerHandler) UpdateTransactionAmount(w http.ResponseWriter, r *http.Request) {
	var req editTxnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	view := h.Rec.NewView(models.Contact{
		ID:          chi.URLParam(r, "id"),
		PhoneNumber: req.PhoneNumber,
	})
	err := h.Rec.EditTransactionAmount(r.Context(), session(r), view, chi.URLParam(r, "txnID"), req.Amount)
	if err != nil {
		writeLedgerErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func writeLedgerErr(w http.ResponseWriter, err error) {
	var verrs validate.Errs
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated", "not authenticated", nil)
	case errors.Is(err, ledger.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", verrs)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "store_failed", "ledger store unavailable", nil)
	}
}
