package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/service"
)

type transactionHandler struct {
	svc *service.TransactionService
}

func (h *transactionHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{txID}", h.update)
	r.Delete("/{txID}", h.delete)
}

type splitRequest struct {
	UserID     string   `json:"userId" validate:"required"`
	Amount     *float64 `json:"amount"`
	Percentage *float64 `json:"percentage"`
}

type transactionRequest struct {
	Type        models.TransactionType `json:"type" validate:"required"`
	Amount      float64                `json:"amount"`
	Description string                 `json:"description" validate:"required,max=255"`
	Category    string                 `json:"category" validate:"max=50"`

	// Date is RFC 3339 or YYYY-MM-DD; empty means now.
	Date      string           `json:"date"`
	PayerID   string           `json:"payerId"`
	SplitMode models.SplitMode `json:"splitMode" validate:"required"`
	Splits    []splitRequest   `json:"splits" validate:"dive"`
}

func (req transactionRequest) toInput() (service.TransactionInput, error) {
	in := service.TransactionInput{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		PayerID:     req.PayerID,
		SplitMode:   req.SplitMode,
	}

	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return in, err
		}
		in.Date = date.Unix()
	}

	for _, s := range req.Splits {
		in.Splits = append(in.Splits, service.SplitInput{
			UserID:     s.UserID,
			Amount:     s.Amount,
			Percentage: s.Percentage,
		})
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, errs.Newf(errs.ErrValidation, "date %q must be RFC 3339 or YYYY-MM-DD", s)
}

func (h *transactionHandler) list(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListTransactions(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponseList(txs))
}

func (h *transactionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.AddTransaction(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *transactionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.svc.UpdateTransaction(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "txID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *transactionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "txID")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
