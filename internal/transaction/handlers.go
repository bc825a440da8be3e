package transaction

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/receipt"
	"github.com/kasirku/backend-pos/internal/store"
)

// Handler serves the settled transaction history. Records are append-only,
// there is no write surface here.
type Handler struct {
	Store     store.Store
	StoreName string
}

// List returns transaction history, newest first. Supports customer, from,
// and to filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	filter := store.TransactionFilter{
		CustomerID: r.URL.Query().Get("customer"),
		Limit:      int32(perPage),
		Offset:     int32((page - 1) * perPage),
	}
	if from, ok := parseDay(r.URL.Query().Get("from")); ok {
		filter.From = &from
	}
	if to, ok := parseDay(r.URL.Query().Get("to")); ok {
		// The to filter is inclusive on the query string, exclusive in the store.
		to = to.Add(24 * time.Hour)
		filter.To = &to
	}

	txns, total, err := h.Store.ListTransactions(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{"data": txns, "total": total})
}

// Get returns one transaction by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": txn})
}

// GetByReceipt looks a transaction up by its printed receipt number.
func (h *Handler) GetByReceipt(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Store.GetTransactionByReceipt(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": txn})
}

// Receipt reprints the plain-text receipt for a settled transaction.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	customerName := ""
	if txn.CustomerID != nil {
		if cust, err := h.Store.GetCustomer(r.Context(), *txn.CustomerID); err == nil {
			customerName = cust.Name
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt.Render(txn, h.StoreName, customerName)))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load transactions", nil)
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
