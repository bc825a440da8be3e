package transaction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
	"github.com/kasirku/backend-pos/internal/store/memory"
)

func seedTransactions(t *testing.T, db *memory.Store) []store.Transaction {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	out := make([]store.Transaction, 0, 3)
	for i := 0; i < 3; i++ {
		txn := store.Transaction{
			ID:            "txn-" + string(rune('a'+i)),
			ReceiptNumber: "RCP-2026082" + string(rune('5'+i)) + "-000001",
			Kind:          store.KindSale,
			Items: []store.TransactionItem{
				{ProductID: "p1", Name: "Kopi", UnitPrice: 18_000, Quantity: 1, LineTotal: 18_000},
			},
			CartSubtotal: 18_000,
			CashTendered: 20_000,
			Settlement:   settlement.Result{TotalDue: 18_000, Change: 2_000},
			CreatedAt:    base.AddDate(0, 0, i),
		}
		committed, err := db.CommitSettlement(ctx, txn, nil)
		require.NoError(t, err)
		out = append(out, committed)
	}
	return out
}

func newRouter(db *memory.Store) chi.Router {
	h := &Handler{Store: db, StoreName: "Toko Kasirku"}
	r := chi.NewRouter()
	r.Get("/transactions", h.List)
	r.Get("/transactions/{id}", h.Get)
	r.Get("/transactions/{id}/receipt", h.Receipt)
	r.Get("/receipts/{number}", h.GetByReceipt)
	return r
}

func TestListNewestFirstWithTotal(t *testing.T) {
	db := memory.New()
	seeded := seedTransactions(t, db)
	r := newRouter(db)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))
	// Newest seeded record comes back first.
	require.True(t, strings.Index(rec.Body.String(), seeded[2].ID) < strings.Index(rec.Body.String(), seeded[0].ID))
}

func TestListDateFilter(t *testing.T) {
	db := memory.New()
	seedTransactions(t, db)
	r := newRouter(db)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?from=2026-08-26&to=2026-08-26", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}

func TestGetByReceiptNumber(t *testing.T) {
	db := memory.New()
	seeded := seedTransactions(t, db)
	r := newRouter(db)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/"+seeded[0].ReceiptNumber, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), seeded[0].ID)
}

func TestGetMissingTransaction(t *testing.T) {
	db := memory.New()
	r := newRouter(db)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestReceiptReprint(t *testing.T) {
	db := memory.New()
	seeded := seedTransactions(t, db)
	r := newRouter(db)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/"+seeded[0].ID+"/receipt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "Toko Kasirku")
	require.Contains(t, rec.Body.String(), "Kembalian")
}
