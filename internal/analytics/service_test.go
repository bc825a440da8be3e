package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
	"github.com/kasirku/backend-pos/internal/store/memory"
)

// countingStore wraps the memory store to observe how often aggregates hit
// the database versus the cache.
type countingStore struct {
	*memory.Store
	salesCalls int
	topCalls   int
}

func (c *countingStore) SalesDailyRange(ctx context.Context, from, to time.Time) ([]store.DailySales, error) {
	c.salesCalls++
	return c.Store.SalesDailyRange(ctx, from, to)
}

func (c *countingStore) TopProducts(ctx context.Context, limit, offset int32) ([]store.TopProduct, error) {
	c.topCalls++
	return c.Store.TopProducts(ctx, limit, offset)
}

func newService(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cs := &countingStore{Store: memory.New()}
	svc := &Service{
		Store: cs,
		R:     rdb,
		TTL:   time.Minute,
		Now:   func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) },
	}
	return svc, cs
}

var seedSeq int

func seedSale(t *testing.T, db *memory.Store, day time.Time, subtotal int64) {
	t.Helper()
	seedSeq++
	txn := store.Transaction{
		ID:            fmt.Sprintf("txn-%d", seedSeq),
		ReceiptNumber: fmt.Sprintf("RCP-%s-%06d", day.Format("20060102"), seedSeq),
		Kind:          store.KindSale,
		Items: []store.TransactionItem{
			{ProductID: "p1", Name: "Kopi", UnitPrice: subtotal, Quantity: 1, LineTotal: subtotal},
		},
		CartSubtotal: subtotal,
		CashTendered: subtotal,
		Settlement:   settlement.Result{TotalDue: subtotal},
		CreatedAt:    day,
	}
	_, err := db.CommitSettlement(context.Background(), txn, nil)
	require.NoError(t, err)
}

func TestSalesRangeCaches(t *testing.T) {
	svc, cs := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	seedSale(t, cs.Store, day, 40_000)

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	first, err := svc.SalesRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.EqualValues(t, 40_000, first[0].Revenue)

	second, err := svc.SalesRange(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, cs.salesCalls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	svc, cs := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	seedSale(t, cs.Store, day, 40_000)

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	_, err := svc.SalesRange(ctx, from, to)
	require.NoError(t, err)

	seedSale(t, cs.Store, day, 10_000)
	require.NoError(t, svc.Invalidate(ctx))

	rows, err := svc.SalesRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 50_000, rows[0].Revenue)
	require.Equal(t, 2, cs.salesCalls)
}

func TestTopProductsRanksByQuantity(t *testing.T) {
	svc, cs := newService(t)
	ctx := context.Background()

	txn := store.Transaction{
		ID:            "txn-top",
		ReceiptNumber: "RCP-20260828-900001",
		Kind:          store.KindSale,
		Items: []store.TransactionItem{
			{ProductID: "p1", Name: "Kopi", UnitPrice: 18_000, Quantity: 5, LineTotal: 90_000},
			{ProductID: "p2", Name: "Teh", UnitPrice: 5_000, Quantity: 2, LineTotal: 10_000},
		},
		CartSubtotal: 100_000,
		CashTendered: 100_000,
		Settlement:   settlement.Result{TotalDue: 100_000},
		CreatedAt:    time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	}
	_, err := cs.Store.CommitSettlement(ctx, txn, nil)
	require.NoError(t, err)

	rows, err := svc.TopProducts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "p1", rows[0].ProductID)
	require.EqualValues(t, 5, rows[0].Quantity)

	_, err = svc.TopProducts(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, cs.topCalls)
}

func TestOverview(t *testing.T) {
	svc, cs := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	seedSale(t, cs.Store, day, 40_000)
	seedSale(t, cs.Store, day, 20_000)

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	o, err := svc.Overview(ctx, from, to)
	require.NoError(t, err)
	require.EqualValues(t, 60_000, o.TotalSales)
	require.EqualValues(t, 2, o.TotalTransactions)
	require.EqualValues(t, 30_000, o.AverageTransaction)
}
