package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/cart"
	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/lock"
	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
	"github.com/kasirku/backend-pos/internal/store/memory"
)

type fixture struct {
	svc   *Service
	carts *cart.Service
	db    *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := memory.New()
	carts := cart.NewService(rdb, db, time.Minute)
	svc := &Service{
		Store:     db,
		Carts:     carts,
		Engine:    settlement.Engine{},
		Locker:    lock.Locker{R: rdb},
		Logger:    zerolog.Nop(),
		StoreName: "Toko Kasirku",
		Now:       func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) },
	}
	return fixture{svc: svc, carts: carts, db: db}
}

func (f fixture) ringUp(t *testing.T, customerID string, lines map[string]int32) cart.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, "cashier-1")
	require.NoError(t, err)
	for name, qty := range lines {
		p, err := f.db.CreateProduct(ctx, store.Product{Name: name, Price: 25_000})
		require.NoError(t, err)
		c, err = f.carts.AddItem(ctx, c.ID, p.ID, qty)
		require.NoError(t, err)
	}
	if customerID != "" {
		c, err = f.carts.AttachCustomer(ctx, c.ID, customerID)
		require.NoError(t, err)
	}
	return c
}

func TestCheckoutGuestExactCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.ringUp(t, "", map[string]int32{"Kopi": 2})

	out, err := f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 50_000})
	require.NoError(t, err)

	require.Equal(t, "RCP-20260829-000001", out.Transaction.ReceiptNumber)
	require.EqualValues(t, 50_000, out.Transaction.Settlement.TotalDue)
	require.Zero(t, out.Transaction.Settlement.Change)
	require.EqualValues(t, 2, out.Transaction.Settlement.PointsEarned)
	require.Nil(t, out.Transaction.Settlement.LedgerAfter)
	require.NotEmpty(t, out.ReceiptText)

	// The cart is consumed by a successful settlement.
	_, err = f.carts.Get(ctx, c.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)

	// The transaction is durable and findable by receipt number.
	txn, err := f.db.GetTransactionByReceipt(ctx, out.Transaction.ReceiptNumber)
	require.NoError(t, err)
	require.Equal(t, out.Transaction.ID, txn.ID)
}

func TestCheckoutDebtInclusiveUpdatesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cust, err := f.db.CreateCustomer(ctx, store.Customer{Name: "Budi"})
	require.NoError(t, err)
	_, err = f.db.MutateLedger(ctx, cust.ID, func(l settlement.Ledger) (settlement.Ledger, error) {
		l.OutstandingDebt = 30_000
		l.LoyaltyPoints = 10
		return l, nil
	})
	require.NoError(t, err)

	c := f.ringUp(t, cust.ID, map[string]int32{"Kopi": 4}) // subtotal 100_000

	out, err := f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 120_000, IncludeDebt: true})
	require.NoError(t, err)

	require.EqualValues(t, 130_000, out.Transaction.Settlement.TotalDue)
	require.EqualValues(t, 20_000, out.Transaction.Settlement.DebtPaid)
	require.Zero(t, out.Transaction.Settlement.NewDebt)
	require.Zero(t, out.Transaction.Settlement.Change)
	require.EqualValues(t, 5, out.Transaction.Settlement.PointsEarned)

	got, err := f.db.GetCustomer(ctx, cust.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10_000, got.OutstandingDebt)
	require.EqualValues(t, 15, got.LoyaltyPoints)

	require.EqualValues(t, 10, out.Receipt.PreviousPoints)
	require.EqualValues(t, 15, out.Receipt.TotalPoints)
	require.EqualValues(t, 10_000, out.Receipt.TotalOutstandingDebt)
}

func TestCheckoutGuestShortfallRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.ringUp(t, "", map[string]int32{"Kopi": 2}) // subtotal 50_000

	_, err := f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 30_000})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "MISSING_CUSTOMER_FOR_DEBT", appErr.Code)

	// The cart survives a rejected settlement.
	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.carts.Create(ctx, "cashier-1")
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 10_000})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CART_EMPTY", appErr.Code)
}

func TestCheckoutUnknownCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), "cashier-1", Input{CartID: "missing", CashTendered: 10_000})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CART_NOT_FOUND", appErr.Code)
}

func TestCheckoutCommitFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cust, err := f.db.CreateCustomer(ctx, store.Customer{Name: "Budi"})
	require.NoError(t, err)
	c := f.ringUp(t, cust.ID, map[string]int32{"Kopi": 2})

	f.db.CommitErr = errors.New("connection reset")
	_, err = f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 50_000})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "STORAGE_COMMIT_FAILED", appErr.Code)

	// Ledger untouched, cart still open, no transaction recorded.
	got, err := f.db.GetCustomer(ctx, cust.ID)
	require.NoError(t, err)
	require.Zero(t, got.OutstandingDebt)
	require.Zero(t, got.LoyaltyPoints)

	open, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, open.Items, 1)

	txns, total, err := f.db.ListTransactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, txns)
}

func TestReceiptNumbersAdvancePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.ringUp(t, "", map[string]int32{"Kopi": 1})
	out1, err := f.svc.Checkout(ctx, "cashier-1", Input{CartID: first.ID, CashTendered: 25_000})
	require.NoError(t, err)

	second := f.ringUp(t, "", map[string]int32{"Teh": 1})
	out2, err := f.svc.Checkout(ctx, "cashier-1", Input{CartID: second.ID, CashTendered: 25_000})
	require.NoError(t, err)

	require.Equal(t, "RCP-20260829-000001", out1.Transaction.ReceiptNumber)
	require.Equal(t, "RCP-20260829-000002", out2.Transaction.ReceiptNumber)
}

func TestCheckoutDeductsSoldStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 25_000, Stock: 10})
	require.NoError(t, err)
	counted, err := f.db.CreateProduct(ctx, store.Product{Name: "Teh", Price: 25_000, Stock: 1})
	require.NoError(t, err)

	c, err := f.carts.Create(ctx, "cashier-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, c.ID, p.ID, 3)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, c.ID, counted.ID, 2)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "cashier-1", Input{CartID: c.ID, CashTendered: 125_000})
	require.NoError(t, err)

	got, err := f.db.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, got.Stock)

	// An uncounted shelf clamps at zero instead of blocking the sale.
	got, err = f.db.GetProduct(ctx, counted.ID)
	require.NoError(t, err)
	require.Zero(t, got.Stock)
}
