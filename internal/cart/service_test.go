package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/store"
	"github.com/kasirku/backend-pos/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	db := memory.New()
	return NewService(rdb, db, time.Minute), db, mr
}

func seedProduct(t *testing.T, db *memory.Store, name string, price int64) store.Product {
	t.Helper()
	p, err := db.CreateProduct(context.Background(), store.Product{Name: name, Price: price})
	require.NoError(t, err)
	return p
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	kopi := seedProduct(t, db, "Kopi Susu", 18_000)

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)

	c, err = svc.AddItem(ctx, c.ID, kopi.ID, 1)
	require.NoError(t, err)
	c, err = svc.AddItem(ctx, c.ID, kopi.ID, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	require.EqualValues(t, 3, c.Items[0].Quantity)
	require.EqualValues(t, 54_000, c.Subtotal())
}

func TestAddItemSnapshotsCatalogPrice(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	teh := seedProduct(t, db, "Teh Botol", 5_000)

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)
	c, err = svc.AddItem(ctx, c.ID, teh.ID, 1)
	require.NoError(t, err)

	// A later catalog price change must not move lines already rung up.
	teh.Price = 7_000
	_, err = db.UpdateProduct(ctx, teh)
	require.NoError(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5_000, got.Items[0].UnitPrice)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Roti", 12_000)

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)
	c, err = svc.AddItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)

	c, err = svc.UpdateQuantity(ctx, c.ID, p.ID, 0)
	require.NoError(t, err)
	require.Empty(t, c.Items)
	require.Zero(t, c.Subtotal())
}

func TestUpdateQuantityUnknownProductIsNoop(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Roti", 12_000)

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)
	c, err = svc.AddItem(ctx, c.ID, p.ID, 2)
	require.NoError(t, err)

	got, err := svc.UpdateQuantity(ctx, c.ID, "missing-product", 5)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.EqualValues(t, 2, got.Items[0].Quantity)
}

func TestAttachCustomer(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	cust, err := db.CreateCustomer(ctx, store.Customer{Name: "Budi"})
	require.NoError(t, err)

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)

	c, err = svc.AttachCustomer(ctx, c.ID, cust.ID)
	require.NoError(t, err)
	require.NotNil(t, c.CustomerID)
	require.Equal(t, cust.ID, *c.CustomerID)

	c, err = svc.AttachCustomer(ctx, c.ID, "")
	require.NoError(t, err)
	require.Nil(t, c.CustomerID)

	_, err = svc.AttachCustomer(ctx, c.ID, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCartExpires(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "cashier-1")
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, c.ID))
	require.NoError(t, svc.Clear(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
