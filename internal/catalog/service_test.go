package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/store"
	"github.com/kasirku/backend-pos/internal/store/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	db := memory.New()
	return &Service{
		Store:  db,
		Cache:  NewCache(rdb, time.Minute),
		Logger: zerolog.Nop(),
	}, db
}

func TestListProductsServesCachedView(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	_, err := db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000})
	require.NoError(t, err)

	first, err := svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A write bypassing the service is invisible until the cache expires.
	_, err = db.CreateProduct(ctx, store.Product{Name: "Teh", Price: 5_000})
	require.NoError(t, err)

	second, err := svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, second, 1)
}

func TestCreateProductInvalidatesCache(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000})
	require.NoError(t, err)

	got, err := svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = svc.CreateProduct(ctx, store.Product{Name: "Teh", Price: 5_000})
	require.NoError(t, err)

	got, err = svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestListCategoriesCountsProducts(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, store.Category{Name: "Minuman", Icon: "cup"})
	require.NoError(t, err)
	_, err = db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000, CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = db.CreateProduct(ctx, store.Product{Name: "Teh", Price: 5_000, CategoryID: cat.ID})
	require.NoError(t, err)

	views, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.EqualValues(t, 2, views[0].ProductCount)
}

func TestListProductsFiltersByCategoryAndQuery(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	cat, err := db.CreateCategory(ctx, store.Category{Name: "Minuman"})
	require.NoError(t, err)
	_, err = db.CreateProduct(ctx, store.Product{Name: "Kopi Susu", Price: 18_000, CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = db.CreateProduct(ctx, store.Product{Name: "Roti", Price: 12_000})
	require.NoError(t, err)

	byCategory, err := svc.ListProducts(ctx, cat.ID, "")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, "Kopi Susu", byCategory[0].Name)

	byQuery, err := svc.ListProducts(ctx, "", "kopi")
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	require.Equal(t, "Kopi Susu", byQuery[0].Name)
}

func TestAdjustStockMovesQuantity(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	p, err := db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000, Stock: 5})
	require.NoError(t, err)

	restocked, err := svc.AdjustStock(ctx, p.ID, 20)
	require.NoError(t, err)
	require.EqualValues(t, 25, restocked.Stock)

	deducted, err := svc.AdjustStock(ctx, p.ID, -25)
	require.NoError(t, err)
	require.Zero(t, deducted.Stock)
}

func TestAdjustStockCannotOverdraw(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	p, err := db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000, Stock: 3})
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, p.ID, -4)
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	_, err = svc.AdjustStock(ctx, "missing", 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := db.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, got.Stock)
}

func TestAdjustStockInvalidatesCache(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	p, err := db.CreateProduct(ctx, store.Product{Name: "Kopi", Price: 18_000, Stock: 5})
	require.NoError(t, err)

	before, err := svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.EqualValues(t, 5, before[0].Stock)

	_, err = svc.AdjustStock(ctx, p.ID, 7)
	require.NoError(t, err)

	after, err := svc.ListProducts(ctx, "", "")
	require.NoError(t, err)
	require.EqualValues(t, 12, after[0].Stock)
}
