package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/store"
)

const cachePrefix = "catalog:"

// CategoryView is a category plus its product count for the register grid.
type CategoryView struct {
	store.Category
	ProductCount int64 `json:"productCount"`
}

// Service serves the product and category catalog with a Redis read-through
// cache. Reads are hot on the register, writes are rare admin actions.
type Service struct {
	Store  store.Store
	Cache  *Cache
	Logger zerolog.Logger
}

func listKey(categoryID, query string) string {
	return fmt.Sprintf("%sproducts:%s:%s", cachePrefix, categoryID, strings.ToLower(query))
}

// ListProducts returns products, cached per filter combination.
func (s *Service) ListProducts(ctx context.Context, categoryID, query string) ([]store.Product, error) {
	key := listKey(categoryID, query)
	var cached []store.Product
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read")
	} else if ok {
		return cached, nil
	}
	products, err := s.Store.ListProducts(ctx, categoryID, query)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, products); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write")
	}
	return products, nil
}

// GetProduct fetches one product, uncached.
func (s *Service) GetProduct(ctx context.Context, id string) (store.Product, error) {
	return s.Store.GetProduct(ctx, id)
}

// ListCategories returns categories with product counts, cached.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	key := cachePrefix + "categories"
	var cached []CategoryView
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read")
	} else if ok {
		return cached, nil
	}
	categories, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Store.CountProductsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryView{Category: c, ProductCount: counts[c.ID]})
	}
	if err := s.Cache.SetJSON(ctx, key, out); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write")
	}
	return out, nil
}

// CreateProduct inserts a product and invalidates cached listings.
func (s *Service) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	created, err := s.Store.CreateProduct(ctx, p)
	if err != nil {
		return store.Product{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// UpdateProduct rewrites a product and invalidates cached listings.
func (s *Service) UpdateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	updated, err := s.Store.UpdateProduct(ctx, p)
	if err != nil {
		return store.Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// AdjustStock moves a product's on-hand quantity by delta (restock or
// shrinkage correction) and invalidates cached listings.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int64) (store.Product, error) {
	updated, err := s.Store.AdjustProductStock(ctx, id, delta)
	if err != nil {
		return store.Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// DeleteProduct removes a product and invalidates cached listings.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateCategory inserts a category and invalidates cached listings.
func (s *Service) CreateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	created, err := s.Store.CreateCategory(ctx, c)
	if err != nil {
		return store.Category{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// UpdateCategory rewrites a category and invalidates cached listings.
func (s *Service) UpdateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	updated, err := s.Store.UpdateCategory(ctx, c)
	if err != nil {
		return store.Category{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// DeleteCategory removes a category and invalidates cached listings.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.Store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.InvalidatePrefix(ctx, cachePrefix); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidate")
	}
}
