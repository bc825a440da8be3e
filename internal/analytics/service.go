package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kasirku/backend-pos/internal/store"
)

// Service provides cached access to sales aggregates. The aggregates are
// computed from the transaction history, Redis keeps the dashboard cheap.
type Service struct {
	Store        store.Store
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns per-day sales between the bounds, inclusive of from and
// exclusive of to.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]store.DailySales, error) {
	if s == nil || s.Store == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []store.DailySales
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Store.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns paginated top sellers ordered by quantity sold.
func (s *Service) TopProducts(ctx context.Context, limit, offset int32) ([]store.TopProduct, error) {
	if s == nil || s.Store == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", limit, offset)
	var cached []store.TopProduct
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Store.TopProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// Overview returns headline totals for the range.
func (s *Service) Overview(ctx context.Context, from, to time.Time) (store.Overview, error) {
	if s == nil || s.Store == nil {
		return store.Overview{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "overview", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached store.Overview
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}
	o, err := s.Store.SalesOverview(ctx, from, to)
	if err != nil {
		return store.Overview{}, err
	}
	s.store(ctx, key, o)
	return o, nil
}

// Invalidate drops all cached aggregates. The worker calls this after every
// recorded settlement.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	iter := s.R.Scan(ctx, 0, "an:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.R.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *Service) getCached(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, rows any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
