package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store. It backs
// the test suites and the standalone demo mode of the API binary.
type Store struct {
	mu sync.Mutex

	categories   map[string]store.Category
	products     map[string]store.Product
	customers    map[string]store.Customer
	transactions []store.Transaction
	users        map[string]store.User
	receiptSeq   map[string]int64

	now func() time.Time

	// CommitErr, when set, makes the next CommitSettlement fail without
	// writing anything. Used to exercise rollback paths.
	CommitErr error
}

var _ store.Store = (*Store)(nil)

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		categories: make(map[string]store.Category),
		products:   make(map[string]store.Product),
		customers:  make(map[string]store.Customer),
		users:      make(map[string]store.User),
		receiptSeq: make(map[string]int64),
		now:        time.Now,
	}
}

// WithNow overrides the time source.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Store) ListCategories(ctx context.Context) ([]store.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return store.Category{}, store.ErrConflict
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return store.Category{}, store.ErrNotFound
	}
	existing.Name = c.Name
	existing.Icon = c.Icon
	s.categories[c.ID] = existing
	return existing, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	for pid, p := range s.products {
		if p.CategoryID == id {
			p.CategoryID = ""
			s.products[pid] = p
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, categoryID, query string) ([]store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	out := make([]store.Product, 0, len(s.products))
	for _, p := range s.products {
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	existing.Name = p.Name
	existing.Price = p.Price
	existing.Image = p.Image
	existing.CategoryID = p.CategoryID
	existing.LowStockThreshold = p.LowStockThreshold
	s.products[p.ID] = existing
	return existing, nil
}

func (s *Store) AdjustProductStock(ctx context.Context, id string, delta int64) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return store.Product{}, store.ErrInsufficientStock
	}
	p.Stock += delta
	s.products[id] = p
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CountProductsByCategory(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, p := range s.products {
		if p.CategoryID != "" {
			counts[p.CategoryID]++
		}
	}
	return counts, nil
}

func customerMatches(c store.Customer, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), pattern) ||
		strings.Contains(strings.ToLower(c.Email), pattern) ||
		strings.Contains(c.Phone, pattern)
}

func (s *Store) ListCustomers(ctx context.Context, query string, limit, offset int32) ([]store.Customer, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pattern := strings.ToLower(strings.TrimSpace(query))
	matched := make([]store.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if customerMatches(c, pattern) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := int(offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return store.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c store.Customer) (store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Phone != "" {
		for _, existing := range s.customers {
			if existing.Phone == c.Phone {
				return store.Customer{}, store.ErrConflict
			}
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	c.LastVisit = c.CreatedAt
	c.OutstandingDebt = 0
	c.LoyaltyPoints = 0
	c.TotalSpent = 0
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c store.Customer) (store.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.customers[c.ID]
	if !ok {
		return store.Customer{}, store.ErrNotFound
	}
	existing.Name = c.Name
	existing.Email = c.Email
	existing.Phone = c.Phone
	s.customers[c.ID] = existing
	return existing, nil
}

func (s *Store) CommitSettlement(ctx context.Context, txn store.Transaction, ledgerAfter *settlement.Ledger) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommitErr != nil {
		err := s.CommitErr
		s.CommitErr = nil
		return store.Transaction{}, err
	}
	for _, existing := range s.transactions {
		if existing.ReceiptNumber == txn.ReceiptNumber {
			return store.Transaction{}, store.ErrConflict
		}
	}
	if ledgerAfter != nil {
		c, ok := s.customers[ledgerAfter.CustomerID]
		if !ok {
			return store.Transaction{}, store.ErrNotFound
		}
		c.OutstandingDebt = ledgerAfter.OutstandingDebt
		c.LoyaltyPoints = ledgerAfter.LoyaltyPoints
		c.TotalSpent += txn.CartSubtotal
		c.LastVisit = txn.CreatedAt
		s.customers[c.ID] = c
	}
	for _, item := range txn.Items {
		p, ok := s.products[item.ProductID]
		if !ok || item.Quantity <= 0 {
			continue
		}
		p.Stock -= int64(item.Quantity)
		if p.Stock < 0 {
			p.Stock = 0
		}
		s.products[item.ProductID] = p
	}
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

func (s *Store) MutateLedger(ctx context.Context, customerID string, fn func(settlement.Ledger) (settlement.Ledger, error)) (settlement.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return settlement.Ledger{}, store.ErrNotFound
	}
	updated, err := fn(c.Ledger())
	if err != nil {
		return settlement.Ledger{}, err
	}
	c.OutstandingDebt = updated.OutstandingDebt
	c.LoyaltyPoints = updated.LoyaltyPoints
	s.customers[customerID] = c
	return updated, nil
}

func (s *Store) NextReceiptSeq(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.Format("2006-01-02")
	s.receiptSeq[key]++
	return s.receiptSeq[key], nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]store.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	matched := make([]store.Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		if f.CustomerID != "" && (txn.CustomerID == nil || *txn.CustomerID != f.CustomerID) {
			continue
		}
		if f.From != nil && txn.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !txn.CreatedAt.Before(*f.To) {
			continue
		}
		matched = append(matched, txn)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := int(offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.transactions {
		if txn.ID == id {
			return txn, nil
		}
	}
	return store.Transaction{}, store.ErrNotFound
}

func (s *Store) GetTransactionByReceipt(ctx context.Context, receiptNumber string) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.transactions {
		if txn.ReceiptNumber == receiptNumber {
			return txn, nil
		}
	}
	return store.Transaction{}, store.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.User{}, store.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	if len(u.Roles) == 0 {
		u.Roles = []string{"cashier"}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) SalesDailyRange(ctx context.Context, from, to time.Time) ([]store.DailySales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := make(map[string]*store.DailySales)
	for _, txn := range s.transactions {
		if txn.Kind != store.KindSale {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		day := txn.CreatedAt.Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		d, ok := byDay[key]
		if !ok {
			d = &store.DailySales{Day: day}
			byDay[key] = d
		}
		d.Transactions++
		d.Revenue += txn.CartSubtotal
	}
	out := make([]store.DailySales, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *Store) TopProducts(ctx context.Context, limit, offset int32) ([]store.TopProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	byProduct := make(map[string]*store.TopProduct)
	for _, txn := range s.transactions {
		if txn.Kind != store.KindSale {
			continue
		}
		for _, item := range txn.Items {
			p, ok := byProduct[item.ProductID]
			if !ok {
				p = &store.TopProduct{ProductID: item.ProductID, Name: item.Name}
				byProduct[item.ProductID] = p
			}
			p.Quantity += int64(item.Quantity)
			p.Revenue += item.LineTotal
		}
	}
	out := make([]store.TopProduct, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	start := int(offset)
	if start > len(out) {
		start = len(out)
	}
	end := start + int(limit)
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *Store) SalesOverview(ctx context.Context, from, to time.Time) (store.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var o store.Overview
	for _, txn := range s.transactions {
		if txn.Kind != store.KindSale {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		o.TotalSales += txn.CartSubtotal
		o.TotalTransactions++
	}
	if o.TotalTransactions > 0 {
		o.AverageTransaction = o.TotalSales / o.TotalTransactions
	}
	return o, nil
}
