package store

import (
	"context"
	"errors"
	"time"

	"github.com/kasirku/backend-pos/internal/settlement"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("store: conflict")
	// ErrInsufficientStock indicates a stock adjustment would drive the
	// on-hand quantity below zero.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Category groups products on the register grid.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a sellable item. Price is in rupiah minor units. Stock is the
// on-hand quantity; LowStockThreshold marks the reorder point surfaced on
// the admin dashboard.
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Price             int64     `json:"price"`
	Image             string    `json:"image,omitempty"`
	CategoryID        string    `json:"categoryId,omitempty"`
	Stock             int64     `json:"stock"`
	LowStockThreshold int64     `json:"lowStockThreshold"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Customer carries contact details plus the ledger balances the settlement
// engine mutates.
type Customer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	OutstandingDebt int64     `json:"outstandingDebt"`
	LoyaltyPoints   int64     `json:"loyaltyPoints"`
	TotalSpent      int64     `json:"totalSpent"`
	CreatedAt       time.Time `json:"createdAt"`
	LastVisit       time.Time `json:"lastVisit"`
}

// Ledger extracts the settlement-facing snapshot of a customer.
func (c Customer) Ledger() settlement.Ledger {
	return settlement.Ledger{
		CustomerID:      c.ID,
		OutstandingDebt: c.OutstandingDebt,
		LoyaltyPoints:   c.LoyaltyPoints,
	}
}

// TransactionItem is a cart line snapshot frozen into the transaction record.
type TransactionItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int32  `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

// Transaction kinds.
const (
	KindSale        = "SALE"
	KindDebtPayment = "DEBT_PAYMENT"
)

// Transaction is the append-only record of a completed settlement.
type Transaction struct {
	ID            string            `json:"id"`
	ReceiptNumber string            `json:"receiptNumber"`
	Kind          string            `json:"kind"`
	CustomerID    *string           `json:"customerId,omitempty"`
	CashierID     string            `json:"cashierId,omitempty"`
	Items         []TransactionItem `json:"items"`
	CartSubtotal  int64             `json:"cartSubtotal"`
	CashTendered  int64             `json:"cashTendered"`
	Settlement    settlement.Result `json:"settlement"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// User is a cashier or admin account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DailySales aggregates settled revenue per calendar day.
type DailySales struct {
	Day          time.Time `json:"day"`
	Transactions int64     `json:"transactions"`
	Revenue      int64     `json:"revenue"`
}

// TopProduct ranks products by quantity sold.
type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// Overview summarises sales for a period.
type Overview struct {
	TotalSales         int64 `json:"totalSales"`
	TotalTransactions  int64 `json:"totalTransactions"`
	AverageTransaction int64 `json:"averageTransaction"`
}

// TransactionFilter narrows transaction history listings.
type TransactionFilter struct {
	CustomerID string
	From       *time.Time
	To         *time.Time
	Limit      int32
	Offset     int32
}

// Store is the persistence port consumed by the services. Implementations
// must make CommitSettlement and MutateLedger atomic and serialize concurrent
// ledger writes for the same customer.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, categoryID, query string) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CountProductsByCategory(ctx context.Context) (map[string]int64, error)

	// AdjustProductStock moves the on-hand quantity by delta (negative to
	// deduct) and returns the updated product. An adjustment that would
	// drive stock below zero fails with ErrInsufficientStock.
	AdjustProductStock(ctx context.Context, id string, delta int64) (Product, error)

	ListCustomers(ctx context.Context, query string, limit, offset int32) ([]Customer, int64, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, c Customer) (Customer, error)

	// CommitSettlement appends the transaction and, when ledgerAfter is
	// non-nil, writes the new balances onto the customer row - both in one
	// storage transaction. Partial writes must never survive.
	CommitSettlement(ctx context.Context, txn Transaction, ledgerAfter *settlement.Ledger) (Transaction, error)

	// MutateLedger loads the customer ledger under a row lock, applies fn,
	// and persists the returned snapshot atomically.
	MutateLedger(ctx context.Context, customerID string, fn func(settlement.Ledger) (settlement.Ledger, error)) (settlement.Ledger, error)

	NextReceiptSeq(ctx context.Context, day time.Time) (int64, error)

	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, int64, error)
	GetTransaction(ctx context.Context, id string) (Transaction, error)
	GetTransactionByReceipt(ctx context.Context, receiptNumber string) (Transaction, error)

	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)

	SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailySales, error)
	TopProducts(ctx context.Context, limit, offset int32) ([]TopProduct, error)
	SalesOverview(ctx context.Context, from, to time.Time) (Overview, error)
}
