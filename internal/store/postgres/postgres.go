package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
)

// Store implements store.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New constructs a postgres-backed store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// WithNow overrides the time source for tests.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapRowErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]store.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, icon, created_at
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.Category, 0, 16)
	for rows.Next() {
		var c store.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory inserts a category, generating its identifier.
func (s *Store) CreateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, icon, created_at)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Icon, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Category{}, store.ErrConflict
		}
		return store.Category{}, err
	}
	return c, nil
}

// UpdateCategory rewrites name and icon for an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE categories SET name = $2, icon = $3 WHERE id = $1`,
		c.ID, c.Name, c.Icon)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Category{}, store.ErrConflict
		}
		return store.Category{}, err
	}
	if tag.RowsAffected() == 0 {
		return store.Category{}, store.ErrNotFound
	}
	return c, nil
}

// DeleteCategory removes a category. Products keep a dangling category id of
// NULL via the FK's ON DELETE SET NULL.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListProducts returns products, optionally filtered by category and a name
// substring match.
func (s *Store) ListProducts(ctx context.Context, categoryID, query string) ([]store.Product, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
		SELECT id, name, price, image, COALESCE(category_id::text, ''), stock, low_stock_threshold, created_at
		FROM products`)
	var conds []string
	if categoryID != "" {
		args = append(args, categoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if query != "" {
		args = append(args, "%"+strings.ToLower(query)+"%")
		conds = append(conds, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY name")

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.Product, 0, 64)
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CategoryID, &p.Stock, &p.LowStockThreshold, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProduct fetches a single product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (store.Product, error) {
	var p store.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, price, image, COALESCE(category_id::text, ''), stock, low_stock_threshold, created_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CategoryID, &p.Stock, &p.LowStockThreshold, &p.CreatedAt)
	if err != nil {
		return store.Product{}, mapRowErr(err)
	}
	return p, nil
}

// CreateProduct inserts a product.
func (s *Store) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, name, price, image, category_id, stock, low_stock_threshold, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8)`,
		p.ID, p.Name, p.Price, p.Image, p.CategoryID, p.Stock, p.LowStockThreshold, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Product{}, store.ErrConflict
		}
		return store.Product{}, err
	}
	return p, nil
}

// UpdateProduct rewrites the mutable product fields. The on-hand stock is
// only moved through AdjustProductStock and settlement commits.
func (s *Store) UpdateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	err := s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, price = $3, image = $4, category_id = NULLIF($5, '')::uuid,
		    low_stock_threshold = $6
		WHERE id = $1
		RETURNING stock, created_at`,
		p.ID, p.Name, p.Price, p.Image, p.CategoryID, p.LowStockThreshold).
		Scan(&p.Stock, &p.CreatedAt)
	if err != nil {
		return store.Product{}, mapRowErr(err)
	}
	return p, nil
}

// AdjustProductStock moves the on-hand quantity by delta. The guard in the
// WHERE clause keeps concurrent adjustments from racing past zero.
func (s *Store) AdjustProductStock(ctx context.Context, id string, delta int64) (store.Product, error) {
	var p store.Product
	err := s.pool.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING id, name, price, image, COALESCE(category_id::text, ''), stock, low_stock_threshold, created_at`,
		id, delta).
		Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CategoryID, &p.Stock, &p.LowStockThreshold, &p.CreatedAt)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Product{}, err
	}
	// No row updated: either the product is gone or the deduction would
	// overdraw the stock.
	if _, getErr := s.GetProduct(ctx, id); getErr != nil {
		return store.Product{}, getErr
	}
	return store.Product{}, store.ErrInsufficientStock
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountProductsByCategory returns product counts keyed by category id.
func (s *Store) CountProductsByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category_id::text, COUNT(*)
		FROM products
		WHERE category_id IS NOT NULL
		GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const customerColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''),
	outstanding_debt, loyalty_points, total_spent, created_at, last_visit`

func scanCustomer(row pgx.Row) (store.Customer, error) {
	var c store.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone,
		&c.OutstandingDebt, &c.LoyaltyPoints, &c.TotalSpent, &c.CreatedAt, &c.LastVisit)
	if err != nil {
		return store.Customer{}, mapRowErr(err)
	}
	return c, nil
}

// ListCustomers returns customers matching the query over name, email, and
// phone, newest first, with the total count for pagination.
func (s *Store) ListCustomers(ctx context.Context, query string, limit, offset int32) ([]store.Customer, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM customers
		WHERE LOWER(name) LIKE $1 OR LOWER(COALESCE(email, '')) LIKE $1 OR COALESCE(phone, '') LIKE $1`,
		pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE LOWER(name) LIKE $1 OR LOWER(COALESCE(email, '')) LIKE $1 OR COALESCE(phone, '') LIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]store.Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// GetCustomer fetches a customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string) (store.Customer, error) {
	return scanCustomer(s.pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// CreateCustomer inserts a customer with zeroed balances.
func (s *Store) CreateCustomer(ctx context.Context, c store.Customer) (store.Customer, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	c.LastVisit = c.CreatedAt
	c.OutstandingDebt = 0
	c.LoyaltyPoints = 0
	c.TotalSpent = 0
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone, outstanding_debt, loyalty_points, total_spent, created_at, last_visit)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), 0, 0, 0, $5, $5)`,
		c.ID, c.Name, c.Email, c.Phone, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Customer{}, store.ErrConflict
		}
		return store.Customer{}, err
	}
	return c, nil
}

// UpdateCustomer rewrites contact details. Ledger balances are only touched
// through CommitSettlement and MutateLedger.
func (s *Store) UpdateCustomer(ctx context.Context, c store.Customer) (store.Customer, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customers SET name = $2, email = NULLIF($3, ''), phone = NULLIF($4, '')
		WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Customer{}, store.ErrConflict
		}
		return store.Customer{}, err
	}
	if tag.RowsAffected() == 0 {
		return store.Customer{}, store.ErrNotFound
	}
	return s.GetCustomer(ctx, c.ID)
}

// CommitSettlement appends the transaction record and writes the
// post-settlement ledger in a single database transaction. The customer row
// is locked first so concurrent checkouts against the same customer
// serialize instead of losing updates.
func (s *Store) CommitSettlement(ctx context.Context, txn store.Transaction, ledgerAfter *settlement.Ledger) (store.Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.Transaction{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if ledgerAfter != nil {
		var current int64
		err := tx.QueryRow(ctx, `
			SELECT loyalty_points FROM customers WHERE id = $1 FOR UPDATE`,
			ledgerAfter.CustomerID).Scan(&current)
		if err != nil {
			return store.Transaction{}, mapRowErr(err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE customers
			SET outstanding_debt = $2,
			    loyalty_points = $3,
			    total_spent = total_spent + $4,
			    last_visit = $5
			WHERE id = $1`,
			ledgerAfter.CustomerID, ledgerAfter.OutstandingDebt, ledgerAfter.LoyaltyPoints,
			txn.CartSubtotal, txn.CreatedAt)
		if err != nil {
			return store.Transaction{}, err
		}
	}

	// Sold quantities come off the shelf in the same transaction. Clamped
	// at zero so an uncounted shelf never blocks a sale.
	for _, item := range txn.Items {
		if item.Quantity <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id = $1`,
			item.ProductID, int64(item.Quantity)); err != nil {
			return store.Transaction{}, err
		}
	}

	items, err := json.Marshal(txn.Items)
	if err != nil {
		return store.Transaction{}, err
	}
	var debtAfter, pointsAfter any
	if txn.Settlement.LedgerAfter != nil {
		debtAfter = txn.Settlement.LedgerAfter.OutstandingDebt
		pointsAfter = txn.Settlement.LedgerAfter.LoyaltyPoints
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (
			id, receipt_number, kind, customer_id, cashier_id, items,
			cart_subtotal, cash_tendered, total_due, debt_paid, new_debt,
			change, points_earned, debt_after, points_after, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6,
			$7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		txn.ID, txn.ReceiptNumber, txn.Kind, stringOrEmpty(txn.CustomerID), txn.CashierID, items,
		txn.CartSubtotal, txn.CashTendered, txn.Settlement.TotalDue, txn.Settlement.DebtPaid,
		txn.Settlement.NewDebt, txn.Settlement.Change, txn.Settlement.PointsEarned,
		debtAfter, pointsAfter, txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Transaction{}, store.ErrConflict
		}
		return store.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Transaction{}, err
	}
	return txn, nil
}

// MutateLedger applies fn to the customer's ledger under a row lock.
func (s *Store) MutateLedger(ctx context.Context, customerID string, fn func(settlement.Ledger) (settlement.Ledger, error)) (settlement.Ledger, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return settlement.Ledger{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var ledger settlement.Ledger
	ledger.CustomerID = customerID
	err = tx.QueryRow(ctx, `
		SELECT outstanding_debt, loyalty_points FROM customers WHERE id = $1 FOR UPDATE`,
		customerID).Scan(&ledger.OutstandingDebt, &ledger.LoyaltyPoints)
	if err != nil {
		return settlement.Ledger{}, mapRowErr(err)
	}

	updated, err := fn(ledger)
	if err != nil {
		return settlement.Ledger{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE customers SET outstanding_debt = $2, loyalty_points = $3 WHERE id = $1`,
		customerID, updated.OutstandingDebt, updated.LoyaltyPoints)
	if err != nil {
		return settlement.Ledger{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return settlement.Ledger{}, err
	}
	return updated, nil
}

// NextReceiptSeq increments and returns the per-day receipt counter.
func (s *Store) NextReceiptSeq(ctx context.Context, day time.Time) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO receipt_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = receipt_counters.seq + 1
		RETURNING seq`,
		day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

const transactionColumns = `id, receipt_number, kind, COALESCE(customer_id::text, ''),
	COALESCE(cashier_id::text, ''), items, cart_subtotal, cash_tendered, total_due,
	debt_paid, new_debt, change, points_earned, debt_after, points_after, created_at`

func scanTransaction(row pgx.Row) (store.Transaction, error) {
	var (
		txn         store.Transaction
		customerID  string
		items       []byte
		debtAfter   *int64
		pointsAfter *int64
	)
	err := row.Scan(&txn.ID, &txn.ReceiptNumber, &txn.Kind, &customerID, &txn.CashierID,
		&items, &txn.CartSubtotal, &txn.CashTendered, &txn.Settlement.TotalDue,
		&txn.Settlement.DebtPaid, &txn.Settlement.NewDebt, &txn.Settlement.Change,
		&txn.Settlement.PointsEarned, &debtAfter, &pointsAfter, &txn.CreatedAt)
	if err != nil {
		return store.Transaction{}, mapRowErr(err)
	}
	if customerID != "" {
		txn.CustomerID = &customerID
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &txn.Items); err != nil {
			return store.Transaction{}, err
		}
	}
	if debtAfter != nil && pointsAfter != nil && txn.CustomerID != nil {
		txn.Settlement.LedgerAfter = &settlement.Ledger{
			CustomerID:      *txn.CustomerID,
			OutstandingDebt: *debtAfter,
			LoyaltyPoints:   *pointsAfter,
		}
	}
	return txn, nil
}

// ListTransactions returns filtered history, newest first.
func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]store.Transaction, int64, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		conds []string
		args  []any
	)
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions`+where+
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]store.Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, txn)
	}
	return out, total, rows.Err()
}

// GetTransaction fetches one transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (store.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetTransactionByReceipt fetches one transaction by receipt number.
func (s *Store) GetTransactionByReceipt(ctx context.Context, receiptNumber string) (store.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE receipt_number = $1`, receiptNumber))
}

// GetUserByEmail fetches an account by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, roles, created_at
		FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt)
	if err != nil {
		return store.User{}, mapRowErr(err)
	}
	return u, nil
}

// GetUserByID fetches an account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, roles, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt)
	if err != nil {
		return store.User{}, mapRowErr(err)
	}
	return u, nil
}

// CreateUser inserts an account.
func (s *Store) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	if len(u.Roles) == 0 {
		u.Roles = []string{"cashier"}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.Roles, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.User{}, store.ErrConflict
		}
		return store.User{}, err
	}
	return u, nil
}

// SalesDailyRange aggregates sale transactions per day, inclusive of from and
// exclusive of to.
func (s *Store) SalesDailyRange(ctx context.Context, from, to time.Time) ([]store.DailySales, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(cart_subtotal), 0)
		FROM transactions
		WHERE kind = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY day
		ORDER BY day`,
		store.KindSale, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.DailySales, 0, 31)
	for rows.Next() {
		var d store.DailySales
		if err := rows.Scan(&d.Day, &d.Transactions, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopProducts ranks products by quantity sold across all sale transactions.
func (s *Store) TopProducts(ctx context.Context, limit, offset int32) ([]store.TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `
		SELECT item->>'productId',
		       MAX(item->>'name'),
		       SUM((item->>'quantity')::bigint),
		       SUM((item->>'lineTotal')::bigint)
		FROM transactions, jsonb_array_elements(items) AS item
		WHERE kind = $1
		GROUP BY item->>'productId'
		ORDER BY SUM((item->>'quantity')::bigint) DESC
		LIMIT $2 OFFSET $3`,
		store.KindSale, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.TopProduct, 0, limit)
	for rows.Next() {
		var p store.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SalesOverview aggregates totals for a period.
func (s *Store) SalesOverview(ctx context.Context, from, to time.Time) (store.Overview, error) {
	var o store.Overview
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cart_subtotal), 0), COUNT(*)
		FROM transactions
		WHERE kind = $1 AND created_at >= $2 AND created_at < $3`,
		store.KindSale, from, to).Scan(&o.TotalSales, &o.TotalTransactions)
	if err != nil {
		return store.Overview{}, err
	}
	if o.TotalTransactions > 0 {
		o.AverageTransaction = o.TotalSales / o.TotalTransactions
	}
	return o, nil
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
