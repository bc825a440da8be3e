package customer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/lock"
	"github.com/kasirku/backend-pos/internal/obs"
	"github.com/kasirku/backend-pos/internal/receipt"
	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
)

// Loyalty tiers. Lifetime points are not tracked, the level reads from the
// current balance.
const (
	LevelGold   = "Gold"
	LevelSilver = "Silver"
	LevelBronze = "Bronze"
)

// Level maps a points balance to the loyalty tier shown at the register.
func Level(points int64) string {
	switch {
	case points >= 1000:
		return LevelGold
	case points >= 500:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// Service exposes customer records and the standalone ledger operations
// that run outside a sale.
type Service struct {
	Store   store.Store
	Engine  settlement.Engine
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func ledgerLockKey(customerID string) string {
	return fmt.Sprintf("lock:ledger:%s", customerID)
}

// List returns customers matching the query with their loyalty level.
func (s *Service) List(ctx context.Context, query string, limit, offset int32) ([]store.Customer, int64, error) {
	return s.Store.ListCustomers(ctx, query, limit, offset)
}

// Get fetches one customer.
func (s *Service) Get(ctx context.Context, id string) (store.Customer, error) {
	return s.Store.GetCustomer(ctx, id)
}

// Create registers a customer with zeroed balances.
func (s *Service) Create(ctx context.Context, c store.Customer) (store.Customer, error) {
	return s.Store.CreateCustomer(ctx, c)
}

// Update rewrites contact details.
func (s *Service) Update(ctx context.Context, c store.Customer) (store.Customer, error) {
	return s.Store.UpdateCustomer(ctx, c)
}

// RedeemPoints deducts points from the customer's balance. The balance can
// never go negative.
func (s *Service) RedeemPoints(ctx context.Context, customerID string, points int64) (settlement.Ledger, error) {
	var after settlement.Ledger
	err := s.withLedgerLock(ctx, customerID, func(ctx context.Context) error {
		var err error
		after, err = s.Store.MutateLedger(ctx, customerID, func(l settlement.Ledger) (settlement.Ledger, error) {
			return s.Engine.RedeemPoints(l, points)
		})
		return err
	})
	s.countMutation("redeem_points", err)
	if err != nil {
		return settlement.Ledger{}, mapLedgerError(err)
	}
	return after, nil
}

// PayDebt collects cash against outstanding debt outside a sale and records
// it as a DEBT_PAYMENT transaction. Overpayment is clamped and the excess
// returned as change on the receipt.
func (s *Service) PayDebt(ctx context.Context, customerID, cashierID string, amount int64) (store.Transaction, error) {
	var txn store.Transaction
	err := s.withLedgerLock(ctx, customerID, func(ctx context.Context) error {
		cust, err := s.Store.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		before := cust.Ledger()
		after, err := s.Engine.PayOffDebt(before, amount)
		if err != nil {
			return err
		}
		paid := before.OutstandingDebt - after.OutstandingDebt
		change := amount - paid
		if change < 0 {
			change = 0
		}

		now := s.now()
		seq, err := s.Store.NextReceiptSeq(ctx, now)
		if err != nil {
			return fmt.Errorf("allocate receipt number: %w", err)
		}
		txn = store.Transaction{
			ID:            uuid.NewString(),
			ReceiptNumber: receipt.Number(now, seq),
			Kind:          store.KindDebtPayment,
			CustomerID:    &customerID,
			CashierID:     cashierID,
			Items:         []store.TransactionItem{},
			CashTendered:  amount,
			Settlement: settlement.Result{
				TotalDue:    before.OutstandingDebt,
				DebtPaid:    paid,
				Change:      change,
				LedgerAfter: &after,
			},
			CreatedAt: now,
		}
		txn, err = s.Store.CommitSettlement(ctx, txn, &after)
		if err != nil {
			s.Logger.Error().Err(err).Str("customer", customerID).Msg("debt payment commit failed")
			return &common.AppError{HTTPStatus: http.StatusInternalServerError, Code: "STORAGE_COMMIT_FAILED", Message: "debt payment could not be recorded"}
		}
		if obs.DebtPaidTotal != nil {
			obs.DebtPaidTotal.Add(float64(paid))
		}
		return nil
	})
	s.countMutation("pay_debt", err)
	if err != nil {
		return store.Transaction{}, mapLedgerError(err)
	}
	return txn, nil
}

func (s *Service) withLedgerLock(ctx context.Context, customerID string, fn func(context.Context) error) error {
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if s.Locker.R == nil {
		return fn(ctx)
	}
	return s.Locker.WithLock(ctx, ledgerLockKey(customerID), ttl, fn)
}

func (s *Service) countMutation(kind string, err error) {
	if obs.LedgerMutationTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.LedgerMutationTotal.WithLabelValues(kind, result).Inc()
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, settlement.ErrInsufficientPoints):
		return &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: "INSUFFICIENT_POINTS", Message: "not enough loyalty points"}
	case errors.Is(err, settlement.ErrNegativeAmount):
		return &common.AppError{HTTPStatus: http.StatusBadRequest, Code: "VALIDATION", Message: "amount must be positive"}
	case errors.Is(err, settlement.ErrOverpayment):
		return &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: "OVERPAYMENT", Message: "payment exceeds outstanding debt"}
	case errors.Is(err, store.ErrNotFound):
		return &common.AppError{HTTPStatus: http.StatusNotFound, Code: "CUSTOMER_NOT_FOUND", Message: "customer not found"}
	default:
		return err
	}
}
