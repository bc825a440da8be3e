package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/cart"
	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/lock"
	"github.com/kasirku/backend-pos/internal/obs"
	"github.com/kasirku/backend-pos/internal/receipt"
	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
)

// TaskSettlementRecorded is the asynq task emitted after every committed
// settlement. The worker refreshes analytics caches and logs the receipt.
const TaskSettlementRecorded = "settlement:recorded"

// SettlementRecordedPayload is the task body for TaskSettlementRecorded.
type SettlementRecordedPayload struct {
	TransactionID string `json:"transactionId"`
	ReceiptNumber string `json:"receiptNumber"`
	CustomerID    string `json:"customerId,omitempty"`
}

// Input is the checkout request.
type Input struct {
	CartID       string `json:"cartId" validate:"required"`
	CashTendered int64  `json:"cashTendered" validate:"gte=0"`
	IncludeDebt  bool   `json:"includeDebt"`
}

// Output is the checkout response: the committed transaction plus the
// receipt breakdown.
type Output struct {
	Transaction store.Transaction `json:"transaction"`
	Receipt     receipt.Summary   `json:"receipt"`
	ReceiptText string            `json:"receiptText"`
}

// Service runs the settlement workflow: snapshot the cart, compute the
// settlement, commit atomically, then clear the cart and notify the worker.
type Service struct {
	Store     store.Store
	Carts     *cart.Service
	Engine    settlement.Engine
	Locker    lock.Locker
	LockTTL   time.Duration
	Tasks     *asynq.Client
	Logger    zerolog.Logger
	StoreName string
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func customerLockKey(customerID string) string {
	return fmt.Sprintf("lock:ledger:%s", customerID)
}

// Checkout settles the cart. Registered-customer settlements run under a
// per-customer Redis lock so two registers cannot interleave ledger writes.
func (s *Service) Checkout(ctx context.Context, cashierID string, in Input) (Output, error) {
	started := s.now()

	c, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return Output{}, &common.AppError{HTTPStatus: http.StatusNotFound, Code: "CART_NOT_FOUND", Message: "cart not found or expired"}
		}
		return Output{}, err
	}
	if len(c.Items) == 0 {
		return Output{}, &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: "CART_EMPTY", Message: "cannot settle an empty cart"}
	}

	var out Output
	if c.CustomerID != nil {
		err = s.Locker.WithLock(ctx, customerLockKey(*c.CustomerID), s.lockTTL(), func(ctx context.Context) error {
			out, err = s.settle(ctx, cashierID, c, in)
			return err
		})
	} else {
		out, err = s.settle(ctx, cashierID, c, in)
	}

	label := "guest"
	if c.CustomerID != nil {
		label = "registered"
	}
	if err != nil {
		if obs.CheckoutTotal != nil {
			obs.CheckoutTotal.WithLabelValues("error", label).Inc()
		}
		return Output{}, err
	}
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues("ok", label).Inc()
		obs.CheckoutDuration.Observe(float64(s.now().Sub(started).Milliseconds()))
		obs.DebtPaidTotal.Add(float64(out.Transaction.Settlement.DebtPaid))
		obs.DebtIncurredTotal.Add(float64(out.Transaction.Settlement.NewDebt))
		obs.PointsEarnedTotal.Add(float64(out.Transaction.Settlement.PointsEarned))
	}
	return out, nil
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 10 * time.Second
}

func (s *Service) settle(ctx context.Context, cashierID string, c cart.Cart, in Input) (Output, error) {
	var (
		ledger       *settlement.Ledger
		customerName string
	)
	if c.CustomerID != nil {
		cust, err := s.Store.GetCustomer(ctx, *c.CustomerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Output{}, &common.AppError{HTTPStatus: http.StatusNotFound, Code: "CUSTOMER_NOT_FOUND", Message: "customer not found"}
			}
			return Output{}, err
		}
		snapshot := cust.Ledger()
		ledger = &snapshot
		customerName = cust.Name
	}

	result, err := s.Engine.Compute(settlement.Input{
		CartSubtotal: c.Subtotal(),
		Ledger:       ledger,
		CashTendered: in.CashTendered,
		IncludeDebt:  in.IncludeDebt,
	})
	if err != nil {
		return Output{}, mapEngineError(err)
	}

	now := s.now()
	seq, err := s.Store.NextReceiptSeq(ctx, now)
	if err != nil {
		return Output{}, fmt.Errorf("allocate receipt number: %w", err)
	}

	txn := store.Transaction{
		ID:            uuid.NewString(),
		ReceiptNumber: receipt.Number(now, seq),
		Kind:          store.KindSale,
		CustomerID:    c.CustomerID,
		CashierID:     cashierID,
		Items:         cart.Snapshot(c),
		CartSubtotal:  c.Subtotal(),
		CashTendered:  in.CashTendered,
		Settlement:    result,
		CreatedAt:     now,
	}

	committed, err := s.Store.CommitSettlement(ctx, txn, result.LedgerAfter)
	if err != nil {
		s.Logger.Error().Err(err).Str("receipt", txn.ReceiptNumber).Msg("settlement commit failed")
		return Output{}, &common.AppError{HTTPStatus: http.StatusInternalServerError, Code: "STORAGE_COMMIT_FAILED", Message: "settlement could not be recorded"}
	}

	// The sale is durable from here. Cart cleanup and worker notification
	// are best effort and must not fail the checkout.
	if err := s.Carts.Clear(ctx, c.ID); err != nil {
		s.Logger.Warn().Err(err).Str("cart", c.ID).Msg("clear cart after settlement")
	}
	s.enqueueRecorded(ctx, committed)

	return Output{
		Transaction: committed,
		Receipt:     receipt.Summarize(committed, customerName),
		ReceiptText: receipt.Render(committed, s.StoreName, customerName),
	}, nil
}

func (s *Service) enqueueRecorded(ctx context.Context, txn store.Transaction) {
	if s.Tasks == nil {
		return
	}
	payload := SettlementRecordedPayload{
		TransactionID: txn.ID,
		ReceiptNumber: txn.ReceiptNumber,
	}
	if txn.CustomerID != nil {
		payload.CustomerID = *txn.CustomerID
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	task := asynq.NewTask(TaskSettlementRecorded, raw)
	if _, err := s.Tasks.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)); err != nil {
		s.Logger.Warn().Err(err).Str("receipt", txn.ReceiptNumber).Msg("enqueue settlement task")
	}
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, settlement.ErrMissingCustomerForDebt):
		return &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: "MISSING_CUSTOMER_FOR_DEBT", Message: "cash tendered does not cover the cart and no customer is attached"}
	case errors.Is(err, settlement.ErrNegativeAmount):
		return &common.AppError{HTTPStatus: http.StatusBadRequest, Code: "VALIDATION", Message: "amounts must not be negative"}
	case errors.Is(err, settlement.ErrOverpayment):
		return &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: "OVERPAYMENT", Message: "cash tendered exceeds the total due"}
	default:
		return err
	}
}
