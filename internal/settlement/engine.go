package settlement

import "errors"

// Money represents a monetary value stored in minor units (rupiah).
type Money = int64

// DefaultPointsDivisor is the amount of new cart spend that earns one loyalty point.
const DefaultPointsDivisor Money = 20_000

var (
	// ErrMissingCustomerForDebt is returned when a checkout would create debt
	// without a customer attached to hold it.
	ErrMissingCustomerForDebt = errors.New("settlement: cannot incur debt without a customer")
	// ErrInsufficientPoints indicates a redemption request exceeds the available balance.
	ErrInsufficientPoints = errors.New("settlement: insufficient loyalty points")
	// ErrOverpayment is returned by strict-mode debt payment when the amount exceeds the outstanding debt.
	ErrOverpayment = errors.New("settlement: payment exceeds outstanding debt")
	// ErrNegativeAmount is returned when a monetary input is negative.
	ErrNegativeAmount = errors.New("settlement: amount must not be negative")
)

// Ledger is a snapshot of a customer's debt and loyalty balances.
type Ledger struct {
	CustomerID      string `json:"customerId"`
	OutstandingDebt Money  `json:"outstandingDebt"`
	LoyaltyPoints   int64  `json:"loyaltyPoints"`
}

// Input captures everything the engine needs to settle a checkout.
type Input struct {
	CartSubtotal Money
	Ledger       *Ledger
	CashTendered Money
	IncludeDebt  bool
}

// Result is the immutable outcome of a settlement computation.
type Result struct {
	TotalDue     Money   `json:"totalDue"`
	DebtPaid     Money   `json:"debtPaidThisTransaction"`
	NewDebt      Money   `json:"newDebtIncurred"`
	Change       Money   `json:"change"`
	PointsEarned int64   `json:"pointsEarned"`
	LedgerAfter  *Ledger `json:"customerLedgerAfter,omitempty"`
}

// Engine computes settlements. The zero value is usable.
type Engine struct {
	// PointsDivisor overrides the spend-per-point ratio when positive.
	PointsDivisor Money
	// StrictOverpay makes PayOffDebt reject amounts above the outstanding
	// debt instead of clamping the remainder to zero.
	StrictOverpay bool
}

func (e Engine) divisor() Money {
	if e.PointsDivisor > 0 {
		return e.PointsDivisor
	}
	return DefaultPointsDivisor
}

// Compute reconciles a cart subtotal against cash tendered and the customer's
// prior debt. Cash is applied to the current cart first; only the remainder
// retires old debt. Debt from underpaying the current cart is incurred
// regardless of whether old debt was included in the payment.
func (e Engine) Compute(in Input) (Result, error) {
	if in.CartSubtotal < 0 || in.CashTendered < 0 {
		return Result{}, ErrNegativeAmount
	}

	var priorDebt Money
	var priorPoints int64
	if in.Ledger != nil {
		priorDebt = in.Ledger.OutstandingDebt
		priorPoints = in.Ledger.LoyaltyPoints
	}

	totalDue := in.CartSubtotal
	if in.IncludeDebt {
		totalDue += priorDebt
	}

	var debtPaid Money
	if in.IncludeDebt {
		cashAfterCart := in.CashTendered - in.CartSubtotal
		if cashAfterCart < 0 {
			cashAfterCart = 0
		}
		debtPaid = priorDebt
		if cashAfterCart < debtPaid {
			debtPaid = cashAfterCart
		}
	}

	newDebt := in.CartSubtotal - in.CashTendered
	if newDebt < 0 {
		newDebt = 0
	}

	change := in.CashTendered - totalDue
	if change < 0 {
		change = 0
	}

	// Points accrue on new cart spend only, never on debt payment.
	pointsEarned := in.CartSubtotal / e.divisor()

	if in.Ledger == nil {
		if newDebt > 0 {
			return Result{}, ErrMissingCustomerForDebt
		}
		return Result{
			TotalDue:     totalDue,
			DebtPaid:     debtPaid,
			NewDebt:      newDebt,
			Change:       change,
			PointsEarned: pointsEarned,
		}, nil
	}

	after := Ledger{
		CustomerID:      in.Ledger.CustomerID,
		OutstandingDebt: priorDebt - debtPaid + newDebt,
		LoyaltyPoints:   priorPoints + pointsEarned,
	}
	return Result{
		TotalDue:     totalDue,
		DebtPaid:     debtPaid,
		NewDebt:      newDebt,
		Change:       change,
		PointsEarned: pointsEarned,
		LedgerAfter:  &after,
	}, nil
}

// RedeemPoints decrements the loyalty balance, failing when the request
// exceeds what the customer holds.
func (e Engine) RedeemPoints(ledger Ledger, points int64) (Ledger, error) {
	if points < 0 {
		return Ledger{}, ErrNegativeAmount
	}
	if points > ledger.LoyaltyPoints {
		return Ledger{}, ErrInsufficientPoints
	}
	ledger.LoyaltyPoints -= points
	return ledger, nil
}

// PayOffDebt applies a direct payment against outstanding debt. Overpayment
// clamps the balance to zero unless StrictOverpay is set.
func (e Engine) PayOffDebt(ledger Ledger, amount Money) (Ledger, error) {
	if amount < 0 {
		return Ledger{}, ErrNegativeAmount
	}
	if e.StrictOverpay && amount > ledger.OutstandingDebt {
		return Ledger{}, ErrOverpayment
	}
	remaining := ledger.OutstandingDebt - amount
	if remaining < 0 {
		remaining = 0
	}
	ledger.OutstandingDebt = remaining
	return ledger, nil
}
