package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/kasirku/backend-pos/internal/money"
	"github.com/kasirku/backend-pos/internal/store"
)

// Width is the character width of the thermal printer line.
const Width = 32

// Number formats the per-day receipt counter as RCP-YYYYMMDD-NNNNNN.
func Number(day time.Time, seq int64) string {
	return fmt.Sprintf("RCP-%s-%06d", day.Format("20060102"), seq)
}

// Summary is the customer-facing settlement breakdown printed on the
// success screen and the paper receipt.
type Summary struct {
	ReceiptNumber          string `json:"receiptNumber"`
	Subtotal               int64  `json:"subtotal"`
	TotalToPay             int64  `json:"totalToPay"`
	AmountPaid             int64  `json:"amountPaid"`
	Change                 int64  `json:"change"`
	DebtPaid               int64  `json:"debtPaidThisTransaction"`
	NewDebtThisTransaction int64  `json:"newDebtThisTransaction"`
	TotalOutstandingDebt   int64  `json:"totalOutstandingDebt"`
	PreviousPoints         int64  `json:"previousPoints"`
	PointsEarned           int64  `json:"pointsEarned"`
	TotalPoints            int64  `json:"totalPoints"`
	CustomerName           string `json:"customerName,omitempty"`
}

// Summarize builds the settlement breakdown for a committed transaction.
// previousPoints is reconstructed from the ledger after minus points earned
// so the receipt reads as a before/after statement.
func Summarize(txn store.Transaction, customerName string) Summary {
	s := Summary{
		ReceiptNumber:          txn.ReceiptNumber,
		Subtotal:               txn.CartSubtotal,
		TotalToPay:             txn.Settlement.TotalDue,
		AmountPaid:             txn.CashTendered,
		Change:                 txn.Settlement.Change,
		DebtPaid:               txn.Settlement.DebtPaid,
		NewDebtThisTransaction: txn.Settlement.NewDebt,
		CustomerName:           customerName,
	}
	if after := txn.Settlement.LedgerAfter; after != nil {
		s.TotalOutstandingDebt = after.OutstandingDebt
		s.TotalPoints = after.LoyaltyPoints
		s.PointsEarned = txn.Settlement.PointsEarned
		s.PreviousPoints = after.LoyaltyPoints - txn.Settlement.PointsEarned
	}
	return s
}

// Render produces the plain-text receipt for a 32 column thermal printer.
func Render(txn store.Transaction, storeName, customerName string) string {
	var b strings.Builder
	line := strings.Repeat("-", Width)

	b.WriteString(center(storeName) + "\n")
	b.WriteString(center(txn.CreatedAt.Format("02 Jan 2006 15:04")) + "\n")
	b.WriteString(center(txn.ReceiptNumber) + "\n")
	b.WriteString(line + "\n")

	for _, it := range txn.Items {
		b.WriteString(trimTo(it.Name, Width) + "\n")
		qty := fmt.Sprintf("%d x %s", it.Quantity, money.FormatRupiah(it.UnitPrice))
		b.WriteString(row(qty, money.FormatRupiah(it.LineTotal)) + "\n")
	}
	b.WriteString(line + "\n")

	b.WriteString(row("Subtotal", money.FormatRupiah(txn.CartSubtotal)) + "\n")
	if txn.Settlement.DebtPaid > 0 || txn.Settlement.TotalDue != txn.CartSubtotal {
		b.WriteString(row("Total", money.FormatRupiah(txn.Settlement.TotalDue)) + "\n")
	}
	b.WriteString(row("Tunai", money.FormatRupiah(txn.CashTendered)) + "\n")
	b.WriteString(row("Kembalian", money.FormatRupiah(txn.Settlement.Change)) + "\n")
	if txn.Settlement.DebtPaid > 0 {
		b.WriteString(row("Bayar hutang", money.FormatRupiah(txn.Settlement.DebtPaid)) + "\n")
	}
	if txn.Settlement.NewDebt > 0 {
		b.WriteString(row("Hutang baru", money.FormatRupiah(txn.Settlement.NewDebt)) + "\n")
	}

	if after := txn.Settlement.LedgerAfter; after != nil {
		b.WriteString(line + "\n")
		if customerName != "" {
			b.WriteString(trimTo("Pelanggan: "+customerName, Width) + "\n")
		}
		b.WriteString(row("Sisa hutang", money.FormatRupiah(after.OutstandingDebt)) + "\n")
		if txn.Settlement.PointsEarned > 0 {
			b.WriteString(row("Poin masuk", fmt.Sprintf("+%d", txn.Settlement.PointsEarned)) + "\n")
		}
		b.WriteString(row("Total poin", fmt.Sprintf("%d", after.LoyaltyPoints)) + "\n")
	}

	b.WriteString(line + "\n")
	b.WriteString(center("Terima kasih!") + "\n")
	return b.String()
}

func center(s string) string {
	s = trimTo(s, Width)
	pad := (Width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// row right-aligns the value against the label on one printer line.
func row(label, value string) string {
	gap := Width - len(label) - len(value)
	if gap < 1 {
		label = trimTo(label, Width-len(value)-1)
		gap = Width - len(label) - len(value)
	}
	return label + strings.Repeat(" ", gap) + value
}

func trimTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
