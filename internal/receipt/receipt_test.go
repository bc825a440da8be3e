package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
)

func sampleTransaction() store.Transaction {
	customerID := "cust-1"
	return store.Transaction{
		ID:            "txn-1",
		ReceiptNumber: "RCP-20260829-000042",
		Kind:          store.KindSale,
		CustomerID:    &customerID,
		Items: []store.TransactionItem{
			{ProductID: "p1", Name: "Kopi Susu", UnitPrice: 18_000, Quantity: 2, LineTotal: 36_000},
			{ProductID: "p2", Name: "Roti Bakar Coklat Keju Spesial", UnitPrice: 14_000, Quantity: 1, LineTotal: 14_000},
		},
		CartSubtotal: 50_000,
		CashTendered: 100_000,
		Settlement: settlement.Result{
			TotalDue:     80_000,
			DebtPaid:     30_000,
			Change:       20_000,
			PointsEarned: 2,
			LedgerAfter: &settlement.Ledger{
				CustomerID:      customerID,
				OutstandingDebt: 0,
				LoyaltyPoints:   12,
			},
		},
		CreatedAt: time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC),
	}
}

func TestNumber(t *testing.T) {
	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	got := Number(day, 42)
	want := "RCP-20260829-000042"
	if got != want {
		t.Fatalf("Number = %q, want %q", got, want)
	}
}

func TestSummarizeReconstructsPreviousPoints(t *testing.T) {
	s := Summarize(sampleTransaction(), "Budi")
	if s.PreviousPoints != 10 {
		t.Fatalf("previousPoints = %d, want 10", s.PreviousPoints)
	}
	if s.TotalPoints != 12 || s.PointsEarned != 2 {
		t.Fatalf("points = %d earned %d, want 12 and 2", s.TotalPoints, s.PointsEarned)
	}
	if s.TotalToPay != 80_000 || s.Change != 20_000 {
		t.Fatalf("totals = %d change %d", s.TotalToPay, s.Change)
	}
	if s.TotalOutstandingDebt != 0 {
		t.Fatalf("outstanding debt = %d, want 0", s.TotalOutstandingDebt)
	}
}

func TestSummarizeGuestSale(t *testing.T) {
	txn := sampleTransaction()
	txn.CustomerID = nil
	txn.Settlement.LedgerAfter = nil
	txn.Settlement.DebtPaid = 0
	txn.Settlement.TotalDue = txn.CartSubtotal

	s := Summarize(txn, "")
	if s.TotalPoints != 0 || s.PreviousPoints != 0 || s.TotalOutstandingDebt != 0 {
		t.Fatalf("guest summary carries ledger fields: %+v", s)
	}
}

func TestRenderFitsPrinterWidth(t *testing.T) {
	out := Render(sampleTransaction(), "Toko Kasirku", "Budi")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if len(line) > Width {
			t.Fatalf("line exceeds %d cols: %q", Width, line)
		}
	}
}

func TestRenderContents(t *testing.T) {
	out := Render(sampleTransaction(), "Toko Kasirku", "Budi")
	for _, want := range []string{
		"RCP-20260829-000042",
		"Kopi Susu",
		"2 x Rp18.000",
		"Rp36.000",
		"Bayar hutang",
		"Rp30.000",
		"Kembalian",
		"Rp20.000",
		"Pelanggan: Budi",
		"Total poin",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("receipt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hutang baru") {
		t.Fatalf("receipt shows new debt line without new debt:\n%s", out)
	}
}
