package financials

import "testing"

func TestCalculateCommissionsAndTax(t *testing.T) {
	got := Calculate(Input{
		BasePrice:                100,
		Nights:                   1,
		SalesCommissionRate:      10,
		CollectionCommissionRate: 5,
		TaxRate:                  10,
		ApplyTax:                 true,
	})
	want := Breakdown{
		TotalAmount:                100,
		SalesCommissionAmount:      10,
		CollectionCommissionAmount: 5,
		TaxAmount:                  9,
		NetAmount:                  76,
	}
	if got != want {
		t.Fatalf("Calculate = %+v, want %+v", got, want)
	}
}

// The tax base subtracts only the sales commission. The collection
// commission stays in the base even though both reduce the net.
func TestCalculateTaxBaseExcludesOnlySalesCommission(t *testing.T) {
	got := Calculate(Input{
		BasePrice:           100,
		Nights:              3,
		SalesCommissionRate: 15,
		TaxRate:             10,
		ApplyTax:            true,
	})
	want := Breakdown{
		TotalAmount:           300,
		SalesCommissionAmount: 45,
		TaxAmount:             25.5,
		NetAmount:             229.5,
	}
	if got != want {
		t.Fatalf("Calculate = %+v, want %+v", got, want)
	}
}

func TestCalculateTaxToggle(t *testing.T) {
	got := Calculate(Input{
		BasePrice:           100,
		Nights:              1,
		SalesCommissionRate: 10,
		TaxRate:             10,
		ApplyTax:            false,
	})
	if got.TaxAmount != 0 {
		t.Fatalf("tax applied despite toggle off: %+v", got)
	}
	if got.NetAmount != 90 {
		t.Fatalf("net = %v, want 90", got.NetAmount)
	}
}

func TestCalculateNetNeverNegative(t *testing.T) {
	got := Calculate(Input{
		BasePrice:                100,
		Nights:                   1,
		SalesCommissionRate:      80,
		CollectionCommissionRate: 40,
		TaxRate:                  21,
		ApplyTax:                 true,
	})
	if got.NetAmount != 0 {
		t.Fatalf("net = %v, want clamp to 0", got.NetAmount)
	}
	// Component amounts are still reported in full.
	if got.SalesCommissionAmount != 80 || got.CollectionCommissionAmount != 40 {
		t.Fatalf("commissions = %v / %v, want 80 / 40", got.SalesCommissionAmount, got.CollectionCommissionAmount)
	}
}

func TestCalculateRoundsEachFieldHalfUp(t *testing.T) {
	got := Calculate(Input{
		BasePrice:                33.333,
		Nights:                   1,
		SalesCommissionRate:      10,
		CollectionCommissionRate: 10,
		TaxRate:                  10,
		ApplyTax:                 true,
	})
	if got.TotalAmount != 33.33 {
		t.Fatalf("total = %v, want 33.33", got.TotalAmount)
	}
	for name, v := range map[string]float64{
		"sales":      got.SalesCommissionAmount,
		"collection": got.CollectionCommissionAmount,
		"tax":        got.TaxAmount,
		"net":        got.NetAmount,
	} {
		if Round2(v) != v {
			t.Fatalf("%s amount %v not rounded to 2 decimals", name, v)
		}
	}
}

func TestCalculateZeroRates(t *testing.T) {
	got := Calculate(Input{BasePrice: 250, Nights: 2})
	if got.TotalAmount != 500 || got.NetAmount != 500 {
		t.Fatalf("zero-rate booking should net the full total, got %+v", got)
	}
	if got.SalesCommissionAmount != 0 || got.CollectionCommissionAmount != 0 || got.TaxAmount != 0 {
		t.Fatalf("unexpected deductions: %+v", got)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{2.004, 2.0},
		{2.006, 2.01},
		{25.504, 25.5},
		{0, 0},
		{229.5, 229.5},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestExpenseItemTotal(t *testing.T) {
	if got := ExpenseItemTotal(100, 21); got != 121 {
		t.Fatalf("ExpenseItemTotal(100, 21) = %v, want 121", got)
	}
	if got := ExpenseItemTotal(49.99, 0); got != 49.99 {
		t.Fatalf("ExpenseItemTotal(49.99, 0) = %v, want 49.99", got)
	}
}

func TestRecalculateNet(t *testing.T) {
	if got := RecalculateNet(300, 45, 0, 25.5); got != 229.5 {
		t.Fatalf("RecalculateNet = %v, want 229.5", got)
	}
	if got := RecalculateNet(100, 80, 40, 21); got != 0 {
		t.Fatalf("RecalculateNet should clamp at 0, got %v", got)
	}
}
