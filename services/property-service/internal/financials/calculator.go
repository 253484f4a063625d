// Package financials is the single source of truth for deriving the monetary
// fields of a booking or movement. Booking creation, editing and reporting
// all call into here so identical inputs always produce identical figures.
package financials

import "math"

// Input is the pricing decision for a stay plus the tenant's rate set.
// Rates are percentages (15 means 15%).
type Input struct {
	BasePrice                float64
	Nights                   int
	SalesCommissionRate      float64
	CollectionCommissionRate float64
	TaxRate                  float64
	ApplyTax                 bool
}

// Breakdown holds every derived monetary figure for a stay, each rounded to
// two decimals independently. Summing rounded fields can therefore differ
// from the unrounded math by a cent; callers must not "correct" that.
type Breakdown struct {
	TotalAmount                float64 `json:"totalAmount"`
	SalesCommissionAmount      float64 `json:"salesCommissionAmount"`
	CollectionCommissionAmount float64 `json:"collectionCommissionAmount"`
	TaxAmount                  float64 `json:"taxAmount"`
	NetAmount                  float64 `json:"netAmount"`
}

// Calculate derives all downstream amounts from a base nightly price under a
// fixed order of operations:
//
//	total = basePrice * nights
//	salesCommission = total * salesRate%
//	collectionCommission = total * collectionRate%
//	tax = (total - salesCommission) * taxRate%   (only when ApplyTax)
//	net = total - salesCommission - collectionCommission - tax, floored at 0
//
// The tax base excludes the sales commission but not the collection
// commission. That asymmetry is the contracted behavior, not an oversight.
//
// Calculate is pure arithmetic: it performs no bounds checking. Callers
// validate non-negative price/nights and 0-100 rates at the request boundary.
func Calculate(in Input) Breakdown {
	total := in.BasePrice * float64(in.Nights)
	salesCommission := total * in.SalesCommissionRate / 100
	collectionCommission := total * in.CollectionCommissionRate / 100

	tax := 0.0
	if in.ApplyTax {
		taxBase := total - salesCommission
		tax = taxBase * in.TaxRate / 100
	}

	net := total - salesCommission - collectionCommission - tax
	if net < 0 {
		net = 0
	}

	return Breakdown{
		TotalAmount:                Round2(total),
		SalesCommissionAmount:      Round2(salesCommission),
		CollectionCommissionAmount: Round2(collectionCommission),
		TaxAmount:                  Round2(tax),
		NetAmount:                  Round2(net),
	}
}

// ExpenseItemTotal returns the gross cost of an expense line: the amount
// plus tax when a positive tax percentage applies, the amount untouched
// otherwise.
func ExpenseItemTotal(amount, taxPercentage float64) float64 {
	if taxPercentage > 0 {
		return Round2(amount + amount*taxPercentage/100)
	}
	return amount
}

// RecalculateNet keeps the net consistent after a manual override of a
// commission or tax figure, without re-deriving the commissions themselves.
// The result is clamped at zero.
func RecalculateNet(total, salesCommission, collectionCommission, tax float64) float64 {
	net := total - salesCommission - collectionCommission - tax
	if net < 0 {
		net = 0
	}
	return Round2(net)
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
