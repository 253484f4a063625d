package model

import "time"

// TenantRates are the default commission and tax settings applied when a
// booking request does not carry explicit rates. Updated out of band by the
// platform, delivered to this service over Kafka.
type TenantRates struct {
	TenantID                 string
	SalesCommissionRate      float64
	CollectionCommissionRate float64
	TaxRate                  float64
	ApplyTax                 bool
	UpdatedAt                time.Time
}
