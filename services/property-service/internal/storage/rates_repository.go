package storage

import (
	"context"

	"github.com/dmarkovic/hostwise/libs/db"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

type RatesRepository struct {
	pool *db.Pool
}

func NewRatesRepository(pool *db.Pool) *RatesRepository {
	return &RatesRepository{pool: pool}
}

// Upsert applies a rates update only when it is newer than what is stored.
// Kafka redelivers and the consumer may see events out of order, so the
// updated_at guard makes the write idempotent.
func (r *RatesRepository) Upsert(ctx context.Context, rates *model.TenantRates) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenant_rates
			(tenant_id, sales_commission_rate, collection_commission_rate, tax_rate, apply_tax, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id) DO UPDATE
		SET sales_commission_rate = EXCLUDED.sales_commission_rate,
			collection_commission_rate = EXCLUDED.collection_commission_rate,
			tax_rate = EXCLUDED.tax_rate,
			apply_tax = EXCLUDED.apply_tax,
			updated_at = EXCLUDED.updated_at
		WHERE tenant_rates.updated_at < EXCLUDED.updated_at
	`, rates.TenantID, rates.SalesCommissionRate, rates.CollectionCommissionRate,
		rates.TaxRate, rates.ApplyTax, rates.UpdatedAt)
	return err
}

func (r *RatesRepository) Get(ctx context.Context, tenantID string) (model.TenantRates, error) {
	var rates model.TenantRates
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, sales_commission_rate, collection_commission_rate, tax_rate, apply_tax, updated_at
		FROM tenant_rates
		WHERE tenant_id = $1
	`, tenantID).Scan(
		&rates.TenantID,
		&rates.SalesCommissionRate,
		&rates.CollectionCommissionRate,
		&rates.TaxRate,
		&rates.ApplyTax,
		&rates.UpdatedAt,
	)
	if err != nil {
		return model.TenantRates{}, err
	}
	return rates, nil
}
