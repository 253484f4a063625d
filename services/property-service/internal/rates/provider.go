package rates

import (
	"context"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
)

// Provider supplies a tenant's default commission and tax settings for
// bookings that do not carry explicit rates.
type Provider interface {
	DefaultRates(ctx context.Context, tenantID string) (model.TenantRates, error)
}

type storeProvider struct {
	repo     *storage.RatesRepository
	fallback model.TenantRates
}

// NewStoreProvider reads rates from the local tenant_rates table, which the
// Kafka consumer keeps in sync with the platform. Tenants the platform has
// never announced get the fallback.
func NewStoreProvider(repo *storage.RatesRepository, fallback model.TenantRates) Provider {
	return &storeProvider{repo: repo, fallback: fallback}
}

func (p *storeProvider) DefaultRates(ctx context.Context, tenantID string) (model.TenantRates, error) {
	rates, err := p.repo.Get(ctx, tenantID)
	if err != nil {
		if storage.IsNotFound(err) {
			fb := p.fallback
			fb.TenantID = tenantID
			return fb, nil
		}
		return model.TenantRates{}, err
	}
	return rates, nil
}

type staticProvider struct {
	rates model.TenantRates
}

func NewStaticProvider(rates model.TenantRates) Provider {
	return &staticProvider{rates: rates}
}

func (p *staticProvider) DefaultRates(_ context.Context, tenantID string) (model.TenantRates, error) {
	out := p.rates
	out.TenantID = tenantID
	return out, nil
}
