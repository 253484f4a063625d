//go:build protogen

package rates

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmarkovic/hostwise/libs/grpcx"
	platformv1 "github.com/dmarkovic/hostwise/protos/gen/platform/v1"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
)

type grpcProvider struct {
	client   platformv1.PlatformServiceClient
	fallback Provider
}

// NewPlatformRatesProvider asks the platform service directly and falls back
// to the local table when the service is unreachable.
func NewPlatformRatesProvider(logger *slog.Logger, repo *storage.RatesRepository, fallback model.TenantRates, addr string) (Provider, error) {
	local := NewStoreProvider(repo, fallback)
	if addr == "" {
		return local, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, addr, 5*time.Second)
	if err != nil {
		logger.Warn("grpc rates provider unavailable, using local table", "err", err)
		return local, nil
	}

	logger.Info("grpc rates provider enabled", "addr", addr)
	return &grpcProvider{client: platformv1.NewPlatformServiceClient(conn), fallback: local}, nil
}

func (p *grpcProvider) DefaultRates(ctx context.Context, tenantID string) (model.TenantRates, error) {
	resp, err := p.client.GetTenantRates(ctx, &platformv1.TenantRatesRequest{TenantId: tenantID})
	if err != nil {
		return p.fallback.DefaultRates(ctx, tenantID)
	}
	return model.TenantRates{
		TenantID:                 tenantID,
		SalesCommissionRate:      resp.GetSalesCommissionRate(),
		CollectionCommissionRate: resp.GetCollectionCommissionRate(),
		TaxRate:                  resp.GetTaxRate(),
		ApplyTax:                 resp.GetApplyTax(),
		UpdatedAt:                time.Now().UTC(),
	}, nil
}
