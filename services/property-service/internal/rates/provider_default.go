//go:build !protogen

package rates

import (
	"log/slog"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
)

func NewPlatformRatesProvider(_ *slog.Logger, repo *storage.RatesRepository, fallback model.TenantRates, _ string) (Provider, error) {
	return NewStoreProvider(repo, fallback), nil
}
