package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
	"github.com/dmarkovic/hostwise/services/property-service/internal/storage"
)

// TopicTenantRatesUpdated is published by the platform when a tenant changes
// its default commission or tax settings.
const TopicTenantRatesUpdated = "platform.tenant.rates.updated.v1"

type tenantRatesPayload struct {
	TenantID                 string    `json:"tenantId"`
	SalesCommissionRate      float64   `json:"salesCommissionRate"`
	CollectionCommissionRate float64   `json:"collectionCommissionRate"`
	TaxRate                  float64   `json:"taxRate"`
	ApplyTax                 bool      `json:"applyTax"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// TenantRatesHandler applies rates updates to the local tenant_rates table.
func TenantRatesHandler(logger *slog.Logger, rates *storage.RatesRepository) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload tenantRatesPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			// Malformed payloads are logged and dropped. Retrying cannot fix
			// a bad message and would wedge the partition.
			logger.Error("tenant rates payload unmarshal failed", "err", err)
			return nil
		}
		if payload.TenantID == "" {
			logger.Error("tenant rates event missing tenantId")
			return nil
		}
		if payload.UpdatedAt.IsZero() {
			payload.UpdatedAt = time.Now().UTC()
		}

		err := rates.Upsert(ctx, &model.TenantRates{
			TenantID:                 payload.TenantID,
			SalesCommissionRate:      payload.SalesCommissionRate,
			CollectionCommissionRate: payload.CollectionCommissionRate,
			TaxRate:                  payload.TaxRate,
			ApplyTax:                 payload.ApplyTax,
			UpdatedAt:                payload.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("upsert tenant rates for %s: %w", payload.TenantID, err)
		}
		logger.Info("tenant rates updated", "tenant_id", payload.TenantID)
		return nil
	}
}
