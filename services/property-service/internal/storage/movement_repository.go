package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmarkovic/hostwise/libs/db"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

type MovementRepository struct {
	pool *db.Pool
}

// PropertySummary is one row of the financial rollup: totals per property
// over the requested window.
type PropertySummary struct {
	PropertyID   string
	IncomeTotal  float64
	ExpenseTotal float64
	NetTotal     float64
	Movements    int
}

func NewMovementRepository(pool *db.Pool) *MovementRepository {
	return &MovementRepository{pool: pool}
}

func (r *MovementRepository) Insert(ctx context.Context, m *model.Movement) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO movements
			(tenant_id, property_id, booking_id, kind, concept, amount, tax_percentage, total_amount, occurred_on)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, m.TenantID, m.PropertyID, m.BookingID, m.Kind, m.Concept,
		m.Amount, m.TaxPercentage, m.TotalAmount, m.OccurredOn).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// InsertTx writes the movement inside an open transaction. Used for the
// income row created atomically with its booking.
func (r *MovementRepository) InsertTx(ctx context.Context, tx pgx.Tx, m *model.Movement) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO movements
			(tenant_id, property_id, booking_id, kind, concept, amount, tax_percentage, total_amount, occurred_on)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, m.TenantID, m.PropertyID, m.BookingID, m.Kind, m.Concept,
		m.Amount, m.TaxPercentage, m.TotalAmount, m.OccurredOn).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteBookingIncomeTx removes the auto-recorded income rows for a booking
// so they can be rewritten after a reschedule or dropped on cancellation.
func (r *MovementRepository) DeleteBookingIncomeTx(ctx context.Context, tx pgx.Tx, tenantID, bookingID string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM movements
		WHERE tenant_id = $1
			AND booking_id = $2::uuid
			AND kind = 'income'
	`, tenantID, bookingID)
	return err
}

func (r *MovementRepository) ListByProperty(ctx context.Context, tenantID, propertyID string, from, to time.Time, limit int) ([]model.Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, property_id, COALESCE(booking_id::text, ''), kind, concept,
			amount, tax_percentage, total_amount, occurred_on, created_at
		FROM movements
		WHERE tenant_id = $1
			AND property_id = $2
			AND occurred_on >= $3
			AND occurred_on < $4
		ORDER BY occurred_on DESC, created_at DESC
		LIMIT $5
	`, tenantID, propertyID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.PropertyID,
			&m.BookingID,
			&m.Kind,
			&m.Concept,
			&m.Amount,
			&m.TaxPercentage,
			&m.TotalAmount,
			&m.OccurredOn,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return movements, nil
}

func (r *MovementRepository) SummaryByProperty(ctx context.Context, tenantID string, from, to time.Time) ([]PropertySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT property_id,
			COALESCE(SUM(total_amount) FILTER (WHERE kind = 'income'), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE kind = 'expense'), 0),
			COUNT(*)
		FROM movements
		WHERE tenant_id = $1
			AND occurred_on >= $2
			AND occurred_on < $3
		GROUP BY property_id
		ORDER BY property_id
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []PropertySummary
	for rows.Next() {
		var s PropertySummary
		if err := rows.Scan(&s.PropertyID, &s.IncomeTotal, &s.ExpenseTotal, &s.Movements); err != nil {
			return nil, err
		}
		s.NetTotal = s.IncomeTotal - s.ExpenseTotal
		summaries = append(summaries, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return summaries, nil
}
