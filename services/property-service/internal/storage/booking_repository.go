package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmarkovic/hostwise/libs/db"
	"github.com/dmarkovic/hostwise/services/property-service/internal/calendar"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

const bookingColumns = `id, tenant_id, property_id, check_in, check_out, booking_type, status,
	COALESCE(guest_name, ''), COALESCE(guest_email, ''), COALESCE(guest_phone, ''),
	base_price, nights, sales_commission_rate, collection_commission_rate, tax_rate, tax_applied,
	total_amount, sales_commission_amount, collection_commission_amount, tax_amount, net_amount,
	cancelled_at, COALESCE(cancellation_reason, ''), created_at`

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	TenantID        string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockIdempotencyKey claims the (tenant, key) pair inside tx. The boolean is
// true when a previous request already finalized a response for the key, in
// which case the caller replays the stored payload instead of re-executing.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, tenantID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, tenantID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (tenant_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`, tenantID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, tenantID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, tenantID, key, bookingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key, bookingID, statusCode, response)
	return err
}

// Create inserts the booking row. The bookings table carries an exclusion
// constraint on (tenant_id, property_id, daterange(check_in, check_out))
// for non-cancelled rows, so a concurrent double-book surfaces here as
// SQLSTATE 23P01 regardless of what the advisory check saw.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(tenant_id, property_id, check_in, check_out, booking_type, status,
			guest_name, guest_email, guest_phone,
			base_price, nights, sales_commission_rate, collection_commission_rate, tax_rate, tax_applied,
			total_amount, sales_commission_amount, collection_commission_amount, tax_amount, net_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`, b.TenantID, b.PropertyID, b.CheckIn, b.CheckOut, b.BookingType, b.Status,
		b.GuestName, b.GuestEmail, b.GuestPhone,
		b.BasePrice, b.Nights, b.SalesCommissionRate, b.CollectionCommissionRate, b.TaxRate, b.TaxApplied,
		b.TotalAmount, b.SalesCommissionAmount, b.CollectionCommissionAmount, b.TaxAmount, b.NetAmount).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, tx pgx.Tx, tenantID, bookingID string) (model.Booking, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`, bookingID, tenantID)
	return scanBooking(row)
}

func (r *BookingRepository) GetBooking(ctx context.Context, tenantID, bookingID string) (model.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND tenant_id = $2
	`, bookingID, tenantID)
	return scanBooking(row)
}

// Reschedule moves the stay and stores the re-derived amounts. The exclusion
// constraint re-checks the new range on commit.
func (r *BookingRepository) Reschedule(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET check_in = $3,
			check_out = $4,
			nights = $5,
			total_amount = $6,
			sales_commission_amount = $7,
			collection_commission_amount = $8,
			tax_amount = $9,
			net_amount = $10
		WHERE id = $1 AND tenant_id = $2
	`, b.ID, b.TenantID, b.CheckIn, b.CheckOut, b.Nights,
		b.TotalAmount, b.SalesCommissionAmount, b.CollectionCommissionAmount, b.TaxAmount, b.NetAmount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, tenantID, bookingID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND tenant_id = $2
		RETURNING cancelled_at
	`, bookingID, tenantID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

func (r *BookingRepository) ListByProperty(ctx context.Context, tenantID, propertyID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1 AND property_id = $2
		ORDER BY check_in DESC
		LIMIT $3
	`, tenantID, propertyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

// ActiveReservations implements calendar.ReservationSource. Every clause is
// tenant scoped; the filters map one-to-one onto the resolver's contract.
func (r *BookingRepository) ActiveReservations(ctx context.Context, tenantID, propertyID string, f calendar.FetchFilters) ([]model.Reservation, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, tenant_id, property_id, check_in, check_out, booking_type, status, COALESCE(guest_name, ''), created_at
		FROM bookings
		WHERE tenant_id = $1 AND property_id = $2`)
	args := []any{tenantID, propertyID}

	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		fmt.Fprintf(&query, " AND status = ANY($%d)", len(args))
	}
	if len(f.BookingTypes) > 0 {
		args = append(args, typeStrings(f.BookingTypes))
		fmt.Fprintf(&query, " AND booking_type = ANY($%d)", len(args))
	}
	if f.ExcludeBookingID != "" {
		args = append(args, f.ExcludeBookingID)
		fmt.Fprintf(&query, " AND id <> $%d", len(args))
	}
	query.WriteString(" ORDER BY check_in ASC")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.TenantID,
			&res.PropertyID,
			&res.CheckIn,
			&res.CheckOut,
			&res.BookingType,
			&res.Status,
			&res.GuestName,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return reservations, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, tenantID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT tenant_id::text,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE tenant_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, tenantID, key).Scan(
		&rec.TenantID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.PropertyID,
		&b.CheckIn,
		&b.CheckOut,
		&b.BookingType,
		&b.Status,
		&b.GuestName,
		&b.GuestEmail,
		&b.GuestPhone,
		&b.BasePrice,
		&b.Nights,
		&b.SalesCommissionRate,
		&b.CollectionCommissionRate,
		&b.TaxRate,
		&b.TaxApplied,
		&b.TotalAmount,
		&b.SalesCommissionAmount,
		&b.CollectionCommissionAmount,
		&b.TaxAmount,
		&b.NetAmount,
		&cancelledAt,
		&b.CancelReason,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

func statusStrings(statuses []model.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func typeStrings(types []model.BookingType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
