package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmarkovic/hostwise/libs/db"
	"github.com/dmarkovic/hostwise/services/property-service/internal/model"
)

type GuideRepository struct {
	pool *db.Pool
}

func NewGuideRepository(pool *db.Pool) *GuideRepository {
	return &GuideRepository{pool: pool}
}

// Upsert writes the guide keyed by (tenant, property, slug) and returns the
// row id. Repeated saves of the same slug replace the content.
func (r *GuideRepository) Upsert(ctx context.Context, g *model.Guide) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO guides (tenant_id, property_id, slug, title, body, published)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, property_id, slug) DO UPDATE
		SET title = EXCLUDED.title,
			body = EXCLUDED.body,
			published = EXCLUDED.published,
			updated_at = now()
		RETURNING id
	`, g.TenantID, g.PropertyID, g.Slug, g.Title, g.Body, g.Published).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *GuideRepository) GetBySlug(ctx context.Context, tenantID, propertyID, slug string) (model.Guide, error) {
	var g model.Guide
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, property_id, slug, title, body, published, created_at, updated_at
		FROM guides
		WHERE tenant_id = $1 AND property_id = $2 AND slug = $3
	`, tenantID, propertyID, slug).Scan(
		&g.ID,
		&g.TenantID,
		&g.PropertyID,
		&g.Slug,
		&g.Title,
		&g.Body,
		&g.Published,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return model.Guide{}, err
	}
	return g, nil
}

// GetPublished serves the unauthenticated guest view. Unpublished guides are
// indistinguishable from missing ones.
func (r *GuideRepository) GetPublished(ctx context.Context, tenantID, propertyID, slug string) (model.Guide, error) {
	var g model.Guide
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, property_id, slug, title, body, published, created_at, updated_at
		FROM guides
		WHERE tenant_id = $1 AND property_id = $2 AND slug = $3 AND published
	`, tenantID, propertyID, slug).Scan(
		&g.ID,
		&g.TenantID,
		&g.PropertyID,
		&g.Slug,
		&g.Title,
		&g.Body,
		&g.Published,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return model.Guide{}, err
	}
	return g, nil
}

func (r *GuideRepository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]model.Guide, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, property_id, slug, title, body, published, created_at, updated_at
		FROM guides
		WHERE tenant_id = $1 AND property_id = $2
		ORDER BY slug ASC
	`, tenantID, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guides []model.Guide
	for rows.Next() {
		var g model.Guide
		if err := rows.Scan(
			&g.ID,
			&g.TenantID,
			&g.PropertyID,
			&g.Slug,
			&g.Title,
			&g.Body,
			&g.Published,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return guides, nil
}

func (r *GuideRepository) SetPublished(ctx context.Context, tenantID, propertyID, slug string, published bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE guides
		SET published = $4, updated_at = now()
		WHERE tenant_id = $1 AND property_id = $2 AND slug = $3
	`, tenantID, propertyID, slug, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
