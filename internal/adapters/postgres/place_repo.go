package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
)

var _ ports.PlaceCatalog = (*PlaceRepo)(nil)

// PlaceRepo implements ports.PlaceCatalog over the places table.
type PlaceRepo struct {
	db *DB
}

func NewPlaceRepo(db *DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

// FetchAll reads the whole catalog in insertion order.
func (r *PlaceRepo) FetchAll(ctx context.Context) ([]domain.Place, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), latitude, longitude,
		       COALESCE(user_id, ''), created_at
		FROM places ORDER BY created_at, id
	`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var places []domain.Place
	for rows.Next() {
		var p domain.Place
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description,
			&p.Location.Lat, &p.Location.Lon,
			&p.UserID, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return places, nil
}

// Upsert inserts or updates a place. Only used for seeding.
func (r *PlaceRepo) Upsert(ctx context.Context, p *domain.Place) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO places (id, name, description, latitude, longitude, user_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			user_id = EXCLUDED.user_id
	`, p.ID, p.Name, p.Description, p.Location.Lat, p.Location.Lon, p.UserID)
	return classify(err)
}

// Delete removes a place by id.
func (r *PlaceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
