package treatment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	var description *string
	var minutes *int
	var cost *float64

	err := row.Scan(&t.ID, &t.Name, &description, &minutes, &cost, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	t.Description = description
	t.EstimatedMinutes = minutes
	t.Cost = cost
	return &t, nil
}

func (r *PgRepository) List(ctx context.Context) ([]Treatment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, estimated_minutes, cost, created_at
		FROM treatments
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Treatment
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, estimated_minutes, cost, created_at
		FROM treatments
		WHERE id = $1
	`, id)
	return scanTreatment(row)
}
