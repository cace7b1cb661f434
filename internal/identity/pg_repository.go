package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.AuthID, &u.DocumentNumber, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByDocument(ctx context.Context, document string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth_id, document_number, email, role, created_at
		FROM users
		WHERE document_number = $1
	`, document)
	return scanUser(row)
}

func (r *PgUserRepository) FindByAuthID(ctx context.Context, authID uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth_id, document_number, email, role, created_at
		FROM users
		WHERE auth_id = $1
	`, authID)
	return scanUser(row)
}

func (r *PgUserRepository) Create(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, auth_id, document_number, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, auth_id, document_number, email, role, created_at
	`, u.ID, u.AuthID, u.DocumentNumber, u.Email, u.Role)
	return scanUser(row)
}

func (r *PgUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
