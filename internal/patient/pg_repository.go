package patient

import (
	"context"
	"errors"
	"time"

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

const patientColumns = `
	id, document_type, document_number, first_name, paternal_surname,
	maternal_surname, birth_date, phone, address, sex, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var maternal, phone, address, sex *string
	var birthDate *time.Time

	err := row.Scan(
		&p.ID,
		&p.DocumentType,
		&p.DocumentNumber,
		&p.FirstName,
		&p.PaternalSurname,
		&maternal,
		&birthDate,
		&phone,
		&address,
		&sex,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.MaternalSurname = maternal
	p.BirthDate = birthDate
	p.Phone = phone
	p.Address = address
	p.Sex = sex
	return &p, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindByDocument(ctx context.Context, docType, docNumber string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE document_type = $1 AND document_number = $2
	`, docType, docNumber)
	return scanPatient(row)
}

func (r *PgRepository) Create(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients
			(id, document_type, document_number, first_name, paternal_surname,
			 maternal_surname, birth_date, phone, address, sex, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+patientColumns+`
	`, p.ID, p.DocumentType, p.DocumentNumber, p.FirstName, p.PaternalSurname,
		p.MaternalSurname, p.BirthDate, p.Phone, p.Address, p.Sex)
	return scanPatient(row)
}

func (r *PgRepository) Update(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2, paternal_surname = $3, maternal_surname = $4,
		    birth_date = $5, phone = $6, address = $7, sex = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns+`
	`, p.ID, p.FirstName, p.PaternalSurname, p.MaternalSurname,
		p.BirthDate, p.Phone, p.Address, p.Sex)
	return scanPatient(row)
}

func (r *PgRepository) LinkToUser(ctx context.Context, patientID, userID uuid.UUID, relation string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_users (patient_id, user_id, relation_role, active, created_at)
		VALUES ($1, $2, $3, true, now())
		ON CONFLICT (patient_id, user_id) DO UPDATE SET active = true
	`, patientID, userID, relation)
	return err
}

func (r *PgRepository) IsLinkedToUser(ctx context.Context, patientID, userID uuid.UUID) (bool, error) {
	var linked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_users
			WHERE patient_id = $1 AND user_id = $2 AND active
		)
	`, patientID, userID).Scan(&linked)
	return linked, err
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.document_type, p.document_number, p.first_name, p.paternal_surname,
		       p.maternal_surname, p.birth_date, p.phone, p.address, p.sex, p.created_at, p.updated_at
		FROM patients p
		JOIN patient_users pu ON pu.patient_id = p.id
		WHERE pu.user_id = $1 AND pu.active
		ORDER BY p.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}
