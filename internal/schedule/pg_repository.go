package schedule

import (
	"context"
	"errors"
	"fmt"
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

// Dates and clock times travel as text so that day arithmetic stays in the
// clinic's zone instead of whatever zone the driver attaches to DATE values.
const appointmentColumns = `
	a.id, a.patient_id, a.dentist_id,
	a.date::text, a.start_time::text, a.end_time::text,
	a.category, a.status, a.treatment_course_id,
	a.created_at, a.updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date, start, end string
	var courseID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DentistID,
		&date,
		&start,
		&end,
		&a.Category,
		&a.Status,
		&courseID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.TreatmentCourseID = courseID
	if a.Date, err = ParseDate(date); err != nil {
		return nil, err
	}
	if a.Start, err = ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if a.End, err = ParseTimeOfDay(end); err != nil {
		return nil, err
	}

	return &a, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var maternal, phone, sex *string
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
		&sex,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.MaternalSurname = maternal
	p.BirthDate = birthDate
	p.Phone = phone
	p.Sex = sex
	return &p, nil
}

func scanDentist(row pgx.Row) (*Dentist, error) {
	var d Dentist
	var specialty, sex *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&sex,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDentistNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	d.Sex = sex
	return &d, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_type, document_number, first_name, paternal_surname,
		       maternal_surname, birth_date, phone, sex, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, sex, created_at, updated_at
		FROM dentists
		WHERE id = $1
	`, id)
	return scanDentist(row)
}

func (r *PgRepository) ListDentists(ctx context.Context) ([]Dentist, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, sex, created_at, updated_at
		FROM dentists
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Dentist
	for rows.Next() {
		d, err := scanDentist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetTreatmentCourseByID(ctx context.Context, id uuid.UUID) (*TreatmentCourse, error) {
	var tc TreatmentCourse
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, treatment_id, status, created_at
		FROM treatment_courses
		WHERE id = $1
	`, id).Scan(&tc.ID, &tc.PatientID, &tc.TreatmentID, &tc.Status, &tc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentCourseNotFound
		}
		return nil, err
	}
	return &tc, nil
}

// exclude may be uuid.Nil, which matches no stored row (ids are random v4),
// so the same query serves both create and reschedule reads.

func (r *PgRepository) ActiveForPatientOnDate(ctx context.Context, patientID uuid.UUID, date time.Time, exclude uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.patient_id = $1
		  AND a.date = $2::date
		  AND a.status IN ('pending', 'confirmed')
		  AND a.id <> $3
		ORDER BY a.start_time
	`, patientID, FormatDate(date), exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) ActiveForDentistOnDate(ctx context.Context, dentistID uuid.UUID, date time.Time, exclude uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.dentist_id = $1
		  AND a.date = $2::date
		  AND a.status IN ('pending', 'confirmed')
		  AND a.id <> $3
		ORDER BY a.start_time
	`, dentistID, FormatDate(date), exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, dentist_id, date, start_time, end_time,
			 category, status, treatment_course_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5::time, $6::time, $7, $8, $9, now(), now())
		RETURNING
			id, patient_id, dentist_id,
			date::text, start_time::text, end_time::text,
			category, status, treatment_course_id,
			created_at, updated_at
	`, appt.ID, appt.PatientID, appt.DentistID,
		FormatDate(appt.Date), appt.Start.String(), appt.End.String(),
		appt.Category, appt.Status, appt.TreatmentCourseID)

	return scanAppointment(row)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, rec RescheduleRecord) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_reschedules
			(appointment_id, previous_date, previous_start, previous_dentist_id,
			 new_date, new_start, new_end, new_dentist_id, reason, created_at)
		VALUES ($1, $2::date, $3::time, $4, $5::date, $6::time, $7::time, $8, $9, now())
	`, rec.AppointmentID,
		FormatDate(rec.PreviousDate), rec.PreviousStart.String(), rec.PreviousDentistID,
		FormatDate(rec.NewDate), rec.NewStart.String(), rec.NewEnd.String(),
		rec.NewDentistID, rec.Reason)
	if err != nil {
		return nil, fmt.Errorf("insert reschedule record: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2::date,
		    start_time = $3::time,
		    end_time = $4::time,
		    dentist_id = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, patient_id, dentist_id,
		          date::text, start_time::text, end_time::text,
		          category, status, treatment_course_id,
		          created_at, updated_at
	`, id, FormatDate(rec.NewDate), rec.NewStart.String(), rec.NewEnd.String(), rec.NewDentistID)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}

	return appt, nil
}

const detailQuery = `
	SELECT ` + appointmentColumns + `,
	       p.id, p.first_name, p.paternal_surname, p.maternal_surname,
	       d.id, d.name, d.specialty, d.sex
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN dentists d ON d.id = a.dentist_id`

func (r *PgRepository) ListActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		  AND a.status IN ('pending', 'confirmed')
		ORDER BY a.date, a.start_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *PgRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		JOIN patient_users pu ON pu.patient_id = a.patient_id
		WHERE pu.user_id = $1
		  AND pu.active
		  AND a.status IN ('pending', 'confirmed')
		ORDER BY a.date, a.start_time
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *PgRepository) ListActiveOnDate(ctx context.Context, date time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.date = $1::date
		  AND a.status IN ('pending', 'confirmed')
		ORDER BY a.start_time
	`, FormatDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		var a Appointment
		var date, start, end string
		var courseID *uuid.UUID
		var p Patient
		var d Dentist

		err := rows.Scan(
			&a.ID, &a.PatientID, &a.DentistID,
			&date, &start, &end,
			&a.Category, &a.Status, &courseID,
			&a.CreatedAt, &a.UpdatedAt,
			&p.ID, &p.FirstName, &p.PaternalSurname, &p.MaternalSurname,
			&d.ID, &d.Name, &d.Specialty, &d.Sex,
		)
		if err != nil {
			return nil, err
		}

		a.TreatmentCourseID = courseID
		if a.Date, err = ParseDate(date); err != nil {
			return nil, err
		}
		if a.Start, err = ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if a.End, err = ParseTimeOfDay(end); err != nil {
			return nil, err
		}

		result = append(result, AppointmentDetail{Appointment: a, Patient: &p, Dentist: &d})
	}
	return result, rows.Err()
}

func (r *PgRepository) PatientAccountEmail(ctx context.Context, patientID uuid.UUID) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `
		SELECT u.email
		FROM users u
		JOIN patient_users pu ON pu.user_id = u.id
		WHERE pu.patient_id = $1
		  AND pu.active
		  AND u.email <> ''
		ORDER BY pu.created_at
		LIMIT 1
	`, patientID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoAccountEmail
		}
		return "", err
	}
	return email, nil
}
