package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound         = errors.New("patient not found")
	ErrDentistNotFound         = errors.New("dentist not found")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrTreatmentCourseNotFound = errors.New("treatment course not found")
	ErrNoAccountEmail          = errors.New("patient has no linked account email")
)

// Repository contains all DB interactions needed by the scheduling service.
// Active-appointment queries re-read current state on every call; nothing is
// cached between requests.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error)
	ListDentists(ctx context.Context) ([]Dentist, error)
	GetTreatmentCourseByID(ctx context.Context, id uuid.UUID) (*TreatmentCourse, error)

	// Conflict-check reads. exclude skips one appointment id (the one being
	// rescheduled); pass uuid.Nil to exclude nothing.
	ActiveForPatientOnDate(ctx context.Context, patientID uuid.UUID, date time.Time, exclude uuid.UUID) ([]Appointment, error)
	ActiveForDentistOnDate(ctx context.Context, dentistID uuid.UUID, date time.Time, exclude uuid.UUID) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	// RescheduleAppointment writes the audit record and updates the
	// appointment in one transaction; either both land or neither does.
	RescheduleAppointment(ctx context.Context, id uuid.UUID, rec RescheduleRecord) (*Appointment, error)

	// Display listings, active only, ordered by date then start time.
	ListActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error)

	// Reminder worker
	ListActiveOnDate(ctx context.Context, date time.Time) ([]AppointmentDetail, error)

	// PatientAccountEmail resolves the email of the account a patient is
	// linked to. Returns ErrNoAccountEmail when no linked account has one.
	PatientAccountEmail(ctx context.Context, patientID uuid.UUID) (string, error)
}
