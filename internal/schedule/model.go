package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ActiveStatuses are the statuses that participate in conflict checks.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

type Category string

const (
	CategoryConsultation Category = "consultation"
	CategoryTreatment    Category = "treatment"
)

type CourseStatus string

const (
	CourseInProgress CourseStatus = "in_progress"
	CourseCompleted  CourseStatus = "completed"
	CourseSuspended  CourseStatus = "suspended"
)

type Patient struct {
	ID              uuid.UUID
	DocumentType    string
	DocumentNumber  string
	FirstName       string
	PaternalSurname string
	MaternalSurname *string
	BirthDate       *time.Time
	Phone           *string
	Sex             *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins the name parts, skipping absent surnames.
func (p *Patient) FullName() string {
	parts := []string{p.FirstName, p.PaternalSurname}
	if p.MaternalSurname != nil && *p.MaternalSurname != "" {
		parts = append(parts, *p.MaternalSurname)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

type Dentist struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Sex       *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TreatmentCourse is a multi-visit care plan; treatment-linked appointments
// must reference one that belongs to the same patient and is in progress.
type TreatmentCourse struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	TreatmentID uuid.UUID
	Status      CourseStatus
	CreatedAt   time.Time
}

type Appointment struct {
	ID                uuid.UUID
	PatientID         uuid.UUID
	DentistID         uuid.UUID
	Date              time.Time // midnight in the clinic time zone
	Start             TimeOfDay
	End               TimeOfDay // always Start + visit duration
	Category          Category
	Status            AppointmentStatus
	TreatmentCourseID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StartsAt returns the appointment's start instant.
func (a *Appointment) StartsAt() time.Time {
	return At(a.Date, a.Start)
}

// RescheduleRecord is the immutable audit entry written alongside every
// reschedule. Records are append-only and never read back on the hot path.
type RescheduleRecord struct {
	AppointmentID     uuid.UUID
	PreviousDate      time.Time
	PreviousStart     TimeOfDay
	PreviousDentistID uuid.UUID
	NewDate           time.Time
	NewStart          TimeOfDay
	NewEnd            TimeOfDay
	NewDentistID      uuid.UUID
	Reason            *string
	CreatedAt         time.Time
}

// AppointmentDetail is an appointment enriched with directory lookups for
// display. The enrichment never participates in admissibility decisions.
type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Dentist *Dentist
}
