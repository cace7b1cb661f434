package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/notify"
	redisclient "github.com/saident/clinic-backend/internal/redis"
)

var (
	ErrTooFarAhead            = errors.New("new appointment is more than 14 days away")
	ErrNotReschedulable       = errors.New("only pending appointments can be rescheduled")
	ErrTreatmentWrongPatient  = errors.New("treatment course belongs to a different patient")
	ErrTreatmentNotInProgress = errors.New("treatment course is not in progress")
	ErrScheduleBusy           = errors.New("schedule is being updated, please retry")
)

// AvailableDatesSpan is how many days of booking dates are offered, today
// included. Matches the reschedule window.
const AvailableDatesSpan = 15

type Service struct {
	repo   Repository
	locker redisclient.Locker
	mailer notify.EmailSender

	// injected clock so admissibility tests are deterministic
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, mailer notify.EmailSender) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		mailer: mailer,
		now:    time.Now,
	}
}

type CreateParams struct {
	PatientID         uuid.UUID
	DentistID         uuid.UUID
	Date              time.Time
	Start             TimeOfDay
	Category          Category
	TreatmentCourseID *uuid.UUID
}

type RescheduleParams struct {
	NewDate      time.Time
	NewStart     TimeOfDay
	NewDentistID *uuid.UUID
	Reason       *string
}

// Create books a new appointment. The admissibility check and the insert run
// under a lock keyed by the dentist's agenda for the target date, so two
// concurrent bookings for the same dentist and day cannot both pass the
// conflict check.
func (s *Service) Create(ctx context.Context, p CreateParams) (*AppointmentDetail, error) {
	patient, err := s.repo.GetPatientByID(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}
	dentist, err := s.repo.GetDentistByID(ctx, p.DentistID)
	if err != nil {
		return nil, err
	}

	if p.Category == "" {
		p.Category = CategoryConsultation
	}
	if p.Category == CategoryTreatment {
		if p.TreatmentCourseID == nil {
			return nil, ErrTreatmentCourseNotFound
		}
		course, err := s.repo.GetTreatmentCourseByID(ctx, *p.TreatmentCourseID)
		if err != nil {
			return nil, err
		}
		if course.PatientID != p.PatientID {
			return nil, ErrTreatmentWrongPatient
		}
		if course.Status != CourseInProgress {
			return nil, ErrTreatmentNotInProgress
		}
	}

	var created *Appointment

	err = s.locker.WithScheduleLock(ctx, p.DentistID, p.Date, func(lockCtx context.Context) error {
		patientActive, err := s.repo.ActiveForPatientOnDate(lockCtx, p.PatientID, p.Date, uuid.Nil)
		if err != nil {
			return fmt.Errorf("load patient appointments: %w", err)
		}
		dentistActive, err := s.repo.ActiveForDentistOnDate(lockCtx, p.DentistID, p.Date, uuid.Nil)
		if err != nil {
			return fmt.Errorf("load dentist appointments: %w", err)
		}

		candidate := Candidate{
			PatientID: p.PatientID,
			DentistID: p.DentistID,
			Date:      p.Date,
			Start:     p.Start,
		}
		if err := CheckAdmissible(candidate, patientActive, dentistActive, s.now()); err != nil {
			return err
		}

		end, _ := VisitEnd(p.Start)
		appt := &Appointment{
			ID:                uuid.New(),
			PatientID:         p.PatientID,
			DentistID:         p.DentistID,
			Date:              p.Date,
			Start:             p.Start,
			End:               end,
			Category:          p.Category,
			Status:            StatusPending,
			TreatmentCourseID: p.TreatmentCourseID,
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *created, Patient: patient, Dentist: dentist}
	s.sendBookingEmail(ctx, detail, "Appointment confirmed")
	return detail, nil
}

// Reschedule moves a pending appointment to a new date, time and optionally
// dentist. The audit record and the appointment update are written in one
// transaction by the repository.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, p RescheduleParams) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, ErrNotReschedulable
	}

	now := s.now()
	if At(p.NewDate, p.NewStart).Sub(now) > RescheduleWindow {
		return nil, ErrTooFarAhead
	}

	dentistID := appt.DentistID
	if p.NewDentistID != nil {
		if _, err := s.repo.GetDentistByID(ctx, *p.NewDentistID); err != nil {
			return nil, err
		}
		dentistID = *p.NewDentistID
	}

	var updated *Appointment

	err = s.locker.WithScheduleLock(ctx, dentistID, p.NewDate, func(lockCtx context.Context) error {
		patientActive, err := s.repo.ActiveForPatientOnDate(lockCtx, appt.PatientID, p.NewDate, appt.ID)
		if err != nil {
			return fmt.Errorf("load patient appointments: %w", err)
		}
		dentistActive, err := s.repo.ActiveForDentistOnDate(lockCtx, dentistID, p.NewDate, appt.ID)
		if err != nil {
			return fmt.Errorf("load dentist appointments: %w", err)
		}

		candidate := Candidate{
			PatientID: appt.PatientID,
			DentistID: dentistID,
			Date:      p.NewDate,
			Start:     p.NewStart,
		}
		if err := CheckAdmissible(candidate, patientActive, dentistActive, now); err != nil {
			return err
		}

		end, _ := VisitEnd(p.NewStart)
		rec := RescheduleRecord{
			AppointmentID:     appt.ID,
			PreviousDate:      appt.Date,
			PreviousStart:     appt.Start,
			PreviousDentistID: appt.DentistID,
			NewDate:           p.NewDate,
			NewStart:          p.NewStart,
			NewEnd:            end,
			NewDentistID:      dentistID,
			Reason:            p.Reason,
		}

		updated, err = s.repo.RescheduleAppointment(lockCtx, appt.ID, rec)
		if err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	detail, err := s.hydrate(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.sendBookingEmail(ctx, detail, "Appointment rescheduled")
	return detail, nil
}

// AvailableSlots returns the menu start times still free for a dentist on a
// date, in menu order. Empty means fully booked (or no time left today).
func (s *Service) AvailableSlots(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	if _, err := s.repo.GetDentistByID(ctx, dentistID); err != nil {
		return nil, err
	}
	booked, err := s.repo.ActiveForDentistOnDate(ctx, dentistID, date, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("load dentist appointments: %w", err)
	}
	return AvailableSlots(DefaultSlotMenu, booked, date, s.now()), nil
}

// AvailableDates lists the calendar dates currently offered for booking:
// today plus the next fourteen days.
func (s *Service) AvailableDates() []string {
	now := s.now()
	dates := make([]string, 0, AvailableDatesSpan)
	for i := 0; i < AvailableDatesSpan; i++ {
		dates = append(dates, FormatDate(now.AddDate(0, 0, i)))
	}
	return dates
}

func (s *Service) ListDentists(ctx context.Context) ([]Dentist, error) {
	return s.repo.ListDentists(ctx)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return s.repo.ListActiveForPatient(ctx, patientID)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error) {
	return s.repo.ListActiveForUser(ctx, userID)
}

// SendReminders emails every patient with an active appointment on the given
// date. Used by the reminder worker.
func (s *Service) SendReminders(ctx context.Context, date time.Time) error {
	details, err := s.repo.ListActiveOnDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load appointments for %s: %w", FormatDate(date), err)
	}
	for i := range details {
		s.sendBookingEmail(ctx, &details[i], "Appointment reminder")
	}
	return nil
}

func (s *Service) hydrate(ctx context.Context, appt *Appointment) (*AppointmentDetail, error) {
	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	dentist, err := s.repo.GetDentistByID(ctx, appt.DentistID)
	if err != nil {
		return nil, err
	}
	return &AppointmentDetail{Appointment: *appt, Patient: patient, Dentist: dentist}, nil
}

// sendBookingEmail is best effort: a persisted appointment is authoritative
// whether or not the patient could be notified.
func (s *Service) sendBookingEmail(ctx context.Context, detail *AppointmentDetail, subject string) {
	if s.mailer == nil {
		return
	}

	to, err := s.repo.PatientAccountEmail(ctx, detail.PatientID)
	if err != nil {
		if !errors.Is(err, ErrNoAccountEmail) {
			log.Printf("lookup email for patient %s: %v", detail.PatientID, err)
		}
		return
	}

	dentistName := ""
	if detail.Dentist != nil {
		dentistName = detail.Dentist.Name
	}
	patientName := ""
	if detail.Patient != nil {
		patientName = detail.Patient.FullName()
	}

	msg := notify.EmailMessage{
		To:      to,
		ToName:  patientName,
		Subject: subject,
		Body: fmt.Sprintf("%s: %s at %s with %s.",
			subject, FormatDate(detail.Date), detail.Start, dentistName),
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>%s: <strong>%s</strong> at <strong>%s</strong> with %s.</p>",
			patientName, subject, FormatDate(detail.Date), detail.Start, dentistName),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("send %q email for appointment %s: %v", subject, detail.ID, err)
	}
}
