package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/identity"
	"github.com/saident/clinic-backend/internal/patient"
	"github.com/saident/clinic-backend/internal/schedule"
	"github.com/saident/clinic-backend/internal/treatment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Appointments

type CreateAppointmentRequest struct {
	PatientID         string `json:"patient_id"`
	DentistID         string `json:"dentist_id"`
	Date              string `json:"date"`       // YYYY-MM-DD
	StartTime         string `json:"start_time"` // HH:MM:SS
	Category          string `json:"category,omitempty"`
	TreatmentCourseID string `json:"treatment_course_id,omitempty"`
}

type RescheduleAppointmentRequest struct {
	NewDate      string  `json:"new_date"`
	NewStartTime string  `json:"new_start_time"`
	NewDentistID string  `json:"new_dentist_id,omitempty"`
	Reason       *string `json:"reason,omitempty"`
}

type PatientSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
}

type DentistSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	Sex       *string   `json:"sex,omitempty"`
}

type AppointmentResponse struct {
	ID                uuid.UUID       `json:"id"`
	Date              string          `json:"date"`
	StartTime         string          `json:"start_time"`
	EndTime           string          `json:"end_time"`
	Category          string          `json:"category"`
	Status            string          `json:"status"`
	TreatmentCourseID *uuid.UUID      `json:"treatment_course_id,omitempty"`
	Patient           *PatientSummary `json:"patient,omitempty"`
	Dentist           *DentistSummary `json:"dentist,omitempty"`
}

func toAppointmentResponse(d *schedule.AppointmentDetail) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                d.ID,
		Date:              schedule.FormatDate(d.Date),
		StartTime:         d.Start.String(),
		EndTime:           d.End.String(),
		Category:          string(d.Category),
		Status:            string(d.Status),
		TreatmentCourseID: d.TreatmentCourseID,
	}
	if d.Patient != nil {
		resp.Patient = &PatientSummary{ID: d.Patient.ID, FullName: d.Patient.FullName()}
	}
	if d.Dentist != nil {
		resp.Dentist = &DentistSummary{
			ID:        d.Dentist.ID,
			Name:      d.Dentist.Name,
			Specialty: d.Dentist.Specialty,
			Sex:       d.Dentist.Sex,
		}
	}
	return resp
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type SlotsResponse struct {
	DentistID uuid.UUID `json:"dentist_id"`
	Date      string    `json:"date"`
	Slots     []string  `json:"slots"`
}

type DatesResponse struct {
	Dates []string `json:"dates"`
}

type DentistListResponse struct {
	Dentists []DentistSummary `json:"dentists"`
}

// Patients

type CreatePatientRequest struct {
	DocumentType    string  `json:"document_type,omitempty"`
	DocumentNumber  string  `json:"document_number"`
	FirstName       string  `json:"first_name"`
	PaternalSurname string  `json:"paternal_surname"`
	MaternalSurname *string `json:"maternal_surname,omitempty"`
	BirthDate       string  `json:"birth_date,omitempty"` // YYYY-MM-DD
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	Sex             *string `json:"sex,omitempty"`
	Relation        string  `json:"relation,omitempty"`
}

// UpdatePatientRequest carries partial edits; absent fields are unchanged.
// Document type and number are not editable, they identify the record.
type UpdatePatientRequest struct {
	FirstName       *string `json:"first_name,omitempty"`
	PaternalSurname *string `json:"paternal_surname,omitempty"`
	MaternalSurname *string `json:"maternal_surname,omitempty"`
	BirthDate       *string `json:"birth_date,omitempty"` // YYYY-MM-DD
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	Sex             *string `json:"sex,omitempty"`
}

type PatientResponse struct {
	ID              uuid.UUID `json:"id"`
	DocumentType    string    `json:"document_type"`
	DocumentNumber  string    `json:"document_number"`
	FirstName       string    `json:"first_name"`
	PaternalSurname string    `json:"paternal_surname"`
	MaternalSurname *string   `json:"maternal_surname,omitempty"`
	BirthDate       *string   `json:"birth_date,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Address         *string   `json:"address,omitempty"`
	Sex             *string   `json:"sex,omitempty"`
}

func toPatientResponse(p *patient.Patient) PatientResponse {
	resp := PatientResponse{
		ID:              p.ID,
		DocumentType:    p.DocumentType,
		DocumentNumber:  p.DocumentNumber,
		FirstName:       p.FirstName,
		PaternalSurname: p.PaternalSurname,
		MaternalSurname: p.MaternalSurname,
		Phone:           p.Phone,
		Address:         p.Address,
		Sex:             p.Sex,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format("2006-01-02")
		resp.BirthDate = &s
	}
	return resp
}

// Treatments

type TreatmentResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	EstimatedMinutes *int      `json:"estimated_minutes,omitempty"`
	Cost             *float64  `json:"cost,omitempty"`
}

func toTreatmentResponse(t *treatment.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		EstimatedMinutes: t.EstimatedMinutes,
		Cost:             t.Cost,
	}
}

// Auth

type RegisterRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	DocumentNumber  string  `json:"document_number"`
	Role            string  `json:"role"`
	FirstName       string  `json:"first_name,omitempty"`
	PaternalSurname string  `json:"paternal_surname,omitempty"`
	MaternalSurname *string `json:"maternal_surname,omitempty"`
	BirthDate       string  `json:"birth_date,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Sex             *string `json:"sex,omitempty"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
	AuthID uuid.UUID `json:"auth_id"`
}

type LoginRequest struct {
	DocumentNumber string `json:"document_number"`
	Password       string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       uuid.UUID `json:"user_id"`
	Role         string    `json:"role"`
}

type RecoverRequest struct {
	DocumentNumber string `json:"document_number"`
}

type MeResponse struct {
	ID             uuid.UUID `json:"id"`
	AuthID         uuid.UUID `json:"auth_id"`
	DocumentNumber string    `json:"document_number"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
}

func toMeResponse(u *identity.User) MeResponse {
	return MeResponse{
		ID:             u.ID,
		AuthID:         u.AuthID,
		DocumentNumber: u.DocumentNumber,
		Email:          u.Email,
		Role:           u.Role,
	}
}

func toLoginResponse(sess *identity.Session, user *identity.User) LoginResponse {
	return LoginResponse{
		AccessToken:  sess.AccessToken,
		TokenType:    sess.TokenType,
		ExpiresIn:    sess.ExpiresIn,
		RefreshToken: sess.RefreshToken,
		UserID:       user.ID,
		Role:         user.Role,
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
