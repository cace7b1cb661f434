package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/schedule"
)

func createAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.PatientID == "" || req.DentistID == "" || req.Date == "" || req.StartTime == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "patient_id, dentist_id, date and start_time are required")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		dentistID, err := uuid.Parse(req.DentistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dentist_id", "dentist_id must be a valid UUID")
			return
		}
		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		start, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM:SS")
			return
		}

		params := schedule.CreateParams{
			PatientID: patientID,
			DentistID: dentistID,
			Date:      date,
			Start:     start,
			Category:  schedule.Category(req.Category),
		}
		if req.TreatmentCourseID != "" {
			courseID, err := uuid.Parse(req.TreatmentCourseID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_treatment_course_id", "treatment_course_id must be a valid UUID")
				return
			}
			params.TreatmentCourseID = &courseID
		}

		detail, err := svc.Create(r.Context(), params)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(detail))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.NewDate == "" || req.NewStartTime == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "new_date and new_start_time are required")
			return
		}

		newDate, err := schedule.ParseDate(req.NewDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "new_date must be YYYY-MM-DD")
			return
		}
		newStart, err := schedule.ParseTimeOfDay(req.NewStartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "new_start_time must be HH:MM:SS")
			return
		}

		params := schedule.RescheduleParams{
			NewDate:  newDate,
			NewStart: newStart,
			Reason:   req.Reason,
		}
		if req.NewDentistID != "" {
			dentistID, err := uuid.Parse(req.NewDentistID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_dentist_id", "new_dentist_id must be a valid UUID")
				return
			}
			params.NewDentistID = &dentistID
		}

		detail, err := svc.Reschedule(r.Context(), id, params)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(detail))
	}
}

func listAppointmentsByPatientHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		details, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(details))
	}
}

func listAppointmentsByUserHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "userID must be a valid UUID")
			return
		}

		details, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(details))
	}
}

func availableDatesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, DatesResponse{Dates: svc.AvailableDates()})
	}
}

func listDentistsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dentists, err := svc.ListDentists(r.Context())
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]DentistSummary, 0, len(dentists))
		for i := range dentists {
			d := &dentists[i]
			out = append(out, DentistSummary{ID: d.ID, Name: d.Name, Specialty: d.Specialty, Sex: d.Sex})
		}
		writeJSON(w, http.StatusOK, DentistListResponse{Dentists: out})
	}
}

func dentistSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dentistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dentist_id", "id must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "date query parameter is required")
			return
		}
		date, err := schedule.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), dentistID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]string, 0, len(slots))
		for _, s := range slots {
			out = append(out, s.String())
		}
		writeJSON(w, http.StatusOK, SlotsResponse{DentistID: dentistID, Date: dateStr, Slots: out})
	}
}

func toAppointmentList(details []schedule.AppointmentDetail) AppointmentListResponse {
	out := make([]AppointmentResponse, 0, len(details))
	for i := range details {
		out = append(out, toAppointmentResponse(&details[i]))
	}
	return AppointmentListResponse{Appointments: out}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrDentistNotFound):
		writeError(w, http.StatusNotFound, "dentist_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrTreatmentCourseNotFound):
		writeError(w, http.StatusNotFound, "treatment_course_not_found", err.Error())
	case errors.Is(err, schedule.ErrTreatmentWrongPatient):
		writeError(w, http.StatusForbidden, "treatment_wrong_patient", err.Error())
	case errors.Is(err, schedule.ErrTreatmentNotInProgress):
		writeError(w, http.StatusConflict, "treatment_not_in_progress", err.Error())
	case errors.Is(err, schedule.ErrTooSoon):
		writeError(w, http.StatusBadRequest, "too_soon", "appointments require at least one hour of lead time")
	case errors.Is(err, schedule.ErrCrossesMidnight):
		writeError(w, http.StatusBadRequest, "outside_working_day", err.Error())
	case errors.Is(err, schedule.ErrTooFarAhead):
		writeError(w, http.StatusBadRequest, "too_far_ahead", "reschedules may be at most 14 days ahead")
	case errors.Is(err, schedule.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "not_reschedulable", err.Error())
	case errors.Is(err, schedule.ErrPatientAlreadyBooked):
		writeError(w, http.StatusConflict, "patient_already_booked", err.Error())
	case errors.Is(err, schedule.ErrDentistConflict):
		writeError(w, http.StatusConflict, "dentist_conflict", err.Error())
	case errors.Is(err, schedule.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "the agenda is being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
