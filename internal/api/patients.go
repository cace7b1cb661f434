package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/identity"
	"github.com/saident/clinic-backend/internal/patient"
)

// currentUser maps the token subject to the local account row.
func currentUser(r *http.Request, ident *identity.Service) (*identity.User, error) {
	authID, ok := GetAuthID(r.Context())
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return ident.UserByAuthID(r.Context(), authID)
}

func createPatientHandler(svc *patient.Service, ident *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, ident)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown_account", "no account found for this token")
			return
		}

		var req CreatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.DocumentNumber == "" || req.FirstName == "" || req.PaternalSurname == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "document_number, first_name and paternal_surname are required")
			return
		}

		birthDate, err := parseOptionalDate(req.BirthDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birth_date", "birth_date must be YYYY-MM-DD")
			return
		}

		p := &patient.Patient{
			DocumentType:    req.DocumentType,
			DocumentNumber:  req.DocumentNumber,
			FirstName:       req.FirstName,
			PaternalSurname: req.PaternalSurname,
			MaternalSurname: req.MaternalSurname,
			BirthDate:       birthDate,
			Phone:           req.Phone,
			Address:         req.Address,
			Sex:             req.Sex,
		}

		created, existed, err := svc.Register(r.Context(), user.ID, p, req.Relation)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not register patient")
			return
		}

		status := http.StatusCreated
		if existed {
			status = http.StatusOK
		}
		writeJSON(w, status, toPatientResponse(created))
	}
}

func listPatientsHandler(svc *patient.Service, ident *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, ident)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown_account", "no account found for this token")
			return
		}

		patients, err := svc.ListForUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list patients")
			return
		}

		out := make([]PatientResponse, 0, len(patients))
		for i := range patients {
			out = append(out, toPatientResponse(&patients[i]))
		}
		writeJSON(w, http.StatusOK, map[string][]PatientResponse{"patients": out})
	}
}

func updatePatientHandler(svc *patient.Service, ident *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, ident)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown_account", "no account found for this token")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var req UpdatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params := patient.UpdateParams{
			FirstName:       req.FirstName,
			PaternalSurname: req.PaternalSurname,
			MaternalSurname: req.MaternalSurname,
			Phone:           req.Phone,
			Address:         req.Address,
			Sex:             req.Sex,
		}
		if req.BirthDate != nil {
			birthDate, err := parseOptionalDate(*req.BirthDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_birth_date", "birth_date must be YYYY-MM-DD")
				return
			}
			params.BirthDate = birthDate
		}

		updated, err := svc.Update(r.Context(), user.ID, id, params)
		if err != nil {
			switch {
			case errors.Is(err, patient.ErrNotFound):
				writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
			case errors.Is(err, patient.ErrNotLinked):
				writeError(w, http.StatusForbidden, "patient_not_linked", "this account may not edit that patient record")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", "could not update patient")
			}
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(updated))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load patient")
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}
