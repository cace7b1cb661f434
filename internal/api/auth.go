package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/saident/clinic-backend/internal/identity"
)

func registerHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.Email == "" || req.Password == "" || req.DocumentNumber == "" || req.Role == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "email, password, document_number and role are required")
			return
		}

		birthDate, err := parseOptionalDate(req.BirthDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birth_date", "birth_date must be YYYY-MM-DD")
			return
		}

		user, err := svc.Register(r.Context(), identity.RegisterParams{
			Email:           req.Email,
			Password:        req.Password,
			DocumentNumber:  req.DocumentNumber,
			Role:            req.Role,
			FirstName:       req.FirstName,
			PaternalSurname: req.PaternalSurname,
			MaternalSurname: req.MaternalSurname,
			BirthDate:       birthDate,
			Phone:           req.Phone,
			Sex:             req.Sex,
		})
		if err != nil {
			if errors.Is(err, identity.ErrDocumentTaken) {
				writeError(w, http.StatusConflict, "document_taken", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "registration failed")
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{UserID: user.ID, AuthID: user.AuthID})
	}
}

func loginHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.DocumentNumber == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "document_number and password are required")
			return
		}

		sess, user, err := svc.Login(r.Context(), req.DocumentNumber, req.Password)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
			return
		}

		writeJSON(w, http.StatusOK, toLoginResponse(sess, user))
	}
}

// meHandler resolves the bearer token to the local account row.
func meHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, svc)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown_account", "no account found for this token")
			return
		}
		writeJSON(w, http.StatusOK, toMeResponse(user))
	}
}

func recoverHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.DocumentNumber == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "document_number is required")
			return
		}

		if err := svc.Recover(r.Context(), req.DocumentNumber); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "recovery failed")
			return
		}

		// always 202 so the response does not reveal whether the document exists
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
