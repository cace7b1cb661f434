package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/treatment"
)

func listTreatmentsHandler(repo treatment.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treatments, err := repo.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list treatments")
			return
		}

		out := make([]TreatmentResponse, 0, len(treatments))
		for i := range treatments {
			out = append(out, toTreatmentResponse(&treatments[i]))
		}
		writeJSON(w, http.StatusOK, map[string][]TreatmentResponse{"treatments": out})
	}
}

func getTreatmentHandler(repo treatment.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_treatment_id", "id must be a valid UUID")
			return
		}

		t, err := repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, treatment.ErrNotFound) {
				writeError(w, http.StatusNotFound, "treatment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load treatment")
			return
		}

		writeJSON(w, http.StatusOK, toTreatmentResponse(t))
	}
}
