package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saident/clinic-backend/internal/identity"
	"github.com/saident/clinic-backend/internal/patient"
	"github.com/saident/clinic-backend/internal/schedule"
	"github.com/saident/clinic-backend/internal/treatment"
)

type RouterConfig struct {
	Schedule   *schedule.Service
	Patients   *patient.Service
	Treatments treatment.Repository
	Identity   *identity.Service
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	JWTSecret  string
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Auth endpoints delegate to the external provider; no token required.
	r.Post("/auth/register", registerHandler(cfg.Identity))
	r.Post("/auth/login", loginHandler(cfg.Identity))
	r.Post("/auth/recover", recoverHandler(cfg.Identity))

	// Everything clinical sits behind the provider-issued token.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/auth/me", meHandler(cfg.Identity))

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/available-dates", availableDatesHandler(cfg.Schedule))
			r.Post("/", createAppointmentHandler(cfg.Schedule))
			r.Put("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Schedule))
			r.Get("/patient/{patientID}", listAppointmentsByPatientHandler(cfg.Schedule))
			r.Get("/user/{userID}", listAppointmentsByUserHandler(cfg.Schedule))
		})

		r.Route("/dentists", func(r chi.Router) {
			r.Get("/", listDentistsHandler(cfg.Schedule))
			r.Get("/{id}/slots", dentistSlotsHandler(cfg.Schedule))
		})

		r.Route("/patients", func(r chi.Router) {
			r.Post("/", createPatientHandler(cfg.Patients, cfg.Identity))
			r.Get("/", listPatientsHandler(cfg.Patients, cfg.Identity))
			r.Get("/{id}", getPatientHandler(cfg.Patients))
			r.Put("/{id}", updatePatientHandler(cfg.Patients, cfg.Identity))
		})

		r.Route("/treatments", func(r chi.Router) {
			r.Get("/", listTreatmentsHandler(cfg.Treatments))
			r.Get("/{id}", getTreatmentHandler(cfg.Treatments))
		})
	})

	return r
}
