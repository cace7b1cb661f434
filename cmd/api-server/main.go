package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/saident/clinic-backend/internal/api"
	"github.com/saident/clinic-backend/internal/config"
	"github.com/saident/clinic-backend/internal/db"
	"github.com/saident/clinic-backend/internal/identity"
	"github.com/saident/clinic-backend/internal/notify"
	"github.com/saident/clinic-backend/internal/patient"
	redisclient "github.com/saident/clinic-backend/internal/redis"
	"github.com/saident/clinic-backend/internal/schedule"
	"github.com/saident/clinic-backend/internal/treatment"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var mailer notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}); sg != nil {
		mailer = sg
		log.Println("email notifications enabled via SendGrid")
	} else {
		mailer = notify.NewStubEmailSender()
		log.Println("no SendGrid key configured, email notifications stubbed")
	}

	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)

	scheduleRepo := schedule.NewPgRepository(pgPool)
	scheduleSvc := schedule.NewService(scheduleRepo, locker, mailer)

	patientSvc := patient.NewService(patient.NewPgRepository(pgPool))

	provider := identity.NewHTTPProvider(cfg.AuthBaseURL, cfg.AuthServiceKey)
	identitySvc := identity.NewService(provider, identity.NewPgUserRepository(pgPool), patientSvc)

	router := api.NewRouter(api.RouterConfig{
		Schedule:   scheduleSvc,
		Patients:   patientSvc,
		Treatments: treatment.NewPgRepository(pgPool),
		Identity:   identitySvc,
		PgPool:     pgPool,
		Redis:      rdb,
		JWTSecret:  cfg.AuthJWTSecret,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
