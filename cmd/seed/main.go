package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saident/clinic-backend/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDentists(context.Background(), pool, 12); err != nil {
		log.Fatalf("seed dentists: %v", err)
	}
	if err := seedTreatments(context.Background(), pool); err != nil {
		log.Fatalf("seed treatments: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDentists(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d dentists", count)

	specialties := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Pediatric Dentistry",
		"Oral Surgery",
		"Prosthodontics",
	}
	sexes := []string{"F", "M"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		sex := sexes[gofakeit.Number(0, 1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO dentists (id, name, specialty, sex, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, sex)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("dentists seeded")
	return nil
}

func seedTreatments(ctx context.Context, pool *pgxpool.Pool) error {
	treatments := []struct {
		name    string
		minutes int
		cost    float64
	}{
		{"Dental cleaning", 40, 80},
		{"Composite filling", 40, 120},
		{"Root canal", 80, 450},
		{"Tooth extraction", 40, 150},
		{"Teeth whitening", 60, 300},
		{"Orthodontic adjustment", 30, 90},
		{"Crown placement", 60, 600},
	}

	log.Printf("seeding %d treatments", len(treatments))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range treatments {
		_, err := tx.Exec(ctx, `
			INSERT INTO treatments (id, name, description, estimated_minutes, cost, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, uuid.New(), t.name, gofakeit.Sentence(8), t.minutes, t.cost)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("treatments seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			patientID := uuid.New()
			userID := uuid.New()
			document := gofakeit.Numerify("########")
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients
					(id, document_type, document_number, first_name, paternal_surname,
					 maternal_surname, birth_date, phone, created_at, updated_at)
				VALUES ($1, 'DNI', $2, $3, $4, $5, $6, $7, now(), now())
			`, patientID, document, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.LastName(),
				gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)),
				gofakeit.Phone())
			if err != nil {
				tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO users (id, auth_id, document_number, email, role, created_at)
				VALUES ($1, $2, $3, $4, 'patient', now())
			`, userID, uuid.New(), document, email)
			if err != nil {
				tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO patient_users (patient_id, user_id, relation_role, active, created_at)
				VALUES ($1, $2, 'titular', true, now())
			`, patientID, userID)
			if err != nil {
				tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}
