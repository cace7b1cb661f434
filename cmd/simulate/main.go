package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saident/clinic-backend/internal/config"
	"github.com/saident/clinic-backend/internal/db"
	"github.com/saident/clinic-backend/internal/schedule"
)

// The simulator hammers the booking API with concurrent workers. Bookings are
// deliberately funneled onto a small set of dentists and dates so that many
// workers compete for the same agenda; the interesting output is the ratio of
// 201s to 409s and the absence of double-booked slots afterwards.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookRatio    float64
	MoveRatio    float64
	ReadRatio    float64
	DentistLimit int
	PatientLimit int
	PostgresDSN  string
	JWTSecret    string
}

type DataPool struct {
	Patients []uuid.UUID
	AuthIDs  []uuid.UUID
	Dentists []uuid.UUID
	Dates    []string

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

type Metrics struct {
	Book  OperationMetrics
	Move  OperationMetrics
	Slots OperationMetrics
	List  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required to mint simulator tokens")
	}

	log.Printf("config: duration=%s workers=%d book=%.2f move=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookRatio, cfg.MoveRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d patients, %d dentists, %d candidate dates",
		len(pool.Patients), len(pool.Dentists), len(pool.Dates))

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookRatio:    getFloat("SIM_BOOK_RATIO", 0.5),
		MoveRatio:    getFloat("SIM_MOVE_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		DentistLimit: getInt("SIM_DENTIST_LIMIT", 3),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
		JWTSecret:    baseCfg.AuthJWTSecret,
	}

	total := cfg.BookRatio + cfg.MoveRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.MoveRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT p.id, u.auth_id
		FROM patients p
		JOIN patient_users pu ON pu.patient_id = p.id AND pu.active
		JOIN users u ON u.id = pu.user_id
		LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var patientID, authID uuid.UUID
		if err := rows.Scan(&patientID, &authID); err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, patientID)
		dp.AuthIDs = append(dp.AuthIDs, authID)
	}

	// Few dentists on purpose: contention is the point.
	rows, err = pool.Query(ctx, `SELECT id FROM dentists LIMIT $1`, cfg.DentistLimit)
	if err != nil {
		return nil, fmt.Errorf("load dentists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Dentists = append(dp.Dentists, id)
	}

	// Tomorrow through day 14, all comfortably past the lead-time rule.
	for i := 1; i <= 14; i++ {
		dp.Dates = append(dp.Dates, schedule.FormatDate(time.Now().AddDate(0, 0, i)))
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seed tool first")
	}
	if len(dp.Dentists) == 0 {
		return nil, fmt.Errorf("no dentists loaded, run the seed tool first")
	}
	return dp, nil
}

// mintToken signs an access token the way the auth provider would, so the
// simulator can exercise the protected endpoints without a login round trip.
func (s *Simulator) mintToken(authID uuid.UUID) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": authID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		log.Fatalf("sign simulator token: %v", err)
	}
	return signed
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("running for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookRatio:
				s.doBook(ctx, rng)
			case r < s.config.BookRatio+s.config.MoveRatio:
				s.doReschedule(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doSlots(ctx, rng)
				} else {
					s.doList(ctx, rng)
				}
			}
		}
	}
}

var slotStarts = []string{
	"07:00:00", "08:00:00", "09:00:00", "10:00:00", "11:00:00",
	"14:00:00", "15:00:00", "16:00:00", "17:00:00",
}

func (s *Simulator) doBook(ctx context.Context, rng *rand.Rand) {
	idx := rng.Intn(len(s.pool.Patients))
	body := map[string]string{
		"patient_id": s.pool.Patients[idx].String(),
		"dentist_id": s.pool.Dentists[rng.Intn(len(s.pool.Dentists))].String(),
		"date":       s.pool.Dates[rng.Intn(len(s.pool.Dates))],
		"start_time": slotStarts[rng.Intn(len(slotStarts))],
	}

	start := time.Now()
	status, respBody, err := s.post(ctx, "/appointments", s.pool.AuthIDs[idx], body)
	s.metrics.Book.Record(time.Since(start), status, err)

	if err == nil && status == http.StatusCreated {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil && created.ID != uuid.Nil {
			s.pool.AddAppointment(created.ID)
		}
	}
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	idx := rng.Intn(len(s.pool.AuthIDs))
	body := map[string]string{
		"new_date":       s.pool.Dates[rng.Intn(len(s.pool.Dates))],
		"new_start_time": slotStarts[rng.Intn(len(slotStarts))],
	}

	start := time.Now()
	status, _, err := s.put(ctx, "/appointments/"+apptID.String()+"/reschedule", s.pool.AuthIDs[idx], body)
	s.metrics.Move.Record(time.Since(start), status, err)
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	dentistID := s.pool.Dentists[rng.Intn(len(s.pool.Dentists))]
	date := s.pool.Dates[rng.Intn(len(s.pool.Dates))]
	authID := s.pool.AuthIDs[rng.Intn(len(s.pool.AuthIDs))]

	start := time.Now()
	status, _, err := s.get(ctx, fmt.Sprintf("/dentists/%s/slots?date=%s", dentistID, date), authID)
	s.metrics.Slots.Record(time.Since(start), status, err)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	idx := rng.Intn(len(s.pool.Patients))

	start := time.Now()
	status, _, err := s.get(ctx, "/appointments/patient/"+s.pool.Patients[idx].String(), s.pool.AuthIDs[idx])
	s.metrics.List.Record(time.Since(start), status, err)
}

func (s *Simulator) post(ctx context.Context, path string, authID uuid.UUID, body any) (int, []byte, error) {
	return s.send(ctx, http.MethodPost, path, authID, body)
}

func (s *Simulator) put(ctx context.Context, path string, authID uuid.UUID, body any) (int, []byte, error) {
	return s.send(ctx, http.MethodPut, path, authID, body)
}

func (s *Simulator) get(ctx context.Context, path string, authID uuid.UUID) (int, []byte, error) {
	return s.send(ctx, http.MethodGet, path, authID, nil)
}

func (s *Simulator) send(ctx context.Context, method, path string, authID uuid.UUID, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.mintToken(authID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, data, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\nSIMULATION REPORT")
	fmt.Printf("Duration: %s  Workers: %d\n\n", s.config.Duration, s.config.Workers)

	printOperationReport("Book", &s.metrics.Book)
	printOperationReport("Reschedule", &s.metrics.Move)
	printOperationReport("Slots", &s.metrics.Slots)
	printOperationReport("List by patient", &s.metrics.List)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	rejected := atomic.LoadInt64(&om.Rejected)
	errs := atomic.LoadInt64(&om.Error)

	avg, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success, total))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict, total))
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected, total))
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, pct(errs, total))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond))
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
