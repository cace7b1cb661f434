package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saident/clinic-backend/internal/identity"
	"github.com/saident/clinic-backend/internal/patient"
)

// stubs backing the identity and patient services

type stubProvider struct{}

func (stubProvider) CreateUser(context.Context, string, string) (uuid.UUID, error) {
	return uuid.New(), nil
}
func (stubProvider) DeleteUser(context.Context, uuid.UUID) error { return nil }
func (stubProvider) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	return &identity.Session{AccessToken: "token"}, nil
}
func (stubProvider) SendRecovery(context.Context, string) error { return nil }

type stubUserRepo struct {
	users map[uuid.UUID]*identity.User // keyed by auth id
}

func (r *stubUserRepo) FindByDocument(_ context.Context, document string) (*identity.User, error) {
	for _, u := range r.users {
		if u.DocumentNumber == document {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *stubUserRepo) FindByAuthID(_ context.Context, authID uuid.UUID) (*identity.User, error) {
	u, ok := r.users[authID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) Create(_ context.Context, u *identity.User) (*identity.User, error) {
	cp := *u
	r.users[cp.AuthID] = &cp
	return &cp, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	for authID, u := range r.users {
		if u.ID == id {
			delete(r.users, authID)
			return nil
		}
	}
	return identity.ErrUserNotFound
}

type stubPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
	links    map[uuid.UUID]map[uuid.UUID]bool // patientID -> userID
}

func (r *stubPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (r *stubPatientRepo) FindByDocument(_ context.Context, docType, docNumber string) (*patient.Patient, error) {
	for _, p := range r.patients {
		if p.DocumentType == docType && p.DocumentNumber == docNumber {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r *stubPatientRepo) Create(_ context.Context, p *patient.Patient) (*patient.Patient, error) {
	cp := *p
	r.patients[cp.ID] = &cp
	return &cp, nil
}

func (r *stubPatientRepo) Update(_ context.Context, p *patient.Patient) (*patient.Patient, error) {
	if _, ok := r.patients[p.ID]; !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	r.patients[cp.ID] = &cp
	return &cp, nil
}

func (r *stubPatientRepo) LinkToUser(_ context.Context, patientID, userID uuid.UUID, _ string) error {
	if r.links[patientID] == nil {
		r.links[patientID] = make(map[uuid.UUID]bool)
	}
	r.links[patientID][userID] = true
	return nil
}

func (r *stubPatientRepo) IsLinkedToUser(_ context.Context, patientID, userID uuid.UUID) (bool, error) {
	return r.links[patientID][userID], nil
}

func (r *stubPatientRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]patient.Patient, error) {
	var out []patient.Patient
	for pid, users := range r.links {
		if users[userID] {
			out = append(out, *r.patients[pid])
		}
	}
	return out, nil
}

type routerFixture struct {
	router   http.Handler
	users    *stubUserRepo
	patients *stubPatientRepo

	authID    uuid.UUID
	userID    uuid.UUID
	patientID uuid.UUID
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	users := &stubUserRepo{users: make(map[uuid.UUID]*identity.User)}
	patients := &stubPatientRepo{
		patients: make(map[uuid.UUID]*patient.Patient),
		links:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}

	patientSvc := patient.NewService(patients)
	identitySvc := identity.NewService(stubProvider{}, users, patientSvc)

	authID := uuid.New()
	userID := uuid.New()
	users.users[authID] = &identity.User{
		ID:             userID,
		AuthID:         authID,
		DocumentNumber: "45678912",
		Email:          "ana@example.com",
		Role:           identity.RolePatient,
	}

	patientID := uuid.New()
	patients.patients[patientID] = &patient.Patient{
		ID:              patientID,
		DocumentType:    "DNI",
		DocumentNumber:  "45678912",
		FirstName:       "Ana",
		PaternalSurname: "Quispe",
	}
	patients.links[patientID] = map[uuid.UUID]bool{userID: true}

	router := NewRouter(RouterConfig{
		Patients:  patientSvc,
		Identity:  identitySvc,
		JWTSecret: testSecret,
	})

	return &routerFixture{
		router: router, users: users, patients: patients,
		authID: authID, userID: userID, patientID: patientID,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMe(t *testing.T) {
	f := newRouterFixture(t)
	token := signToken(t, testSecret, f.authID.String(), time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.userID, resp.ID)
	assert.Equal(t, f.authID, resp.AuthID)
	assert.Equal(t, "45678912", resp.DocumentNumber)
	assert.Equal(t, "ana@example.com", resp.Email)
	assert.Equal(t, identity.RolePatient, resp.Role)
}

func TestAuthMe_RequiresKnownAccount(t *testing.T) {
	f := newRouterFixture(t)

	// no token at all
	rec := f.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token for an auth id this service has never seen
	stranger := signToken(t, testSecret, uuid.NewString(), time.Now().Add(time.Hour))
	rec = f.do(t, http.MethodGet, "/auth/me", stranger, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePatient(t *testing.T) {
	f := newRouterFixture(t)
	token := signToken(t, testSecret, f.authID.String(), time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPut, "/patients/"+f.patientID.String(), token,
		`{"first_name":"Ana Maria","phone":"+51 987 654 321"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PatientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ana Maria", resp.FirstName)
	require.NotNil(t, resp.Phone)
	assert.Equal(t, "+51 987 654 321", *resp.Phone)
	// untouched and immutable fields survive
	assert.Equal(t, "Quispe", resp.PaternalSurname)
	assert.Equal(t, "45678912", resp.DocumentNumber)
}

func TestUpdatePatient_NotLinkedIsForbidden(t *testing.T) {
	f := newRouterFixture(t)

	// a second account with no link to the record
	otherAuth := uuid.New()
	f.users.users[otherAuth] = &identity.User{
		ID:             uuid.New(),
		AuthID:         otherAuth,
		DocumentNumber: "11223344",
		Role:           identity.RolePatient,
	}
	token := signToken(t, testSecret, otherAuth.String(), time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPut, "/patients/"+f.patientID.String(), token,
		`{"phone":"+51 987 654 321"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// record untouched
	assert.Nil(t, f.patients.patients[f.patientID].Phone)
}

func TestUpdatePatient_Validation(t *testing.T) {
	f := newRouterFixture(t)
	token := signToken(t, testSecret, f.authID.String(), time.Now().Add(time.Hour))

	rec := f.do(t, http.MethodPut, "/patients/"+uuid.NewString(), token, `{"phone":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/patients/not-a-uuid", token, `{"phone":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/patients/"+f.patientID.String(), token,
		`{"birth_date":"01/06/1990"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
