package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saident/clinic-backend/internal/patient"
)

type fakeProvider struct {
	created   []uuid.UUID
	deleted   []uuid.UUID
	recovered []string

	createErr error
	signInErr error
	session   *Session
}

func (p *fakeProvider) CreateUser(_ context.Context, email, password string) (uuid.UUID, error) {
	if p.createErr != nil {
		return uuid.Nil, p.createErr
	}
	id := uuid.New()
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) DeleteUser(_ context.Context, authID uuid.UUID) error {
	p.deleted = append(p.deleted, authID)
	return nil
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	if p.session != nil {
		return p.session, nil
	}
	return &Session{AccessToken: "token", TokenType: "bearer", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) SendRecovery(_ context.Context, email string) error {
	p.recovered = append(p.recovered, email)
	return nil
}

type fakeUserRepo struct {
	byDocument map[string]*User
	byAuthID   map[uuid.UUID]*User

	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byDocument: make(map[string]*User),
		byAuthID:   make(map[uuid.UUID]*User),
	}
}

func (r *fakeUserRepo) FindByDocument(_ context.Context, document string) (*User, error) {
	u, ok := r.byDocument[document]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByAuthID(_ context.Context, authID uuid.UUID) (*User, error) {
	u, ok := r.byAuthID[authID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) (*User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	cp := *u
	r.byDocument[cp.DocumentNumber] = &cp
	r.byAuthID[cp.AuthID] = &cp
	return &cp, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	for doc, u := range r.byDocument {
		if u.ID == id {
			delete(r.byDocument, doc)
			delete(r.byAuthID, u.AuthID)
			return nil
		}
	}
	return ErrUserNotFound
}

// failing patient repo to trigger the deepest rollback path
type failingPatientRepo struct{ patient.Repository }

func (failingPatientRepo) FindByDocument(context.Context, string, string) (*patient.Patient, error) {
	return nil, patient.ErrNotFound
}

func (failingPatientRepo) Create(context.Context, *patient.Patient) (*patient.Patient, error) {
	return nil, errors.New("db down")
}

type memPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
	links    map[uuid.UUID][]uuid.UUID
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{
		patients: make(map[uuid.UUID]*patient.Patient),
		links:    make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *memPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (r *memPatientRepo) FindByDocument(_ context.Context, docType, docNumber string) (*patient.Patient, error) {
	for _, p := range r.patients {
		if p.DocumentType == docType && p.DocumentNumber == docNumber {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r *memPatientRepo) Create(_ context.Context, p *patient.Patient) (*patient.Patient, error) {
	cp := *p
	r.patients[cp.ID] = &cp
	return &cp, nil
}

func (r *memPatientRepo) Update(_ context.Context, p *patient.Patient) (*patient.Patient, error) {
	cp := *p
	r.patients[cp.ID] = &cp
	return &cp, nil
}

func (r *memPatientRepo) LinkToUser(_ context.Context, patientID, userID uuid.UUID, _ string) error {
	r.links[patientID] = append(r.links[patientID], userID)
	return nil
}

func (r *memPatientRepo) IsLinkedToUser(_ context.Context, patientID, userID uuid.UUID) (bool, error) {
	for _, u := range r.links[patientID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPatientRepo) ListByUser(context.Context, uuid.UUID) ([]patient.Patient, error) {
	return nil, nil
}

func registerParams() RegisterParams {
	return RegisterParams{
		Email:           "ana@example.com",
		Password:        "s3cret-pass",
		DocumentNumber:  "45678912",
		Role:            RolePatient,
		FirstName:       "Ana",
		PaternalSurname: "Quispe",
	}
}

func TestRegister_PatientAccount(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	patients := newMemPatientRepo()
	svc := NewService(provider, users, patient.NewService(patients))

	user, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	assert.Equal(t, "45678912", user.DocumentNumber)
	assert.Equal(t, RolePatient, user.Role)
	require.Len(t, provider.created, 1)
	assert.Equal(t, provider.created[0], user.AuthID)

	// a patient record was created and linked to the new account
	require.Len(t, patients.patients, 1)
	for id := range patients.patients {
		assert.Contains(t, patients.links[id], user.ID)
	}
}

func TestRegister_DocumentTaken(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	_, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	p := registerParams()
	p.Email = "otra@example.com"
	_, err = svc.Register(context.Background(), p)
	assert.ErrorIs(t, err, ErrDocumentTaken)
	assert.Len(t, provider.created, 1)
}

func TestRegister_RollsBackProviderOnLocalFailure(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	users.createErr = errors.New("db down")
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	_, err := svc.Register(context.Background(), registerParams())
	require.Error(t, err)

	require.Len(t, provider.created, 1)
	assert.Equal(t, provider.created, provider.deleted)
}

func TestRegister_RollsBackEverythingOnPatientFailure(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(failingPatientRepo{}))

	_, err := svc.Register(context.Background(), registerParams())
	require.Error(t, err)

	assert.Equal(t, provider.created, provider.deleted)
	assert.Empty(t, users.byDocument)
}

func TestLogin(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	registered, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	sess, user, err := svc.Login(context.Background(), "45678912", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, sess.AccessToken)
}

func TestLogin_UnknownDocumentLooksLikeBadPassword(t *testing.T) {
	svc := NewService(&fakeProvider{}, newFakeUserRepo(), patient.NewService(newMemPatientRepo()))

	_, _, err := svc.Login(context.Background(), "00000000", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ProviderRejects(t *testing.T) {
	provider := &fakeProvider{signInErr: ErrInvalidCredentials}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	_, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "45678912", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRecover_NeverRevealsExistence(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	// unknown document succeeds silently
	require.NoError(t, svc.Recover(context.Background(), "00000000"))
	assert.Empty(t, provider.recovered)

	_, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	require.NoError(t, svc.Recover(context.Background(), "45678912"))
	assert.Equal(t, []string{"ana@example.com"}, provider.recovered)
}

func TestUserByAuthID(t *testing.T) {
	provider := &fakeProvider{}
	users := newFakeUserRepo()
	svc := NewService(provider, users, patient.NewService(newMemPatientRepo()))

	registered, err := svc.Register(context.Background(), registerParams())
	require.NoError(t, err)

	got, err := svc.UserByAuthID(context.Background(), registered.AuthID)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, got.ID)

	_, err = svc.UserByAuthID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
