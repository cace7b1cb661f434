package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/saident/clinic-backend/internal/patient"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDocumentTaken = errors.New("document number already registered")
)

const (
	RolePatient = "patient"
	RoleStaff   = "staff"
)

// User is the local row mirroring an auth-provider account. Credentials are
// never stored here.
type User struct {
	ID             uuid.UUID
	AuthID         uuid.UUID
	DocumentNumber string
	Email          string
	Role           string
	CreatedAt      time.Time
}

type UserRepository interface {
	FindByDocument(ctx context.Context, document string) (*User, error)
	FindByAuthID(ctx context.Context, authID uuid.UUID) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	provider Provider
	users    UserRepository
	patients *patient.Service
}

func NewService(provider Provider, users UserRepository, patients *patient.Service) *Service {
	return &Service{provider: provider, users: users, patients: patients}
}

type RegisterParams struct {
	Email          string
	Password       string
	DocumentNumber string
	Role           string

	// patient profile, used when Role is patient
	FirstName       string
	PaternalSurname string
	MaternalSurname *string
	BirthDate       *time.Time
	Phone           *string
	Sex             *string
}

// Register creates the account at the auth provider and mirrors it locally.
// Local failures roll the provider account back so a retried registration
// does not hit a half-created identity.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*User, error) {
	if _, err := s.users.FindByDocument(ctx, p.DocumentNumber); err == nil {
		return nil, ErrDocumentTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check document: %w", err)
	}

	authID, err := s.provider.CreateUser(ctx, p.Email, p.Password)
	if err != nil {
		return nil, fmt.Errorf("create auth user: %w", err)
	}

	user, err := s.users.Create(ctx, &User{
		ID:             uuid.New(),
		AuthID:         authID,
		DocumentNumber: p.DocumentNumber,
		Email:          p.Email,
		Role:           p.Role,
	})
	if err != nil {
		if delErr := s.provider.DeleteUser(ctx, authID); delErr != nil {
			log.Printf("rollback auth user %s after failed insert: %v", authID, delErr)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if p.Role == RolePatient {
		_, _, err := s.patients.Register(ctx, user.ID, &patient.Patient{
			DocumentNumber:  p.DocumentNumber,
			FirstName:       p.FirstName,
			PaternalSurname: p.PaternalSurname,
			MaternalSurname: p.MaternalSurname,
			BirthDate:       p.BirthDate,
			Phone:           p.Phone,
			Sex:             p.Sex,
		}, patient.RelationTitular)
		if err != nil {
			if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
				log.Printf("rollback user %s after failed patient insert: %v", user.ID, delErr)
			}
			if delErr := s.provider.DeleteUser(ctx, authID); delErr != nil {
				log.Printf("rollback auth user %s after failed patient insert: %v", authID, delErr)
			}
			return nil, fmt.Errorf("register patient: %w", err)
		}
	}

	return user, nil
}

// Login resolves the account email by document number, then delegates the
// credential check to the provider. A wrong document and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, document, password string) (*Session, *User, error) {
	user, err := s.users.FindByDocument(ctx, document)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	sess, err := s.provider.SignInWithPassword(ctx, user.Email, password)
	if err != nil {
		return nil, nil, err
	}
	return sess, user, nil
}

// UserByAuthID maps a provider subject (token "sub" claim) to the local
// account row.
func (s *Service) UserByAuthID(ctx context.Context, authID uuid.UUID) (*User, error) {
	return s.users.FindByAuthID(ctx, authID)
}

// Recover asks the provider to send a password-recovery email. The response
// never reveals whether the document exists.
func (s *Service) Recover(ctx context.Context, document string) error {
	user, err := s.users.FindByDocument(ctx, document)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	return s.provider.SendRecovery(ctx, user.Email)
}
