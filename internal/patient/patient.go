package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("patient not found")
	ErrNotLinked = errors.New("patient is not linked to this account")
)

// Relation roles between an account and a patient record. An account holder
// books for themselves as titular and for family members as responsable.
const (
	RelationTitular     = "titular"
	RelationResponsable = "responsable"
	RelationAutorizado  = "autorizado"
)

type Patient struct {
	ID              uuid.UUID
	DocumentType    string
	DocumentNumber  string
	FirstName       string
	PaternalSurname string
	MaternalSurname *string
	BirthDate       *time.Time
	Phone           *string
	Address         *string
	Sex             *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Patient) FullName() string {
	parts := []string{p.FirstName, p.PaternalSurname}
	if p.MaternalSurname != nil && *p.MaternalSurname != "" {
		parts = append(parts, *p.MaternalSurname)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Repository contains the DB interactions for patient records and their
// account links.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindByDocument(ctx context.Context, docType, docNumber string) (*Patient, error)
	Create(ctx context.Context, p *Patient) (*Patient, error)
	Update(ctx context.Context, p *Patient) (*Patient, error)
	LinkToUser(ctx context.Context, patientID, userID uuid.UUID, relation string) error
	IsLinkedToUser(ctx context.Context, patientID, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Patient, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a patient record for the given account, deduplicating by
// document: if a patient with the same document already exists it is linked
// to the account instead of duplicated. The second return value reports
// whether an existing record was reused.
func (s *Service) Register(ctx context.Context, userID uuid.UUID, p *Patient, relation string) (*Patient, bool, error) {
	if relation == "" {
		relation = RelationTitular
	}
	if p.DocumentType == "" {
		p.DocumentType = "DNI"
	}

	existing, err := s.repo.FindByDocument(ctx, p.DocumentType, p.DocumentNumber)
	if err == nil {
		linked, err := s.repo.IsLinkedToUser(ctx, existing.ID, userID)
		if err != nil {
			return nil, false, fmt.Errorf("check patient link: %w", err)
		}
		if !linked {
			if err := s.repo.LinkToUser(ctx, existing.ID, userID, relation); err != nil {
				return nil, false, fmt.Errorf("link patient to user: %w", err)
			}
		}
		return existing, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find patient by document: %w", err)
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("create patient: %w", err)
	}
	if err := s.repo.LinkToUser(ctx, created.ID, userID, relation); err != nil {
		return nil, false, fmt.Errorf("link patient to user: %w", err)
	}
	return created, false, nil
}

// UpdateParams carries the editable fields of a patient record; nil means
// leave unchanged. The document identity is immutable, it is what records are
// deduplicated by.
type UpdateParams struct {
	FirstName       *string
	PaternalSurname *string
	MaternalSurname *string
	BirthDate       *time.Time
	Phone           *string
	Address         *string
	Sex             *string
}

// Update edits a patient record on behalf of an account. Only accounts with
// an active link to the record may edit it.
func (s *Service) Update(ctx context.Context, userID, patientID uuid.UUID, p UpdateParams) (*Patient, error) {
	existing, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	linked, err := s.repo.IsLinkedToUser(ctx, patientID, userID)
	if err != nil {
		return nil, fmt.Errorf("check patient link: %w", err)
	}
	if !linked {
		return nil, ErrNotLinked
	}

	if p.FirstName != nil {
		existing.FirstName = *p.FirstName
	}
	if p.PaternalSurname != nil {
		existing.PaternalSurname = *p.PaternalSurname
	}
	if p.MaternalSurname != nil {
		existing.MaternalSurname = p.MaternalSurname
	}
	if p.BirthDate != nil {
		existing.BirthDate = p.BirthDate
	}
	if p.Phone != nil {
		existing.Phone = p.Phone
	}
	if p.Address != nil {
		existing.Address = p.Address
	}
	if p.Sex != nil {
		existing.Sex = p.Sex
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Patient, error) {
	return s.repo.ListByUser(ctx, userID)
}
