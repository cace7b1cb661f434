package treatment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("treatment not found")

// Treatment is one catalog entry the clinic offers. The catalog is read-only
// from the API's perspective.
type Treatment struct {
	ID               uuid.UUID
	Name             string
	Description      *string
	EstimatedMinutes *int
	Cost             *float64
	CreatedAt        time.Time
}

type Repository interface {
	List(ctx context.Context) ([]Treatment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
}
