package identity

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository is implemented by the postgres, mongo and memory stores.
// Lookups of a missing id return storage.ErrNotFound; Create returns
// storage.ErrConflict when the card id is already taken.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error)
	MaxCardID(ctx context.Context) (int64, error)
}
