package prescribing

import (
	"context"

	"github.com/google/uuid"
)

// Repository is implemented by the postgres, mongo and memory stores.
//
// SaveLabReports replaces the lab report list of rx when the stored version
// still equals rx.Version. On success rx.Version is incremented; a stale
// version yields storage.ErrConflict and a missing row storage.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, rx *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	SaveLabReports(ctx context.Context, rx *Prescription) error
}
