package labreport

import (
	"context"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// Store evaluates a plan against the lab reports of every prescription. The
// returned total and page come from the same logical pass.
type Store interface {
	Search(ctx context.Context, plan Plan) ([]Row, int, error)
}

type memStore struct {
	prescriptions *prescribing.MemoryRepo
	patients      *identity.MemoryPatientRepo
}

// NewMemoryStore evaluates plans over the in-memory repositories.
func NewMemoryStore(prescriptions *prescribing.MemoryRepo, patients *identity.MemoryPatientRepo) Store {
	return &memStore{prescriptions: prescriptions, patients: patients}
}

func (s *memStore) Search(ctx context.Context, plan Plan) ([]Row, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, storage.Unavailable("search lab reports", err)
	}
	all := s.prescriptions.All()
	sources := make([]Source, 0, len(all))
	for _, rx := range all {
		if len(rx.LabReports) == 0 {
			continue
		}
		patient, _ := s.patients.Lookup(rx.PatientID)
		sources = append(sources, Source{Prescription: rx, Patient: patient})
	}
	rows, total := plan.Evaluate(Flatten(sources))
	return rows, total, nil
}
