package prescribing

import (
	"context"
	"testing"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/identity"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *MemoryRepo
	patients *identity.MemoryPatientRepo
	patient  *identity.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patients := identity.NewMemoryPatientRepo()
	p := &identity.Patient{Name: "Ann Lee", Phone: "555-0101", CardID: 1}
	if err := patients.Create(context.Background(), p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	repo := NewMemoryRepo()
	svc := NewService(repo, patients)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, repo: repo, patients: patients, patient: p}
}
