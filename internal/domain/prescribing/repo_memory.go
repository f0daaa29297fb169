package prescribing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// MemoryRepo keeps prescriptions in insertion order. Values are cloned on
// the way in and out.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Prescription
	order []uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]*Prescription)}
}

func (m *MemoryRepo) Create(_ context.Context, rx *Prescription) error {
	rx.normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[rx.ID]; dup {
		return fmt.Errorf("insert prescription: %w", storage.ErrConflict)
	}
	m.byID[rx.ID] = rx.Clone()
	m.order = append(m.order, rx.ID)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rx, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rx.Clone(), nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	m.mu.RLock()
	var matched []*Prescription
	for _, id := range m.order {
		if rx := m.byID[id]; rx.PatientID == patientID {
			matched = append(matched, rx.Clone())
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *MemoryRepo) SaveLabReports(_ context.Context, rx *Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[rx.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.Version != rx.Version {
		return fmt.Errorf("save lab reports: version %d is stale: %w", rx.Version, storage.ErrConflict)
	}

	rx.Version++
	rx.UpdatedAt = time.Now().UTC()
	stored.LabReports = rx.Clone().LabReports
	stored.Version = rx.Version
	stored.UpdatedAt = rx.UpdatedAt
	return nil
}

// All returns clones of every prescription in insertion order.
func (m *MemoryRepo) All() []*Prescription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Prescription, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].Clone())
	}
	return out
}
