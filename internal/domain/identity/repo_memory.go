package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// MemoryPatientRepo keeps patients in process memory. Returned values are
// copies so callers cannot mutate stored state.
type MemoryPatientRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
	cards    map[int64]uuid.UUID
	now      func() time.Time
}

func NewMemoryPatientRepo() *MemoryPatientRepo {
	return &MemoryPatientRepo{
		patients: make(map[uuid.UUID]Patient),
		cards:    make(map[int64]uuid.UUID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryPatientRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.cards[p.CardID]; taken {
		return fmt.Errorf("insert patient: %w", storage.ErrConflict)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := m.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	m.patients[p.ID] = *p
	m.cards[p.CardID] = p.ID
	return nil
}

func (m *MemoryPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.Lookup(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

// Lookup returns a copy of the patient, if present.
func (m *MemoryPatientRepo) Lookup(id uuid.UUID) (*Patient, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (m *MemoryPatientRepo) Search(_ context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	term = NormalizeSearch(term)

	m.mu.RLock()
	var matched []*Patient
	for _, p := range m.patients {
		if p.Matches(term) {
			cp := p
			matched = append(matched, &cp)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CardID < matched[j].CardID })

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

func (m *MemoryPatientRepo) MaxCardID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var max int64
	for card := range m.cards {
		if card > max {
			max = card
		}
	}
	return max, nil
}
