package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// ErrInvalidPatient is returned for patient payloads that fail validation.
var ErrInvalidPatient = errors.New("invalid patient")

const maxCardAttempts = 5

type Service struct {
	patients PatientRepository
	cards    CardAllocator
}

func NewService(patients PatientRepository, cards CardAllocator) *Service {
	return &Service{patients: patients, cards: cards}
}

// CreatePatient validates p, assigns a card id and stores it. A card id
// collision with a concurrent insert is retried with a fresh id.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPatient)
	}
	if p.Age != nil && *p.Age < 0 {
		return fmt.Errorf("%w: age must not be negative", ErrInvalidPatient)
	}
	p.ID = uuid.Nil

	for attempt := 1; attempt <= maxCardAttempts; attempt++ {
		card, err := s.cards.Next(ctx)
		if err != nil {
			return err
		}
		p.CardID = card

		err = s.patients.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
		zerolog.Ctx(ctx).Warn().Int64("card_id", card).Int("attempt", attempt).Msg("card id collision, retrying")
		p.ID = uuid.Nil
	}
	return fmt.Errorf("allocate card id after %d attempts: %w", maxCardAttempts, storage.ErrConflict)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, strings.TrimSpace(term), limit, offset)
}
