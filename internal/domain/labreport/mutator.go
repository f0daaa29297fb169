package labreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

const maxMutationAttempts = 3

// Mutator changes single embedded lab reports. Each attempt is one read and
// one versioned write of the parent's lab report list; patients are only read.
type Mutator struct {
	prescriptions prescribing.Repository
	patients      prescribing.PatientLookup
	now           func() time.Time
}

func NewMutator(prescriptions prescribing.Repository, patients prescribing.PatientLookup) *Mutator {
	return &Mutator{
		prescriptions: prescriptions,
		patients:      patients,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (m *Mutator) UpdateStatus(ctx context.Context, prescriptionID, labReportID uuid.UUID, status string) (*View, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return m.mutate(ctx, prescriptionID, labReportID, func(r *prescribing.LabReport) error {
		if err := ValidateTransition(r.Status, to); err != nil {
			return err
		}
		r.Status = to
		return nil
	})
}

// AttachReportImage sets the report image reference. reportDate replaces the
// stored date only when given.
func (m *Mutator) AttachReportImage(ctx context.Context, prescriptionID, labReportID uuid.UUID, imageURL string, reportDate *time.Time) (*View, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, fmt.Errorf("%w: reportImageUrl is required", ErrInvalidRequest)
	}
	return m.mutate(ctx, prescriptionID, labReportID, func(r *prescribing.LabReport) error {
		u := imageURL
		r.ReportImageURL = &u
		if reportDate != nil {
			r.ReportDate = reportDate.UTC()
		}
		return nil
	})
}

func (m *Mutator) mutate(ctx context.Context, prescriptionID, labReportID uuid.UUID, apply func(*prescribing.LabReport) error) (*View, error) {
	for attempt := 1; attempt <= maxMutationAttempts; attempt++ {
		rx, err := m.prescriptions.GetByID(ctx, prescriptionID)
		if err != nil {
			return nil, fmt.Errorf("load prescription %s: %w", prescriptionID, err)
		}
		idx := rx.IndexOfLabReport(labReportID)
		if idx < 0 {
			return nil, fmt.Errorf("lab report %s in prescription %s: %w", labReportID, prescriptionID, storage.ErrNotFound)
		}

		report := &rx.LabReports[idx]
		if err := apply(report); err != nil {
			return nil, err
		}
		report.UpdatedAt = m.now()

		patient, err := m.patient(ctx, rx.PatientID)
		if err != nil {
			return nil, err
		}

		err = m.prescriptions.SaveLabReports(ctx, rx)
		if err == nil {
			view := newView(rx.ID, report, patient)
			return &view, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().
			Str("prescription_id", prescriptionID.String()).
			Str("lab_report_id", labReportID.String()).
			Int("attempt", attempt).
			Msg("lab report write lost a race, retrying")
	}
	return nil, fmt.Errorf("update lab report %s after %d attempts: %w", labReportID, maxMutationAttempts, storage.ErrConflict)
}

// patient returns nil when the reference dangles.
func (m *Mutator) patient(ctx context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, err := m.patients.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load patient %s: %w", id, err)
	}
	return p, nil
}
