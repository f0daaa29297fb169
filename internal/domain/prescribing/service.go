package prescribing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// ErrInvalidPrescription is returned for payloads that fail validation.
var ErrInvalidPrescription = errors.New("invalid prescription")

const maxWriteAttempts = 3

// PatientLookup is the part of the patient store prescriptions depend on.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{repo: repo, patients: patients, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) CreatePrescription(ctx context.Context, req *CreatePrescriptionRequest) (*Prescription, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patientId is required", ErrInvalidPrescription)
	}
	if req.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctorId is required", ErrInvalidPrescription)
	}
	if _, err := s.patients.GetByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: patient %s does not exist", ErrInvalidPrescription, req.PatientID)
		}
		return nil, err
	}
	for i, m := range req.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("%w: medicines[%d].name is required", ErrInvalidPrescription, i)
		}
	}

	now := s.now()
	rx := &Prescription{
		ID:        uuid.New(),
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Medicines: req.Medicines,
		Diagnosis: strings.TrimSpace(req.Diagnosis),
		Notes:     req.Notes,
		LabTests:  req.LabTests,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range req.LabReports {
		report, err := s.newLabReport(&req.LabReports[i], now)
		if err != nil {
			return nil, err
		}
		rx.LabReports = append(rx.LabReports, report)
	}

	if err := s.repo.Create(ctx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// AddLabReport appends a report to an existing prescription. A concurrent
// write to the same prescription is retried against the fresh version.
func (s *Service) AddLabReport(ctx context.Context, prescriptionID uuid.UUID, in *LabReportInput) (*LabReport, error) {
	report, err := s.newLabReport(in, s.now())
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		rx, err := s.repo.GetByID(ctx, prescriptionID)
		if err != nil {
			return nil, err
		}
		rx.LabReports = append(rx.LabReports, report)

		err = s.repo.SaveLabReports(ctx, rx)
		if err == nil {
			return &report, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().
			Str("prescription_id", prescriptionID.String()).
			Int("attempt", attempt).
			Msg("lab report list changed concurrently, retrying")
	}
	return nil, fmt.Errorf("add lab report to %s: %w", prescriptionID, storage.ErrConflict)
}

func (s *Service) newLabReport(in *LabReportInput, now time.Time) (LabReport, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return LabReport{}, fmt.Errorf("%w: lab report name is required", ErrInvalidPrescription)
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return LabReport{}, fmt.Errorf("%w: unknown lab report status %q", ErrInvalidPrescription, in.Status)
	}
	reportDate := now
	if in.ReportDate != nil && !in.ReportDate.IsZero() {
		reportDate = in.ReportDate.Time
	}
	return LabReport{
		ID:             uuid.New(),
		Name:           name,
		Values:         in.Values,
		ReportDate:     reportDate,
		ReportImageURL: in.ReportImageURL,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
