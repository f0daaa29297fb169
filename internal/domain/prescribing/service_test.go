package prescribing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

func TestService_CreatePrescription_Defaults(t *testing.T) {
	f := newFixture(t)
	date := Timestamp{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}

	rx, err := f.svc.CreatePrescription(context.Background(), &CreatePrescriptionRequest{
		DoctorID:  uuid.New(),
		PatientID: f.patient.ID,
		Medicines: []Medicine{{Name: "Amoxicillin", Dosage: "500mg"}},
		LabTests:  []string{"CBC"},
		LabReports: []LabReportInput{
			{Name: "CBC", ReportDate: &date},
			{Name: "Lipid panel", Status: StatusInProgress},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if rx.Version != 1 {
		t.Errorf("expected version 1, got %d", rx.Version)
	}
	if len(rx.LabReports) != 2 {
		t.Fatalf("expected 2 lab reports, got %d", len(rx.LabReports))
	}
	first, second := rx.LabReports[0], rx.LabReports[1]
	if first.ID == uuid.Nil || second.ID == uuid.Nil || first.ID == second.ID {
		t.Error("expected distinct lab report ids")
	}
	if first.Status != StatusPending {
		t.Errorf("expected default status Pending, got %s", first.Status)
	}
	if !first.ReportDate.Equal(date.Time) {
		t.Errorf("expected supplied report date, got %v", first.ReportDate)
	}
	if !second.ReportDate.Equal(fixedNow) {
		t.Errorf("expected report date to default to now, got %v", second.ReportDate)
	}
	if second.Status != StatusInProgress {
		t.Errorf("expected InProgress, got %s", second.Status)
	}

	stored, err := f.svc.GetPrescription(context.Background(), rx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.LabReports) != 2 || stored.LabReports[0].ID != first.ID {
		t.Errorf("stored prescription does not match: %+v", stored)
	}
}

func TestService_CreatePrescription_Validation(t *testing.T) {
	f := newFixture(t)
	doctor := uuid.New()

	tests := []struct {
		name string
		req  CreatePrescriptionRequest
	}{
		{"missing patient", CreatePrescriptionRequest{DoctorID: doctor}},
		{"missing doctor", CreatePrescriptionRequest{PatientID: f.patient.ID}},
		{"unknown patient", CreatePrescriptionRequest{DoctorID: doctor, PatientID: uuid.New()}},
		{"blank medicine", CreatePrescriptionRequest{DoctorID: doctor, PatientID: f.patient.ID, Medicines: []Medicine{{Name: " "}}}},
		{"blank lab report", CreatePrescriptionRequest{DoctorID: doctor, PatientID: f.patient.ID, LabReports: []LabReportInput{{}}}},
		{"bad status", CreatePrescriptionRequest{DoctorID: doctor, PatientID: f.patient.ID, LabReports: []LabReportInput{{Name: "CBC", Status: "Done"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.CreatePrescription(context.Background(), &req)
			if !errors.Is(err, ErrInvalidPrescription) {
				t.Fatalf("expected ErrInvalidPrescription, got %v", err)
			}
		})
	}
}

func TestService_AddLabReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rx, err := f.svc.CreatePrescription(ctx, &CreatePrescriptionRequest{DoctorID: uuid.New(), PatientID: f.patient.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	report, err := f.svc.AddLabReport(ctx, rx.ID, &LabReportInput{Name: "HbA1c", Values: "5.6%"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	stored, _ := f.svc.GetPrescription(ctx, rx.ID)
	if len(stored.LabReports) != 1 || stored.LabReports[0].ID != report.ID {
		t.Fatalf("lab report not stored: %+v", stored.LabReports)
	}
	if stored.Version != 2 {
		t.Errorf("expected version 2 after write, got %d", stored.Version)
	}

	if _, err := f.svc.AddLabReport(ctx, uuid.New(), &LabReportInput{Name: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing prescription, got %v", err)
	}
}

// racingRepo bumps the stored version behind the caller's back before each of
// the first n saves, as a concurrent writer would.
type racingRepo struct {
	*MemoryRepo
	races int
	saves int
}

func (r *racingRepo) SaveLabReports(ctx context.Context, rx *Prescription) error {
	r.saves++
	if r.races > 0 {
		r.races--
		other, _ := r.MemoryRepo.GetByID(ctx, rx.ID)
		if err := r.MemoryRepo.SaveLabReports(ctx, other); err != nil {
			return fmt.Errorf("racing write: %w", err)
		}
	}
	return r.MemoryRepo.SaveLabReports(ctx, rx)
}

func TestService_AddLabReport_RetriesConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rx, _ := f.svc.CreatePrescription(ctx, &CreatePrescriptionRequest{DoctorID: uuid.New(), PatientID: f.patient.ID})

	racing := &racingRepo{MemoryRepo: f.repo, races: 2}
	svc := NewService(racing, f.patients)
	if _, err := svc.AddLabReport(ctx, rx.ID, &LabReportInput{Name: "CBC"}); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if racing.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", racing.saves)
	}

	racing.races = 10
	racing.saves = 0
	_, err := svc.AddLabReport(ctx, rx.ID, &LabReportInput{Name: "CBC"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if racing.saves != maxWriteAttempts {
		t.Errorf("expected %d attempts, got %d", maxWriteAttempts, racing.saves)
	}
}

func TestService_ListByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.svc.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Hour) }
		if _, err := f.svc.CreatePrescription(ctx, &CreatePrescriptionRequest{DoctorID: uuid.New(), PatientID: f.patient.ID}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := f.svc.ListByPatient(ctx, f.patient.ID, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(items), total)
	}
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Error("expected newest first")
	}

	_, total, _ = f.svc.ListByPatient(ctx, uuid.New(), 10, 0)
	if total != 0 {
		t.Errorf("expected no prescriptions for unknown patient, got %d", total)
	}
}
