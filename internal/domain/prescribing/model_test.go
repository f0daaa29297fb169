package prescribing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{`"2024-01-05"`, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{`"2024-01-05T10:00:00+02:00"`, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), false},
		{`null`, time.Time{}, false},
		{`"05/01/2024"`, time.Time{}, true},
		{`42`, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.in), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestPrescription_CloneIsDeep(t *testing.T) {
	url := "https://files/1.png"
	rx := &Prescription{
		LabReports: []LabReport{{ID: uuid.New(), Name: "CBC", ReportImageURL: &url}},
		LabTests:   []string{"CBC"},
	}
	cp := rx.Clone()
	cp.LabReports[0].Name = "changed"
	*cp.LabReports[0].ReportImageURL = "changed"
	cp.LabTests[0] = "changed"

	if rx.LabReports[0].Name != "CBC" || *rx.LabReports[0].ReportImageURL != url || rx.LabTests[0] != "CBC" {
		t.Error("clone shares state with the original")
	}
	if rx.IndexOfLabReport(rx.LabReports[0].ID) != 0 || rx.IndexOfLabReport(uuid.New()) != -1 {
		t.Error("IndexOfLabReport returned the wrong position")
	}
}

func TestMemoryRepo_SaveLabReportsVersionCheck(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	rx := &Prescription{ID: uuid.New(), Version: 1}
	if err := repo.Create(ctx, rx); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := repo.GetByID(ctx, rx.ID)
	b, _ := repo.GetByID(ctx, rx.ID)

	a.LabReports = append(a.LabReports, LabReport{ID: uuid.New(), Name: "A"})
	if err := repo.SaveLabReports(ctx, a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("expected caller version bumped to 2, got %d", a.Version)
	}

	b.LabReports = append(b.LabReports, LabReport{ID: uuid.New(), Name: "B"})
	if err := repo.SaveLabReports(ctx, b); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}

	missing := &Prescription{ID: uuid.New(), Version: 1}
	if err := repo.SaveLabReports(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stored, _ := repo.GetByID(ctx, rx.ID)
	if len(stored.LabReports) != 1 || stored.LabReports[0].Name != "A" {
		t.Errorf("unexpected stored reports: %+v", stored.LabReports)
	}
}

func TestPrescriptionDoc_RoundTrip(t *testing.T) {
	url := "https://files/1.png"
	rx := &Prescription{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Medicines: []Medicine{{Name: "Ibuprofen", Frequency: "tid"}},
		LabReports: []LabReport{{
			ID: uuid.New(), Name: "CBC", Status: StatusCompleted, ReportImageURL: &url,
			ReportDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		}},
		Version: 4,
	}
	doc := NewPrescriptionDoc(rx)
	back := doc.Prescription()

	if back.ID != rx.ID || back.PatientID != rx.PatientID || back.Version != 4 {
		t.Errorf("ids or version lost: %+v", back)
	}
	if back.Medicines[0] != rx.Medicines[0] {
		t.Errorf("medicine mismatch: %+v", back.Medicines[0])
	}
	r := back.LabReports[0]
	if r.ID != rx.LabReports[0].ID || r.Status != StatusCompleted || *r.ReportImageURL != url {
		t.Errorf("lab report mismatch: %+v", r)
	}
	if back.LabTests == nil {
		t.Error("expected empty lab tests slice, got nil")
	}
}
