package labreport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	prescriptions *prescribing.MemoryRepo
	patients      *identity.MemoryPatientRepo
	engine        *Engine
	mutator       *Mutator
}

func newFixture() *fixture {
	f := &fixture{
		prescriptions: prescribing.NewMemoryRepo(),
		patients:      identity.NewMemoryPatientRepo(),
	}
	f.engine = NewEngine(NewMemoryStore(f.prescriptions, f.patients))
	f.mutator = NewMutator(f.prescriptions, f.patients)
	return f
}

func (f *fixture) addPatient(t *testing.T, name, phone string, card int64) *identity.Patient {
	t.Helper()
	p := &identity.Patient{Name: name, Phone: phone, CardID: card}
	if err := f.patients.Create(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}

// addPrescription stores a prescription whose reports are named after their
// report dates. createdAt orders prescriptions naturally.
func (f *fixture) addPrescription(t *testing.T, patientID uuid.UUID, createdAt time.Time, reports ...prescribing.LabReport) *prescribing.Prescription {
	t.Helper()
	rx := &prescribing.Prescription{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: patientID,
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	for _, r := range reports {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.Status == "" {
			r.Status = prescribing.StatusPending
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = createdAt
			r.UpdatedAt = createdAt
		}
		rx.LabReports = append(rx.LabReports, r)
	}
	if err := f.prescriptions.Create(context.Background(), rx); err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	return rx
}

func report(name, date string) prescribing.LabReport {
	return prescribing.LabReport{Name: name, ReportDate: day(date)}
}

// scenario seeds one patient reachable by name, phone or email. P1 holds two
// January/February reports, P2 one January report and P3 none.
type scenario struct {
	*fixture
	patient    *identity.Patient
	p1, p2, p3 *prescribing.Prescription
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	f := newFixture()
	patient := &identity.Patient{Name: "Maria Gomez", Phone: "555-0142", Email: "maria.gomez@example.com", CardID: 1}
	if err := f.patients.Create(context.Background(), patient); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	base := day("2024-01-01")
	return &scenario{
		fixture: f,
		patient: patient,
		p1:      f.addPrescription(t, patient.ID, base, report("Complete blood count", "2024-01-05"), report("Lipid panel", "2024-02-10")),
		p2:      f.addPrescription(t, patient.ID, base.Add(time.Hour), report("Thyroid panel", "2024-01-20")),
		p3:      f.addPrescription(t, patient.ID, base.Add(2*time.Hour)),
	}
}
