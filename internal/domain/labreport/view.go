// Package labreport exposes the lab reports embedded in prescriptions as a
// searchable, sortable and paginated resource of their own.
package labreport

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
)

// PatientSummary is the denormalized patient part of a View.
type PatientSummary struct {
	ID     uuid.UUID `json:"id"`
	CardID int64     `json:"cardId"`
	Name   string    `json:"name"`
	Email  string    `json:"email,omitempty"`
	Phone  string    `json:"phone,omitempty"`
	Gender string    `json:"gender,omitempty"`
	Age    *int      `json:"age,omitempty"`
}

// View is one embedded lab report joined with its parent prescription id and
// the referenced patient. Patient is nil when the reference dangles. Views
// are derived on every read and never stored.
type View struct {
	ID             uuid.UUID                   `json:"id"`
	PrescriptionID uuid.UUID                   `json:"prescriptionId"`
	Name           string                      `json:"name"`
	Values         string                      `json:"values"`
	ReportDate     time.Time                   `json:"reportDate"`
	ReportImageURL *string                     `json:"reportImageUrl"`
	Status         prescribing.LabReportStatus `json:"status"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
	Patient        *PatientSummary             `json:"patient"`
}

// Source pairs a prescription with its joined patient, which may be nil.
type Source struct {
	Prescription *prescribing.Prescription
	Patient      *identity.Patient
}

// Project flattens sources into views: prescriptions in input order, lab
// reports in embedded order. Prescriptions without lab reports contribute
// nothing.
func Project(sources []Source) []View {
	var n int
	for _, s := range sources {
		n += len(s.Prescription.LabReports)
	}
	views := make([]View, 0, n)
	for _, s := range sources {
		for i := range s.Prescription.LabReports {
			views = append(views, newView(s.Prescription.ID, &s.Prescription.LabReports[i], s.Patient))
		}
	}
	return views
}

func newView(prescriptionID uuid.UUID, r *prescribing.LabReport, p *identity.Patient) View {
	v := View{
		ID:             r.ID,
		PrescriptionID: prescriptionID,
		Name:           r.Name,
		Values:         r.Values,
		ReportDate:     r.ReportDate,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.ReportImageURL != nil {
		u := *r.ReportImageURL
		v.ReportImageURL = &u
	}
	if p != nil {
		v.Patient = &PatientSummary{
			ID:     p.ID,
			CardID: p.CardID,
			Name:   p.Name,
			Email:  p.Email,
			Phone:  p.Phone,
			Gender: p.Gender,
		}
		if p.Age != nil {
			age := *p.Age
			v.Patient.Age = &age
		}
	}
	return v
}
