package prescribing

import (
	"time"

	"github.com/google/uuid"
)

type LabReportStatus string

const (
	StatusPending    LabReportStatus = "Pending"
	StatusInProgress LabReportStatus = "InProgress"
	StatusCompleted  LabReportStatus = "Completed"
)

func (s LabReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// LabReport is embedded in its prescription. ID is unique within the parent
// list and stable once assigned.
type LabReport struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Values         string          `json:"values"`
	ReportDate     time.Time       `json:"reportDate"`
	ReportImageURL *string         `json:"reportImageUrl"`
	Status         LabReportStatus `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription owns its lab reports. Version increases on every write of the
// lab report list and guards concurrent writers.
type Prescription struct {
	ID         uuid.UUID   `json:"id"`
	DoctorID   uuid.UUID   `json:"doctorId"`
	PatientID  uuid.UUID   `json:"patientId"`
	Medicines  []Medicine  `json:"medicines"`
	Diagnosis  string      `json:"diagnosis,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	LabTests   []string    `json:"labTests"`
	LabReports []LabReport `json:"labReports"`
	Version    int         `json:"version"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// IndexOfLabReport returns the position of the lab report with id, or -1.
func (p *Prescription) IndexOfLabReport(id uuid.UUID) int {
	for i := range p.LabReports {
		if p.LabReports[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (p *Prescription) Clone() *Prescription {
	cp := *p
	cp.Medicines = append([]Medicine(nil), p.Medicines...)
	cp.LabTests = append([]string(nil), p.LabTests...)
	cp.LabReports = make([]LabReport, len(p.LabReports))
	for i, r := range p.LabReports {
		if r.ReportImageURL != nil {
			u := *r.ReportImageURL
			r.ReportImageURL = &u
		}
		cp.LabReports[i] = r
	}
	return &cp
}

func (p *Prescription) normalize() {
	if p.Medicines == nil {
		p.Medicines = []Medicine{}
	}
	if p.LabTests == nil {
		p.LabTests = []string{}
	}
	if p.LabReports == nil {
		p.LabReports = []LabReport{}
	}
}
