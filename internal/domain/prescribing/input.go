package prescribing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Timestamp accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date, which is
// read as midnight UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// LabReportInput is a lab report as submitted by a client. Omitted fields get
// defaults when the report is added.
type LabReportInput struct {
	Name           string          `json:"name"`
	Values         string          `json:"values"`
	ReportDate     *Timestamp      `json:"reportDate"`
	ReportImageURL *string         `json:"reportImageUrl"`
	Status         LabReportStatus `json:"status"`
}

type CreatePrescriptionRequest struct {
	DoctorID   uuid.UUID        `json:"doctorId"`
	PatientID  uuid.UUID        `json:"patientId"`
	Medicines  []Medicine       `json:"medicines"`
	Diagnosis  string           `json:"diagnosis"`
	Notes      string           `json:"notes"`
	LabTests   []string         `json:"labTests"`
	LabReports []LabReportInput `json:"labReports"`
}
