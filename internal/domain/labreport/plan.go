package labreport

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
)

// Row is one flattened lab report with its join and its position in the
// natural order (parent createdAt, parent id, embedded index).
type Row struct {
	PrescriptionID        uuid.UUID
	PrescriptionCreatedAt time.Time
	Index                 int
	Report                prescribing.LabReport
	Patient               *identity.Patient
}

func (r *Row) View() View {
	return newView(r.PrescriptionID, &r.Report, r.Patient)
}

// Flatten turns sources into rows in embedded order.
func Flatten(sources []Source) []Row {
	var rows []Row
	for _, s := range sources {
		for i, report := range s.Prescription.LabReports {
			rows = append(rows, Row{
				PrescriptionID:        s.Prescription.ID,
				PrescriptionCreatedAt: s.Prescription.CreatedAt,
				Index:                 i,
				Report:                report,
				Patient:               s.Patient,
			})
		}
	}
	return rows
}

// Matches applies the search term and the date range.
func (p Plan) Matches(r *Row) bool {
	if p.From != nil && r.Report.ReportDate.Before(*p.From) {
		return false
	}
	if p.To != nil && r.Report.ReportDate.After(*p.To) {
		return false
	}
	if p.Search == "" {
		return true
	}
	term := strings.ToLower(p.Search)
	if strings.Contains(strings.ToLower(r.Report.Name), term) {
		return true
	}
	return r.Patient != nil && r.Patient.Matches(term)
}

// compareKey orders two rows by the plan's sort key only. A missing patient
// sorts as an empty name.
func (p Plan) compareKey(a, b *Row) int {
	switch p.Sort {
	case SortUpdatedAt:
		return a.Report.UpdatedAt.Compare(b.Report.UpdatedAt)
	case SortReportDate:
		return a.Report.ReportDate.Compare(b.Report.ReportDate)
	case SortName:
		return strings.Compare(a.Report.Name, b.Report.Name)
	case SortStatus:
		return strings.Compare(string(a.Report.Status), string(b.Report.Status))
	case SortPatientName:
		return strings.Compare(patientName(a), patientName(b))
	default:
		return a.Report.CreatedAt.Compare(b.Report.CreatedAt)
	}
}

// Less orders rows by the sort key in the requested direction. Ties keep the
// natural order in both directions.
func (p Plan) Less(a, b *Row) bool {
	if c := p.compareKey(a, b); c != 0 {
		if p.Desc {
			return c > 0
		}
		return c < 0
	}
	if c := a.PrescriptionCreatedAt.Compare(b.PrescriptionCreatedAt); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(a.PrescriptionID[:], b.PrescriptionID[:]); c != 0 {
		return c < 0
	}
	return a.Index < b.Index
}

// Evaluate filters, counts, sorts and pages rows in one pass over the input.
func (p Plan) Evaluate(rows []Row) ([]Row, int) {
	matched := make([]Row, 0, len(rows))
	for i := range rows {
		if p.Matches(&rows[i]) {
			matched = append(matched, rows[i])
		}
	}
	total := len(matched)

	sort.SliceStable(matched, func(i, j int) bool { return p.Less(&matched[i], &matched[j]) })

	offset := p.Page.Offset()
	if offset >= total {
		return []Row{}, total
	}
	end := offset + p.Page.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total
}

func patientName(r *Row) string {
	if r.Patient == nil {
		return ""
	}
	return r.Patient.Name
}
