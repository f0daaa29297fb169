package labreport

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinic/pkg/pagination"
)

// SortKey names an allowed sort field.
type SortKey string

const (
	SortCreatedAt   SortKey = "createdAt"
	SortUpdatedAt   SortKey = "updatedAt"
	SortReportDate  SortKey = "reportDate"
	SortName        SortKey = "name"
	SortStatus      SortKey = "status"
	SortPatientName SortKey = "patientName"
)

var sortKeys = map[SortKey]bool{
	SortCreatedAt:   true,
	SortUpdatedAt:   true,
	SortReportDate:  true,
	SortName:        true,
	SortStatus:      true,
	SortPatientName: true,
}

// Request is a lab report query as it arrives, before normalization.
type Request struct {
	Page      string
	Limit     string
	Search    string
	Sort      string
	Order     string
	StartDate string
	EndDate   string
}

func RequestFromContext(c echo.Context) Request {
	return Request{
		Page:      c.QueryParam("page"),
		Limit:     c.QueryParam("limit"),
		Search:    c.QueryParam("search"),
		Sort:      c.QueryParam("sort"),
		Order:     c.QueryParam("order"),
		StartDate: c.QueryParam("startDate"),
		EndDate:   c.QueryParam("endDate"),
	}
}

// Plan is a normalized, store independent query.
type Plan struct {
	Page   pagination.Params
	Search string
	Sort   SortKey
	Desc   bool
	From   *time.Time
	To     *time.Time
}

// Normalize never fails: out of range or malformed values fall back to their
// defaults, and a malformed date leaves that side of the range open.
func Normalize(req Request) Plan {
	plan := Plan{
		Page:   pagination.Parse(req.Page, req.Limit),
		Search: strings.TrimSpace(req.Search),
		Sort:   SortCreatedAt,
		Desc:   true,
	}
	if k := SortKey(strings.TrimSpace(req.Sort)); sortKeys[k] {
		plan.Sort = k
	}
	if strings.EqualFold(strings.TrimSpace(req.Order), "asc") {
		plan.Desc = false
	}
	if day, ok := parseDay(req.StartDate); ok {
		plan.From = &day
	}
	if day, ok := parseDay(req.EndDate); ok {
		end := day.Add(24*time.Hour - time.Nanosecond)
		plan.To = &end
	}
	return plan
}

// Empty reports whether the date range cannot match anything.
func (p Plan) Empty() bool {
	return p.From != nil && p.To != nil && p.From.After(*p.To)
}

// parseDay returns midnight UTC of the calendar day s names. RFC 3339 input is
// reduced to its UTC date.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		ts = ts.UTC()
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
