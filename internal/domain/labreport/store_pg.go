package labreport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/db"
)

type pgStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// pgSortExpr maps sort keys to expressions over the flattened row. Text keys
// compare bytewise so every backend orders them the same way.
var pgSortExpr = map[SortKey]string{
	SortCreatedAt:   `(r.doc->>'createdAt')::timestamptz`,
	SortUpdatedAt:   `(r.doc->>'updatedAt')::timestamptz`,
	SortReportDate:  `(r.doc->>'reportDate')::timestamptz`,
	SortName:        `COALESCE(r.doc->>'name', '') COLLATE "C"`,
	SortStatus:      `COALESCE(r.doc->>'status', '') COLLATE "C"`,
	SortPatientName: `COALESCE(p.name, '') COLLATE "C"`,
}

const pgFlattenFrom = `prescription rx
	CROSS JOIN LATERAL jsonb_array_elements(rx.lab_reports) WITH ORDINALITY AS r(doc, ord)
	LEFT JOIN patient p ON p.id = rx.patient_id`

const pgFlattenCols = `rx.id AS prescription_id, rx.created_at AS prescription_created_at, r.ord - 1 AS idx, r.doc AS report,
	p.id AS patient_id, p.card_id, p.name AS patient_name, p.email, p.phone, p.gender, p.age, p.date_of_birth,
	p.created_at AS patient_created_at, p.updated_at AS patient_updated_at`

// buildSearchSQL renders the plan as one statement: the filtered CTE feeds
// both the count and the page, and the count row is returned even when the
// page is empty.
func buildSearchSQL(plan Plan) (string, []interface{}) {
	sortExpr, ok := pgSortExpr[plan.Sort]
	if !ok {
		sortExpr = pgSortExpr[SortCreatedAt]
	}

	q := db.NewQuery(pgFlattenFrom, pgFlattenCols+", "+sortExpr+" AS sort_key")
	q.WhereContainsAny(plan.Search, "p.name", "p.phone", "p.email", "r.doc->>'name'")
	q.WhereBetween(`(r.doc->>'reportDate')::timestamptz`, plan.From, plan.To)

	n := len(q.Args())
	sql := fmt.Sprintf(`WITH filtered AS (%s),
page AS (SELECT * FROM filtered ORDER BY %s LIMIT $%d OFFSET $%d)
SELECT c.total, page.prescription_id::text, page.prescription_created_at, page.idx, page.report,
	page.patient_id::text, page.card_id, page.patient_name, page.email, page.phone, page.gender, page.age,
	page.date_of_birth, page.patient_created_at, page.patient_updated_at
FROM (SELECT COUNT(*) AS total FROM filtered) c
LEFT JOIN page ON TRUE
ORDER BY %s`, q.FilteredSQL(), pgOrder("", plan.Desc), n+1, n+2, pgOrder("page.", plan.Desc))

	return sql, q.DataArgs(plan.Page.Limit, plan.Page.Offset())
}

// pgOrder sorts by sort_key in the requested direction with a missing value
// lowest, then by natural order.
func pgOrder(prefix string, desc bool) string {
	dir, nulls := "ASC", "NULLS FIRST"
	if desc {
		dir, nulls = "DESC", "NULLS LAST"
	}
	return fmt.Sprintf("%[1]ssort_key %[2]s %[3]s, %[1]sprescription_created_at ASC, %[1]sprescription_id ASC, %[1]sidx ASC",
		prefix, dir, nulls)
}

func (s *pgStore) Search(ctx context.Context, plan Plan) ([]Row, int, error) {
	sql, args := buildSearchSQL(plan)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify("search lab reports", err)
	}
	defer rows.Close()

	var (
		total int
		out   = []Row{}
	)
	for rows.Next() {
		var (
			rxID, patientID            *string
			rxCreatedAt                *time.Time
			idx                        *int64
			report                     *prescribing.LabReport
			cardID                     *int64
			name, email, phone, gender *string
			age                        *int
			dob, pCreated, pUpdated    *time.Time
		)
		if err := rows.Scan(&total, &rxID, &rxCreatedAt, &idx, &report,
			&patientID, &cardID, &name, &email, &phone, &gender, &age,
			&dob, &pCreated, &pUpdated); err != nil {
			return nil, 0, db.Classify("scan lab report", err)
		}
		if rxID == nil {
			// Count row of an empty page.
			continue
		}

		row := Row{Index: int(deref(idx)), Report: *report}
		row.PrescriptionID, _ = uuid.Parse(*rxID)
		if rxCreatedAt != nil {
			row.PrescriptionCreatedAt = rxCreatedAt.UTC()
		}
		if patientID != nil {
			pid, _ := uuid.Parse(*patientID)
			row.Patient = &identity.Patient{
				ID:          pid,
				CardID:      deref(cardID),
				Name:        deref(name),
				Email:       deref(email),
				Phone:       deref(phone),
				Gender:      deref(gender),
				Age:         age,
				DateOfBirth: dob,
				CreatedAt:   deref(pCreated),
				UpdatedAt:   deref(pUpdated),
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify("search lab reports", err)
	}
	return out, total, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
