package prescribing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG stores prescriptions as rows with medicines and lab_reports held
// in JSONB columns.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const prescriptionCols = `id, doctor_id, patient_id, medicines, diagnosis, notes, lab_tests, lab_reports, version, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rx *Prescription) error {
	rx.normalize()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescription (`+prescriptionCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rx.ID, rx.DoctorID, rx.PatientID, rx.Medicines, rx.Diagnosis, rx.Notes,
		rx.LabTests, rx.LabReports, rx.Version, rx.CreatedAt, rx.UpdatedAt,
	)
	return db.Classify("insert prescription", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	rx, err := scanPrescription(r.pool.QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify("get prescription", err)
	}
	return rx, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	q := db.NewQuery("prescription", prescriptionCols)
	q.Where("patient_id = " + q.Arg(patientID))
	q.OrderBy("created_at DESC, id ASC")

	var total int
	if err := r.pool.QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, db.Classify("count prescriptions", err)
	}

	rows, err := r.pool.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.Classify("list prescriptions", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		rx, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, db.Classify("scan prescription", err)
		}
		out = append(out, rx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify("list prescriptions", err)
	}
	return out, total, nil
}

func (r *repoPG) SaveLabReports(ctx context.Context, rx *Prescription) error {
	rx.normalize()
	now := time.Now().UTC()

	var version int
	err := r.pool.QueryRow(ctx, `
		UPDATE prescription
		SET lab_reports = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
		RETURNING version`,
		rx.LabReports, now, rx.ID, rx.Version,
	).Scan(&version)
	if err == nil {
		rx.Version = version
		rx.UpdatedAt = now
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.Classify("save lab reports", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM prescription WHERE id = $1)`, rx.ID).Scan(&exists); err != nil {
		return db.Classify("save lab reports", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return fmt.Errorf("save lab reports: version %d is stale: %w", rx.Version, storage.ErrConflict)
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var rx Prescription
	err := row.Scan(
		&rx.ID, &rx.DoctorID, &rx.PatientID, &rx.Medicines, &rx.Diagnosis, &rx.Notes,
		&rx.LabTests, &rx.LabReports, &rx.Version, &rx.CreatedAt, &rx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rx.normalize()
	return &rx, nil
}
