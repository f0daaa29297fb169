package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, card_id, name, email, phone, gender, age, date_of_birth, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (`+patientCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CardID, p.Name, p.Email, p.Phone, p.Gender, p.Age, p.DateOfBirth, p.CreatedAt, p.UpdatedAt,
	)
	return db.Classify("insert patient", err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify("get patient", err)
	}
	return p, nil
}

func (r *patientRepoPG) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	q := db.NewQuery("patient", patientCols)
	q.WhereContainsAny(term, "name", "phone", "email")
	q.OrderBy("card_id ASC")

	var total int
	if err := r.pool.QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, db.Classify("count patients", err)
	}

	rows, err := r.pool.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.Classify("list patients", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, db.Classify("scan patient", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify("list patients", err)
	}
	return patients, total, nil
}

func (r *patientRepoPG) MaxCardID(ctx context.Context) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(card_id), 0) FROM patient`).Scan(&max)
	return max, db.Classify("max card id", err)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.CardID, &p.Name, &p.Email, &p.Phone, &p.Gender, &p.Age, &p.DateOfBirth,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
