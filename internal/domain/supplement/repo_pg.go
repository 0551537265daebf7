package supplement

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, s *Supplement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO supplement (id, patient_id, name, dosage, start_date, end_date, duration, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.PatientID, s.Name, s.Dosage, s.StartDate, s.EndDate, s.Duration, s.Notes)
	if err != nil {
		return fmt.Errorf("insert supplement: %w", err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string) ([]*Supplement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, name, dosage, start_date, end_date, duration, notes, created_at
		FROM supplement
		WHERE patient_id = $1
		ORDER BY start_date, created_at`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list supplements: %w", err)
	}
	defer rows.Close()

	var supplements []*Supplement
	for rows.Next() {
		var s Supplement
		if err := rows.Scan(&s.ID, &s.PatientID, &s.Name, &s.Dosage,
			&s.StartDate, &s.EndDate, &s.Duration, &s.Notes, &s.CreatedAt); err != nil {
			return nil, err
		}
		supplements = append(supplements, &s)
	}
	return supplements, rows.Err()
}
