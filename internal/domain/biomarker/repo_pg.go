package biomarker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const panelCols = `id, patient_id, measured_on, cholesterol, triglycerides, vitamin_d, omega3_index,
	created_at, updated_at`

func scanPanel(row pgx.Row) (*Panel, error) {
	var p Panel
	err := row.Scan(&p.ID, &p.PatientID, &p.MeasuredOn,
		&p.Cholesterol, &p.Triglycerides, &p.VitaminD, &p.Omega3Index,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Panel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO biomarker_panel (id, patient_id, measured_on,
			cholesterol, triglycerides, vitamin_d, omega3_index)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PatientID, p.MeasuredOn,
		p.Cholesterol, p.Triglycerides, p.VitaminD, p.Omega3Index)
	if err != nil {
		return fmt.Errorf("insert panel: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, p *Panel) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE biomarker_panel SET cholesterol=$2, triglycerides=$3,
			vitamin_d=$4, omega3_index=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Cholesterol, p.Triglycerides, p.VitaminD, p.Omega3Index)
	if err != nil {
		return fmt.Errorf("update panel: %w", err)
	}
	return nil
}

func (r *repoPG) FindByPatientAndDate(ctx context.Context, patientID, measuredOn string) (*Panel, error) {
	p, err := scanPanel(r.pool.QueryRow(ctx, `
		SELECT `+panelCols+` FROM biomarker_panel
		WHERE patient_id = $1 AND measured_on = $2`, patientID, measuredOn))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find panel: %w", err)
	}
	return p, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string) ([]*Panel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+panelCols+` FROM biomarker_panel
		WHERE patient_id = $1
		ORDER BY measured_on`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	defer rows.Close()

	var panels []*Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	return panels, rows.Err()
}
