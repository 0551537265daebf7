package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, legacy_id, rut, given_name, family_name, sex, birth_date,
	address, phone, email, emergency_contact, consent,
	blood_type, allergies, activity_level, diet, primary_condition, supplement_goal,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.LegacyID, &p.RUT, &p.GivenName, &p.FamilyName, &p.Sex, &p.BirthDate,
		&p.Address, &p.Phone, &p.Email, &p.EmergencyContact, &p.Consent,
		&p.BloodType, &p.Allergies, &p.ActivityLevel, &p.Diet, &p.PrimaryCondition, &p.SupplementGoal,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fhir.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (id, legacy_id, rut, given_name, family_name, sex, birth_date,
			address, phone, email, emergency_contact, consent,
			blood_type, allergies, activity_level, diet, primary_condition, supplement_goal)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.LegacyID, nullIfEmpty(p.RUT), p.GivenName, p.FamilyName, p.Sex, p.BirthDate,
		p.Address, p.Phone, p.Email, p.EmergencyContact, p.Consent,
		p.BloodType, p.Allergies, p.ActivityLevel, p.Diet, p.PrimaryCondition, p.SupplementGoal)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByLegacyID(ctx context.Context, legacyID int64) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE legacy_id = $1`, legacyID))
}

func (r *repoPG) GetByRUT(ctx context.Context, rut string) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE rut = $1`, rut))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+patientCols+` FROM patient
		ORDER BY family_name, given_name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patient SET given_name=$2, family_name=$3, sex=$4, birth_date=$5,
			address=$6, phone=$7, email=$8, emergency_contact=$9, consent=$10,
			blood_type=$11, allergies=$12, activity_level=$13, diet=$14,
			primary_condition=$15, supplement_goal=$16, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.GivenName, p.FamilyName, p.Sex, p.BirthDate,
		p.Address, p.Phone, p.Email, p.EmergencyContact, p.Consent,
		p.BloodType, p.Allergies, p.ActivityLevel, p.Diet,
		p.PrimaryCondition, p.SupplementGoal)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// nullIfEmpty keeps the rut column NULL for partially-imported records
// so the unique constraint only applies when a rut is present.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
