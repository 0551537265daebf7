package patient

import "context"

// Repository implementations return fhir.ErrPatientNotFound on lookup
// misses so callers can branch with errors.Is.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByLegacyID(ctx context.Context, legacyID int64) (*Patient, error)
	GetByRUT(ctx context.Context, rut string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
}
