package supplement

import "context"

type Repository interface {
	Create(ctx context.Context, s *Supplement) error
	ListByPatient(ctx context.Context, patientID string) ([]*Supplement, error)
}
