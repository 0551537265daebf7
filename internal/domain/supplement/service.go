package supplement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends a supplementation episode. There is no update path:
// corrections arrive as new records.
func (s *Service) Record(ctx context.Context, sup *Supplement) error {
	if sup.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if sup.Name == "" {
		return fmt.Errorf("supplement name is required")
	}
	if sup.ID == "" {
		sup.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, sup)
}

// History returns a patient's supplementation episodes in start-date
// order.
func (s *Service) History(ctx context.Context, patientID string) ([]*Supplement, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
