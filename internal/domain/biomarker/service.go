package biomarker

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

// RecordMeasurement applies the merge-by-date upsert: a measurement
// lands in the existing panel row for its (patient, date) if one
// exists, overwriting only its own column; otherwise a new row is
// created with that one column set. Health-record imports typically
// arrive as several single-fact Observations that together describe
// one panel drawn on one date, so merging is the importer's contract,
// not a schema accident.
//
// Unknown codes are accepted and ignored: the returned panel is nil
// and no write happens. Returns the affected panel and whether a new
// row was created.
func (s *Service) RecordMeasurement(ctx context.Context, m *Measurement) (*Panel, bool, error) {
	if m.Code == CodeUnknown {
		return nil, false, nil
	}
	if m.PatientID == "" {
		return nil, false, fmt.Errorf("measurement without patient")
	}
	if m.Date == "" {
		return nil, false, fmt.Errorf("measurement without date")
	}

	existing, err := s.repo.FindByPatientAndDate(ctx, m.PatientID, m.Date)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		existing.SetValue(m.Code, m.Value)
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	panel := &Panel{
		ID:         uuid.NewString(),
		PatientID:  m.PatientID,
		MeasuredOn: m.Date,
	}
	panel.SetValue(m.Code, m.Value)
	if err := s.repo.Create(ctx, panel); err != nil {
		return nil, false, err
	}
	return panel, true, nil
}

// History returns a patient's panels in measurement-date order.
func (s *Service) History(ctx context.Context, patientID string) ([]*Panel, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
