package biomarker

import "context"

// Repository implementations return (nil, nil) from FindByPatientAndDate
// when no panel exists for that date; the service turns that into a
// create instead of an update.
type Repository interface {
	Create(ctx context.Context, p *Panel) error
	Update(ctx context.Context, p *Panel) error
	FindByPatientAndDate(ctx context.Context, patientID, measuredOn string) (*Panel, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Panel, error)
}
