package exchange

import (
	"context"

	"github.com/nomad3/ficha-medica-universal/internal/domain/biomarker"
	"github.com/nomad3/ficha-medica-universal/internal/domain/patient"
	"github.com/nomad3/ficha-medica-universal/internal/domain/supplement"
	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

// Exporter assembles a patient's full record into a collection Bundle.
type Exporter struct {
	patients    *patient.Service
	biomarkers  *biomarker.Service
	supplements *supplement.Service
}

func NewExporter(patients *patient.Service, biomarkers *biomarker.Service, supplements *supplement.Service) *Exporter {
	return &Exporter{patients: patients, biomarkers: biomarkers, supplements: supplements}
}

// Export resolves the patient by token (primary id, legacy id, or rut)
// and emits the Patient entry first by construction, then one
// Observation per recorded biomarker per panel, then one
// MedicationStatement per supplement episode with a name. Entry
// fullUrls are URNs kept for traceability only.
func (e *Exporter) Export(ctx context.Context, token string) (*fhir.Bundle, error) {
	p, err := e.patients.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	entries := []fhir.BundleEntry{{
		FullURL:  fhir.URN(p.ID),
		Resource: p.ToFHIR(),
	}}

	panels, err := e.biomarkers.History(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, panel := range panels {
		for _, obs := range panel.Observations() {
			entries = append(entries, fhir.BundleEntry{
				FullURL:  fhir.URN(fhir.GetString(obs, "id")),
				Resource: obs,
			})
		}
	}

	supplements, err := e.supplements.History(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range supplements {
		if s.Name == "" {
			continue
		}
		entries = append(entries, fhir.BundleEntry{
			FullURL:  fhir.URN(s.ID),
			Resource: s.ToFHIR(),
		})
	}

	return fhir.NewCollectionBundle(entries), nil
}
