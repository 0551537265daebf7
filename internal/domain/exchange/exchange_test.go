package exchange

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nomad3/ficha-medica-universal/internal/domain/biomarker"
	"github.com/nomad3/ficha-medica-universal/internal/domain/patient"
	"github.com/nomad3/ficha-medica-universal/internal/domain/supplement"
	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

type patientRepo struct {
	byID map[string]*patient.Patient
}

func newPatientRepo() *patientRepo {
	return &patientRepo{byID: map[string]*patient.Patient{}}
}

func (r *patientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.byID[p.ID] = p
	return nil
}

func (r *patientRepo) GetByID(_ context.Context, id string) (*patient.Patient, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, fhir.ErrPatientNotFound
}

func (r *patientRepo) GetByLegacyID(_ context.Context, legacyID int64) (*patient.Patient, error) {
	for _, p := range r.byID {
		if p.LegacyID != nil && *p.LegacyID == legacyID {
			return p, nil
		}
	}
	return nil, fhir.ErrPatientNotFound
}

func (r *patientRepo) GetByRUT(_ context.Context, rut string) (*patient.Patient, error) {
	if rut != "" {
		for _, p := range r.byID {
			if p.RUT == rut {
				return p, nil
			}
		}
	}
	return nil, fhir.ErrPatientNotFound
}

func (r *patientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	all := []*patient.Patient{}
	for _, p := range r.byID {
		all = append(all, p)
	}
	return all, len(all), nil
}

func (r *patientRepo) Update(_ context.Context, p *patient.Patient) error {
	r.byID[p.ID] = p
	return nil
}

type panelRepo struct {
	byKey map[string]*biomarker.Panel
}

func newPanelRepo() *panelRepo {
	return &panelRepo{byKey: map[string]*biomarker.Panel{}}
}

func panelKey(patientID, date string) string { return patientID + "|" + date }

func (r *panelRepo) Create(_ context.Context, p *biomarker.Panel) error {
	r.byKey[panelKey(p.PatientID, p.MeasuredOn)] = p
	return nil
}

func (r *panelRepo) Update(_ context.Context, p *biomarker.Panel) error {
	r.byKey[panelKey(p.PatientID, p.MeasuredOn)] = p
	return nil
}

func (r *panelRepo) FindByPatientAndDate(_ context.Context, patientID, measuredOn string) (*biomarker.Panel, error) {
	return r.byKey[panelKey(patientID, measuredOn)], nil
}

func (r *panelRepo) ListByPatient(_ context.Context, patientID string) ([]*biomarker.Panel, error) {
	panels := []*biomarker.Panel{}
	for _, p := range r.byKey {
		if p.PatientID == patientID {
			panels = append(panels, p)
		}
	}
	return panels, nil
}

type supplementRepo struct {
	rows []*supplement.Supplement
}

func (r *supplementRepo) Create(_ context.Context, s *supplement.Supplement) error {
	r.rows = append(r.rows, s)
	return nil
}

func (r *supplementRepo) ListByPatient(_ context.Context, patientID string) ([]*supplement.Supplement, error) {
	out := []*supplement.Supplement{}
	for _, s := range r.rows {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

// env wires the real services over in-memory repositories so import
// and export tests exercise the full resolution and merge logic.
type env struct {
	patientRepo    *patientRepo
	panelRepo      *panelRepo
	supplementRepo *supplementRepo

	patients    *patient.Service
	biomarkers  *biomarker.Service
	supplements *supplement.Service

	importer *Importer
	exporter *Exporter
}

func newEnv() *env {
	e := &env{
		patientRepo:    newPatientRepo(),
		panelRepo:      newPanelRepo(),
		supplementRepo: &supplementRepo{},
	}
	e.patients = patient.NewService(e.patientRepo)
	e.biomarkers = biomarker.NewService(e.panelRepo)
	e.supplements = supplement.NewService(e.supplementRepo)
	e.importer = NewImporter(e.patients, e.biomarkers, e.supplements, zerolog.Nop())
	e.exporter = NewExporter(e.patients, e.biomarkers, e.supplements)
	return e
}

func newTestPatient(id, rut string) *patient.Patient {
	return &patient.Patient{
		ID:         id,
		RUT:        rut,
		GivenName:  "Ana",
		FamilyName: "Lopez",
		Sex:        "femenino",
		BirthDate:  "1985-03-12",
	}
}

// parseBundle goes through the wire codec so entry resources carry the
// same generic-map shapes an HTTP peer would produce.
func parseBundle(t *testing.T, raw string) *fhir.Bundle {
	t.Helper()
	b, err := fhir.ParseBundle([]byte(raw))
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	return b
}
