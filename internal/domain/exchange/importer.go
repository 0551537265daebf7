package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nomad3/ficha-medica-universal/internal/domain/biomarker"
	"github.com/nomad3/ficha-medica-universal/internal/domain/patient"
	"github.com/nomad3/ficha-medica-universal/internal/domain/supplement"
	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

// Importer ingests FHIR Bundles from external systems. Entries are
// processed sequentially in two passes: patients first, then
// dependents, because a peer may list an Observation before the
// Patient it references. Each entry's persistence is its own local
// transaction; there is no cross-bundle atomicity.
type Importer struct {
	patients    *patient.Service
	biomarkers  *biomarker.Service
	supplements *supplement.Service
	log         zerolog.Logger
}

func NewImporter(patients *patient.Service, biomarkers *biomarker.Service, supplements *supplement.Service, log zerolog.Logger) *Importer {
	return &Importer{patients: patients, biomarkers: biomarkers, supplements: supplements, log: log}
}

// Import applies a bundle and returns the per-entry report. Only a
// malformed envelope is fatal; individual entry failures are recorded
// and the loop keeps going.
func (i *Importer) Import(ctx context.Context, b *fhir.Bundle) (*ImportReport, error) {
	if b == nil || b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("%w: resourceType is not Bundle", fhir.ErrMalformedBundle)
	}

	report := NewImportReport()

	// Pass 1: patients, so dependents can resolve their references.
	for _, entry := range b.Entry {
		if fhir.ResourceTypeOf(entry.Resource) == "Patient" {
			i.importPatient(ctx, entry.Resource, report)
		}
	}

	// Pass 2: dependents.
	for _, entry := range b.Entry {
		switch fhir.ResourceTypeOf(entry.Resource) {
		case "Observation":
			i.importObservation(ctx, entry.Resource, report)
		case "MedicationStatement":
			i.importMedicationStatement(ctx, entry.Resource, report)
		}
	}

	i.log.Info().
		Int("created", len(report.Created)).
		Int("skipped", len(report.Skipped)).
		Int("errors", len(report.Errors)).
		Msg("bundle import finished")

	return report, nil
}

func (i *Importer) importPatient(ctx context.Context, resource map[string]interface{}, report *ImportReport) {
	draft, err := patient.FromFHIR(resource)
	if errors.Is(err, fhir.ErrMissingIdentifier) {
		i.log.Debug().Msg("patient entry without rut identifier, skipping")
		report.skipped("Patient", fhir.GetString(resource, "id"), "missing rut identifier")
		return
	}
	if err != nil {
		report.failed("Patient", err.Error())
		return
	}

	// Idempotent upsert keyed by rut: an existing patient is a no-op
	// success and is never overwritten.
	existing, err := i.patients.GetByRUT(ctx, draft.RUT)
	if err == nil {
		report.skipped("Patient", existing.ID, "already exists")
		return
	}
	if !errors.Is(err, fhir.ErrPatientNotFound) {
		report.failed("Patient", err.Error())
		return
	}

	// Preserve the declared id when it is free; otherwise a fresh
	// identifier is generated at create.
	if draft.ID != "" {
		used, err := i.patients.IDInUse(ctx, draft.ID)
		if err != nil {
			report.failed("Patient", err.Error())
			return
		}
		if used {
			draft.ID = ""
		}
	}

	if err := i.patients.Create(ctx, draft); err != nil {
		i.log.Warn().Err(err).Str("rut", draft.RUT).Msg("patient create failed")
		report.failed("Patient", err.Error())
		return
	}
	report.created("Patient", draft.ID)
}

func (i *Importer) importObservation(ctx context.Context, resource map[string]interface{}, report *ImportReport) {
	m, err := biomarker.ObservationFromFHIR(resource)
	if err != nil {
		i.log.Warn().Err(err).Msg("observation entry rejected")
		report.failed("Observation", err.Error())
		return
	}

	p, err := i.patients.Resolve(ctx, m.PatientID)
	if err != nil {
		report.failed("Observation", fmt.Sprintf("patient %s: %v", m.PatientID, err))
		return
	}
	m.PatientID = p.ID

	panel, _, err := i.biomarkers.RecordMeasurement(ctx, m)
	if err != nil {
		report.failed("Observation", err.Error())
		return
	}
	if panel == nil {
		// Unknown biomarker: forward compatibility, no write.
		i.log.Debug().Str("code", m.WireCode).Msg("unknown biomarker code ignored")
		report.skipped("Observation", "", fmt.Sprintf("unknown code %q", m.WireCode))
		return
	}
	report.created("Observation", panel.ID)
}

func (i *Importer) importMedicationStatement(ctx context.Context, resource map[string]interface{}, report *ImportReport) {
	draft, err := supplement.FromFHIR(resource)
	if err != nil {
		i.log.Warn().Err(err).Msg("medication statement entry rejected")
		report.failed("MedicationStatement", err.Error())
		return
	}

	p, err := i.patients.Resolve(ctx, draft.PatientID)
	if err != nil {
		report.failed("MedicationStatement", fmt.Sprintf("patient %s: %v", draft.PatientID, err))
		return
	}
	draft.PatientID = p.ID

	// Supplement episodes are append-only facts; a fresh row id is
	// assigned regardless of the declared one.
	draft.ID = ""
	if err := i.supplements.Record(ctx, draft); err != nil {
		report.failed("MedicationStatement", err.Error())
		return
	}
	report.created("MedicationStatement", draft.ID)
}
