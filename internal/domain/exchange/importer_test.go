package exchange

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

const anaBundle = `{
	"resourceType": "Bundle",
	"type": "collection",
	"entry": [
		{"resource": {
			"resourceType": "Patient",
			"id": "p1",
			"identifier": [{"system": "http://minsal.cl/rut", "value": "12.345.678-9"}],
			"name": [{"given": ["Ana"], "family": "Lopez"}],
			"gender": "female",
			"birthDate": "1985-03-12"
		}},
		{"resource": {
			"resourceType": "Observation",
			"status": "final",
			"code": {"coding": [{"system": "http://loinc.org", "code": "2093-3"}]},
			"subject": {"reference": "Patient/p1"},
			"effectiveDateTime": "2024-05-01",
			"valueQuantity": {"value": 190, "unit": "mg/dL"}
		}},
		{"resource": {
			"resourceType": "MedicationStatement",
			"status": "active",
			"medicationCodeableConcept": {"text": "Omega-3"},
			"subject": {"reference": "Patient/p1"},
			"dosage": [{"text": "1000mg daily"}],
			"effectivePeriod": {"start": "2024-04-01"}
		}}
	]
}`

func TestImport_AnaLopezBundle(t *testing.T) {
	e := newEnv()

	report, err := e.importer.Import(context.Background(), parseBundle(t, anaBundle))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if len(report.Created) != 3 {
		t.Fatalf("created = %d, want 3: %+v", len(report.Created), report)
	}
	if len(report.Skipped) != 0 || len(report.Errors) != 0 {
		t.Fatalf("unexpected skips or errors: %+v", report)
	}

	p, err := e.patients.Resolve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Resolve(p1): %v", err)
	}
	if p.GivenName != "Ana" || p.FamilyName != "Lopez" {
		t.Errorf("name = %s %s, want Ana Lopez", p.GivenName, p.FamilyName)
	}
	if p.RUT != "12.345.678-9" {
		t.Errorf("rut = %s", p.RUT)
	}

	panels, _ := e.biomarkers.History(context.Background(), p.ID)
	if len(panels) != 1 {
		t.Fatalf("panels = %d, want 1", len(panels))
	}
	if got := panels[0].Cholesterol; got == nil || *got != 190 {
		t.Errorf("cholesterol = %v, want 190", got)
	}

	supplements, _ := e.supplements.History(context.Background(), p.ID)
	if len(supplements) != 1 {
		t.Fatalf("supplements = %d, want 1", len(supplements))
	}
	if supplements[0].Name != "Omega-3" || supplements[0].Dosage != "1000mg daily" {
		t.Errorf("supplement = %+v", supplements[0])
	}
}

func TestImport_Idempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if _, err := e.importer.Import(ctx, parseBundle(t, anaBundle)); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	report, err := e.importer.Import(ctx, parseBundle(t, anaBundle))
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}

	// The patient is recognized by rut and skipped, not duplicated.
	found := false
	for _, s := range report.Skipped {
		if s.Type == "Patient" && s.Reason == "already exists" {
			found = true
		}
	}
	if !found {
		t.Errorf("second import did not skip the patient: %+v", report)
	}
	if len(e.patientRepo.byID) != 1 {
		t.Errorf("patient rows = %d, want 1", len(e.patientRepo.byID))
	}

	// The observation lands on the same panel row.
	if len(e.panelRepo.byKey) != 1 {
		t.Errorf("panel rows = %d, want 1", len(e.panelRepo.byKey))
	}
}

func TestImport_ObservationBeforePatient(t *testing.T) {
	e := newEnv()

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Observation",
				"code": {"coding": [{"code": "2571-8"}]},
				"subject": {"reference": "Patient/p9"},
				"effectiveDateTime": "2024-05-01",
				"valueQuantity": {"value": 150}
			}},
			{"resource": {
				"resourceType": "Patient",
				"id": "p9",
				"identifier": [{"system": "http://minsal.cl/rut", "value": "9.876.543-2"}]
			}}
		]
	}`

	report, err := e.importer.Import(context.Background(), parseBundle(t, raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("errors: %+v", report.Errors)
	}
	if len(report.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(report.Created))
	}

	panels, _ := e.biomarkers.History(context.Background(), "p9")
	if len(panels) != 1 || panels[0].Triglycerides == nil || *panels[0].Triglycerides != 150 {
		t.Errorf("panels = %+v", panels)
	}
}

func TestImport_MergeByDate(t *testing.T) {
	e := newEnv()

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Patient",
				"id": "p1",
				"identifier": [{"system": "http://minsal.cl/rut", "value": "12.345.678-9"}]
			}},
			{"resource": {
				"resourceType": "Observation",
				"code": {"coding": [{"code": "2093-3"}]},
				"subject": {"reference": "Patient/p1"},
				"effectiveDateTime": "2024-05-01",
				"valueQuantity": {"value": 190}
			}},
			{"resource": {
				"resourceType": "Observation",
				"code": {"coding": [{"code": "2571-8"}]},
				"subject": {"reference": "Patient/p1"},
				"effectiveDateTime": "2024-05-01",
				"valueQuantity": {"value": 150}
			}}
		]
	}`

	if _, err := e.importer.Import(context.Background(), parseBundle(t, raw)); err != nil {
		t.Fatalf("Import: %v", err)
	}

	panels, _ := e.biomarkers.History(context.Background(), "p1")
	if len(panels) != 1 {
		t.Fatalf("panel rows = %d, want 1", len(panels))
	}
	p := panels[0]
	if p.Cholesterol == nil || *p.Cholesterol != 190 {
		t.Errorf("cholesterol = %v", p.Cholesterol)
	}
	if p.Triglycerides == nil || *p.Triglycerides != 150 {
		t.Errorf("triglycerides = %v", p.Triglycerides)
	}
}

func TestImport_UnknownCodeSkipped(t *testing.T) {
	e := newEnv()

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Patient",
				"id": "p1",
				"identifier": [{"system": "http://minsal.cl/rut", "value": "12.345.678-9"}]
			}},
			{"resource": {
				"resourceType": "Observation",
				"code": {"coding": [{"code": "9999-9"}]},
				"subject": {"reference": "Patient/p1"},
				"effectiveDateTime": "2024-05-01",
				"valueQuantity": {"value": 42}
			}}
		]
	}`

	report, err := e.importer.Import(context.Background(), parseBundle(t, raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unknown code must not error: %+v", report.Errors)
	}
	if len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0].Reason, "9999-9") {
		t.Errorf("skipped = %+v", report.Skipped)
	}
	if len(e.panelRepo.byKey) != 0 {
		t.Errorf("panel rows = %d, want 0", len(e.panelRepo.byKey))
	}
}

func TestImport_UnresolvableReference(t *testing.T) {
	e := newEnv()

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Observation",
				"code": {"coding": [{"code": "2093-3"}]},
				"subject": {"reference": "Patient/p404"},
				"effectiveDateTime": "2024-05-01",
				"valueQuantity": {"value": 190}
			}}
		]
	}`

	report, err := e.importer.Import(context.Background(), parseBundle(t, raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %d, want 1: %+v", len(report.Errors), report)
	}
	if !strings.Contains(report.Errors[0].Reason, "p404") {
		t.Errorf("reason = %q", report.Errors[0].Reason)
	}
	if len(e.panelRepo.byKey) != 0 {
		t.Errorf("panel rows = %d, want 0", len(e.panelRepo.byKey))
	}
}

func TestImport_PatientWithoutRUT(t *testing.T) {
	e := newEnv()

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Patient",
				"id": "p1",
				"name": [{"given": ["Sin"], "family": "Rut"}]
			}}
		]
	}`

	report, err := e.importer.Import(context.Background(), parseBundle(t, raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != "missing rut identifier" {
		t.Errorf("skipped = %+v", report.Skipped)
	}
	if len(e.patientRepo.byID) != 0 {
		t.Errorf("patient rows = %d, want 0", len(e.patientRepo.byID))
	}
}

func TestImport_DeclaredIDAlreadyTaken(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	existing := newTestPatient("p1", "1.111.111-1")
	if err := e.patients.Create(ctx, existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"resource": {
				"resourceType": "Patient",
				"id": "p1",
				"identifier": [{"system": "http://minsal.cl/rut", "value": "2.222.222-2"}]
			}}
		]
	}`

	report, err := e.importer.Import(ctx, parseBundle(t, raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Created) != 1 {
		t.Fatalf("created = %+v", report)
	}
	if report.Created[0].ID == "p1" || report.Created[0].ID == "" {
		t.Errorf("declared id collision must get a fresh id, got %q", report.Created[0].ID)
	}
	if len(e.patientRepo.byID) != 2 {
		t.Errorf("patient rows = %d, want 2", len(e.patientRepo.byID))
	}
}

func TestImport_NotABundle(t *testing.T) {
	e := newEnv()

	_, err := e.importer.Import(context.Background(), &fhir.Bundle{ResourceType: "Patient"})
	if !errors.Is(err, fhir.ErrMalformedBundle) {
		t.Fatalf("err = %v, want ErrMalformedBundle", err)
	}

	_, err = e.importer.Import(context.Background(), nil)
	if !errors.Is(err, fhir.ErrMalformedBundle) {
		t.Fatalf("nil bundle: err = %v, want ErrMalformedBundle", err)
	}
}
