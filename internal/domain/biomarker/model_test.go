package biomarker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

func f(v float64) *float64 { return &v }

func TestParseCode(t *testing.T) {
	tests := []struct {
		wire string
		want Code
	}{
		{"2093-3", CodeCholesterol},
		{"2571-8", CodeTriglycerides},
		{"14635-7", CodeVitaminD},
		{"omega3_index", CodeOmega3Index},
		{"9999-9", CodeUnknown},
		{"", CodeUnknown},
	}
	for _, tt := range tests {
		if got := ParseCode(tt.wire); got != tt.want {
			t.Errorf("ParseCode(%q) = %v, want %v", tt.wire, got, tt.want)
		}
	}
}

func TestCodeTable(t *testing.T) {
	if CodeCholesterol.Unit() != "mg/dL" {
		t.Errorf("unexpected cholesterol unit: %s", CodeCholesterol.Unit())
	}
	if CodeVitaminD.Unit() != "ng/mL" {
		t.Errorf("unexpected vitamin D unit: %s", CodeVitaminD.Unit())
	}
	if CodeOmega3Index.Unit() != "%" {
		t.Errorf("unexpected omega-3 unit: %s", CodeOmega3Index.Unit())
	}
	if CodeTriglycerides.Wire() != "2571-8" {
		t.Errorf("unexpected triglycerides wire code: %s", CodeTriglycerides.Wire())
	}
}

func TestPanel_Observations(t *testing.T) {
	p := &Panel{
		ID:          "panel-1",
		PatientID:   "p1",
		MeasuredOn:  "2024-01-01",
		Cholesterol: f(190),
		VitaminD:    f(32.5),
	}

	obs := p.Observations()
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}

	first := obs[0]
	if first["resourceType"] != "Observation" {
		t.Errorf("expected resourceType Observation, got %v", first["resourceType"])
	}
	if first["status"] != "final" {
		t.Errorf("expected status final, got %v", first["status"])
	}
	if first["effectiveDateTime"] != "2024-01-01" {
		t.Errorf("unexpected effectiveDateTime: %v", first["effectiveDateTime"])
	}

	subject := first["subject"].(fhir.Reference)
	if subject.Reference != "Patient/p1" {
		t.Errorf("expected subject Patient/p1, got %s", subject.Reference)
	}

	code := first["code"].(fhir.CodeableConcept)
	if code.Coding[0].Code != "2093-3" {
		t.Errorf("expected code 2093-3 first, got %s", code.Coding[0].Code)
	}

	quantity := first["valueQuantity"].(fhir.Quantity)
	if quantity.Value != 190 || quantity.Unit != "mg/dL" || quantity.System != fhir.SystemUCUM {
		t.Errorf("unexpected valueQuantity: %+v", quantity)
	}

	second := obs[1]
	if second["code"].(fhir.CodeableConcept).Coding[0].Code != "14635-7" {
		t.Errorf("expected vitamin D second, got %v", second["code"])
	}
}

func TestPanel_Observations_SkipsZeroAndNil(t *testing.T) {
	p := &Panel{
		ID:            "panel-1",
		PatientID:     "p1",
		MeasuredOn:    "2024-01-01",
		Cholesterol:   f(0),
		Triglycerides: nil,
	}
	if obs := p.Observations(); len(obs) != 0 {
		t.Errorf("expected no observations for zero/nil values, got %d", len(obs))
	}
}

func TestPanel_SetValue(t *testing.T) {
	p := &Panel{}
	p.SetValue(CodeTriglycerides, 150)
	if p.Triglycerides == nil || *p.Triglycerides != 150 {
		t.Errorf("expected triglycerides 150, got %v", p.Triglycerides)
	}
	if p.Cholesterol != nil {
		t.Error("expected other columns untouched")
	}

	p.SetValue(CodeUnknown, 99)
	if p.Value(CodeUnknown) != nil {
		t.Error("expected SetValue(CodeUnknown) to be a no-op")
	}
}

func observationJSON(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestObservationFromFHIR(t *testing.T) {
	resource := observationJSON(t, `{
		"resourceType": "Observation",
		"status": "final",
		"code": {"coding": [{"code": "2093-3"}]},
		"subject": {"reference": "Patient/p1"},
		"effectiveDateTime": "2024-01-01",
		"valueQuantity": {"value": 190, "unit": "mg/dL"}
	}`)

	m, err := ObservationFromFHIR(resource)
	if err != nil {
		t.Fatalf("ObservationFromFHIR() error: %v", err)
	}
	if m.PatientID != "p1" {
		t.Errorf("expected patient p1, got %s", m.PatientID)
	}
	if m.Code != CodeCholesterol {
		t.Errorf("expected CodeCholesterol, got %v", m.Code)
	}
	if m.Date != "2024-01-01" {
		t.Errorf("expected date 2024-01-01, got %s", m.Date)
	}
	if m.Value != 190 {
		t.Errorf("expected value 190, got %v", m.Value)
	}
}

func TestObservationFromFHIR_UnknownCode(t *testing.T) {
	resource := observationJSON(t, `{
		"resourceType": "Observation",
		"code": {"coding": [{"code": "9999-9"}]},
		"subject": {"reference": "Patient/p1"},
		"effectiveDateTime": "2024-01-01",
		"valueQuantity": {"value": 10}
	}`)

	m, err := ObservationFromFHIR(resource)
	if err != nil {
		t.Fatalf("unknown code must parse without error, got %v", err)
	}
	if m.Code != CodeUnknown {
		t.Errorf("expected CodeUnknown, got %v", m.Code)
	}
	if m.WireCode != "9999-9" {
		t.Errorf("expected wire code preserved, got %s", m.WireCode)
	}
}

func TestObservationFromFHIR_BadReference(t *testing.T) {
	resource := observationJSON(t, `{
		"resourceType": "Observation",
		"code": {"coding": [{"code": "2093-3"}]},
		"subject": {"reference": "Organization/o1"},
		"valueQuantity": {"value": 10}
	}`)

	_, err := ObservationFromFHIR(resource)
	if !errors.Is(err, fhir.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestObservationFromFHIR_UnsupportedValueShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"valueString", `{
			"resourceType": "Observation",
			"code": {"coding": [{"code": "2093-3"}]},
			"subject": {"reference": "Patient/p1"},
			"valueString": "high"
		}`},
		{"no value", `{
			"resourceType": "Observation",
			"code": {"coding": [{"code": "2093-3"}]},
			"subject": {"reference": "Patient/p1"}
		}`},
		{"non-numeric quantity", `{
			"resourceType": "Observation",
			"code": {"coding": [{"code": "2093-3"}]},
			"subject": {"reference": "Patient/p1"},
			"valueQuantity": {"value": "190"}
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ObservationFromFHIR(observationJSON(t, tt.body))
			if !errors.Is(err, fhir.ErrUnsupportedValueShape) {
				t.Fatalf("expected ErrUnsupportedValueShape, got %v", err)
			}
		})
	}
}
