package biomarker

import (
	"fmt"
	"time"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

// Panel maps to the biomarker_panel table: one row per patient and
// measurement date, one nullable column per biomarker. A nil value
// means "not recorded", never "measured as zero". The unique key on
// (patient_id, measured_on) backs the merge-by-date import rule.
type Panel struct {
	ID            string    `db:"id" json:"id"`
	PatientID     string    `db:"patient_id" json:"patient_id"`
	MeasuredOn    string    `db:"measured_on" json:"measured_on"`
	Cholesterol   *float64  `db:"cholesterol" json:"cholesterol,omitempty"`
	Triglycerides *float64  `db:"triglycerides" json:"triglycerides,omitempty"`
	VitaminD      *float64  `db:"vitamin_d" json:"vitamin_d,omitempty"`
	Omega3Index   *float64  `db:"omega3_index" json:"omega3_index,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Value returns the stored value for a code, or nil.
func (p *Panel) Value(c Code) *float64 {
	switch c {
	case CodeCholesterol:
		return p.Cholesterol
	case CodeTriglycerides:
		return p.Triglycerides
	case CodeVitaminD:
		return p.VitaminD
	case CodeOmega3Index:
		return p.Omega3Index
	default:
		return nil
	}
}

// SetValue overwrites the field matching the code, leaving the other
// columns untouched. Setting CodeUnknown is a no-op.
func (p *Panel) SetValue(c Code, v float64) {
	switch c {
	case CodeCholesterol:
		p.Cholesterol = &v
	case CodeTriglycerides:
		p.Triglycerides = &v
	case CodeVitaminD:
		p.VitaminD = &v
	case CodeOmega3Index:
		p.Omega3Index = &v
	}
}

// Observations renders the panel as FHIR Observation resources, one
// per recorded value, in fixed column order.
func (p *Panel) Observations() []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range Codes {
		if obs := p.ObservationFor(c); obs != nil {
			out = append(out, obs)
		}
	}
	return out
}

// ObservationFor renders one biomarker as an Observation resource, or
// nil when its value is not recorded.
func (p *Panel) ObservationFor(c Code) map[string]interface{} {
	v := p.Value(c)
	if v == nil || *v == 0 {
		return nil
	}
	return p.observation(c, *v)
}

func (p *Panel) observation(c Code, value float64) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Observation",
		"id":           fmt.Sprintf("%s-%s", p.ID, c.Wire()),
		"status":       "final",
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{Code: c.Wire(), Display: c.Display()}},
			Text:   c.Display(),
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", p.PatientID),
		},
		"effectiveDateTime": p.MeasuredOn,
		"valueQuantity": fhir.Quantity{
			Value:  value,
			Unit:   c.Unit(),
			System: fhir.SystemUCUM,
			Code:   c.Unit(),
		},
	}
}

// Measurement is one biomarker fact extracted from an Observation
// resource, ready for the merge-by-date upsert.
type Measurement struct {
	PatientID string
	Date      string
	Code      Code
	WireCode  string
	Value     float64
}

// ObservationFromFHIR extracts a measurement from a generic
// Observation resource. The subject reference must match Patient/{id}
// and the value must be a valueQuantity; any other value shape fails
// with ErrUnsupportedValueShape. Unrecognized codes parse successfully
// as CodeUnknown so the caller can skip them without erroring.
func ObservationFromFHIR(resource map[string]interface{}) (*Measurement, error) {
	subject := fhir.GetMap(resource, "subject")
	patientID, err := fhir.ParsePatientReference(fhir.GetString(subject, "reference"))
	if err != nil {
		return nil, err
	}

	wire := ""
	if code := fhir.GetMap(resource, "code"); code != nil {
		if coding := fhir.FirstMap(code, "coding"); coding != nil {
			wire = fhir.GetString(coding, "code")
		}
	}

	quantity := fhir.GetMap(resource, "valueQuantity")
	if quantity == nil {
		return nil, fmt.Errorf("%w: observation without valueQuantity", fhir.ErrUnsupportedValueShape)
	}
	value, ok := quantity["value"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: valueQuantity.value is not numeric", fhir.ErrUnsupportedValueShape)
	}

	return &Measurement{
		PatientID: patientID,
		Date:      fhir.GetString(resource, "effectiveDateTime"),
		Code:      ParseCode(wire),
		WireCode:  wire,
		Value:     value,
	}, nil
}
