package supplement

import (
	"time"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

// Supplement maps to the supplement table. Records are append-only
// facts about a supplementation episode; the import path never merges
// or corrects them in place.
type Supplement struct {
	ID        string    `db:"id" json:"id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Name      string    `db:"name" json:"name"`
	Dosage    string    `db:"dosage" json:"dosage"`
	StartDate string    `db:"start_date" json:"start_date"`
	EndDate   string    `db:"end_date" json:"end_date,omitempty"`
	Duration  string    `db:"duration" json:"duration,omitempty"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ToFHIR renders the record as a FHIR MedicationStatement. A closed
// episode (end date present) reports status completed, an open one
// active.
func (s *Supplement) ToFHIR() map[string]interface{} {
	status := "active"
	if s.EndDate != "" {
		status = "completed"
	}

	result := map[string]interface{}{
		"resourceType": "MedicationStatement",
		"id":           s.ID,
		"status":       status,
		"medicationCodeableConcept": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  fhir.SystemSupplementCode,
				Code:    s.Name,
				Display: s.Name,
			}},
			Text: s.Name,
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", s.PatientID),
		},
	}

	if s.Dosage != "" {
		result["dosage"] = []map[string]interface{}{{"text": s.Dosage}}
	}
	if s.StartDate != "" || s.EndDate != "" {
		result["effectivePeriod"] = fhir.Period{Start: s.StartDate, End: s.EndDate}
	}
	if s.Notes != "" {
		result["note"] = []fhir.Annotation{{Text: s.Notes}}
	}

	return result
}

// FromFHIR builds a supplement draft from a generic MedicationStatement
// resource. A missing dosage yields an empty string rather than an
// error; the subject reference must match Patient/{id}.
func FromFHIR(resource map[string]interface{}) (*Supplement, error) {
	subject := fhir.GetMap(resource, "subject")
	patientID, err := fhir.ParsePatientReference(fhir.GetString(subject, "reference"))
	if err != nil {
		return nil, err
	}

	s := &Supplement{
		ID:        fhir.GetString(resource, "id"),
		PatientID: patientID,
	}

	if med := fhir.GetMap(resource, "medicationCodeableConcept"); med != nil {
		s.Name = fhir.GetString(med, "text")
		if s.Name == "" {
			if coding := fhir.FirstMap(med, "coding"); coding != nil {
				s.Name = fhir.GetString(coding, "display")
			}
		}
	}

	if dosage := fhir.FirstMap(resource, "dosage"); dosage != nil {
		s.Dosage = fhir.GetString(dosage, "text")
	}
	if period := fhir.GetMap(resource, "effectivePeriod"); period != nil {
		s.StartDate = fhir.GetString(period, "start")
		s.EndDate = fhir.GetString(period, "end")
	}
	if note := fhir.FirstMap(resource, "note"); note != nil {
		s.Notes = fhir.GetString(note, "text")
	}

	return s, nil
}
