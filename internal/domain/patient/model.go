package patient

import (
	"strings"
	"time"

	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

// Patient maps to the patient table. The primary identifier is an
// opaque string: newly created records get a UUID, but identifiers
// declared by an importing peer are preserved as-is. LegacyID carries
// the integer key of records created before the identifier migration.
type Patient struct {
	ID               string    `db:"id" json:"id"`
	LegacyID         *int64    `db:"legacy_id" json:"legacy_id,omitempty"`
	RUT              string    `db:"rut" json:"rut"`
	GivenName        string    `db:"given_name" json:"given_name"`
	FamilyName       string    `db:"family_name" json:"family_name"`
	Sex              string    `db:"sex" json:"sex"`
	BirthDate        string    `db:"birth_date" json:"birth_date"`
	Address          string    `db:"address" json:"address"`
	Phone            string    `db:"phone" json:"phone"`
	Email            *string   `db:"email" json:"email,omitempty"`
	EmergencyContact string    `db:"emergency_contact" json:"emergency_contact"`
	Consent          bool      `db:"consent" json:"consent"`
	BloodType        string    `db:"blood_type" json:"blood_type"`
	Allergies        string    `db:"allergies" json:"allergies"`
	ActivityLevel    string    `db:"activity_level" json:"activity_level"`
	Diet             string    `db:"diet" json:"diet"`
	PrimaryCondition string    `db:"primary_condition" json:"primary_condition"`
	SupplementGoal   string    `db:"supplement_goal" json:"supplement_goal"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ToFHIR renders the patient as a FHIR Patient resource. The mapping
// is total: absent fields are omitted, never null. Sex is stored as
// domain text (masculino/femenino); the FHIR gender binding is binary
// and cannot represent unknown/other, a known limitation.
func (p *Patient) ToFHIR() map[string]interface{} {
	gender := "female"
	if strings.EqualFold(p.Sex, "masculino") {
		gender = "male"
	}

	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID,
		"gender":       gender,
		"name": []fhir.HumanName{{
			Given:  []string{p.GivenName},
			Family: p.FamilyName,
		}},
	}

	if p.RUT != "" {
		result["identifier"] = []fhir.Identifier{{
			System: fhir.SystemRUT,
			Value:  p.RUT,
		}}
	}
	if p.BirthDate != "" {
		result["birthDate"] = p.BirthDate
	}

	telecom := []fhir.ContactPoint{}
	if p.Phone != "" {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: p.Phone})
	}
	if p.Email != nil && *p.Email != "" {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *p.Email})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if p.Address != "" {
		result["address"] = []fhir.Address{{Text: p.Address}}
	}
	if p.EmergencyContact != "" {
		result["contact"] = []fhir.PatientContact{{
			Name: &fhir.HumanName{Text: p.EmergencyContact},
		}}
	}

	return result
}

// FromFHIR builds a patient draft from a generic Patient resource. It
// fails with ErrMissingIdentifier when no identifier entry carries the
// MINSAL rut system; name parts default to empty strings. Domain-only
// fields (blood type, allergies, diet and so on) stay at their zero
// values since FHIR Patient carries none of them.
func FromFHIR(resource map[string]interface{}) (*Patient, error) {
	rut := ""
	for _, v := range fhir.GetSlice(resource, "identifier") {
		ident, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if fhir.GetString(ident, "system") == fhir.SystemRUT {
			rut = fhir.GetString(ident, "value")
			break
		}
	}
	if rut == "" {
		return nil, fhir.ErrMissingIdentifier
	}

	p := &Patient{
		ID:        fhir.GetString(resource, "id"),
		RUT:       rut,
		BirthDate: fhir.GetString(resource, "birthDate"),
	}

	if fhir.GetString(resource, "gender") == "male" {
		p.Sex = "masculino"
	} else {
		p.Sex = "femenino"
	}

	if name := fhir.FirstMap(resource, "name"); name != nil {
		p.FamilyName = fhir.GetString(name, "family")
		for _, g := range fhir.GetSlice(name, "given") {
			if s, ok := g.(string); ok {
				p.GivenName = s
				break
			}
		}
	}

	for _, v := range fhir.GetSlice(resource, "telecom") {
		tel, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		value := fhir.GetString(tel, "value")
		switch fhir.GetString(tel, "system") {
		case "phone":
			p.Phone = value
		case "email":
			if value != "" {
				email := value
				p.Email = &email
			}
		}
	}

	if addr := fhir.FirstMap(resource, "address"); addr != nil {
		p.Address = fhir.GetString(addr, "text")
	}
	if contact := fhir.FirstMap(resource, "contact"); contact != nil {
		if name := fhir.GetMap(contact, "name"); name != nil {
			p.EmergencyContact = fhir.GetString(name, "text")
		}
	}

	return p, nil
}
