package fhir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Identifier and coding systems mandated by the national
// interoperability profile. These are wire constants: changing them
// breaks every peer system.
const (
	SystemRUT            = "http://minsal.cl/rut"
	SystemSupplementCode = "http://suplementos.cl/codigo"
	SystemUCUM           = "http://unitsofmeasure.org"
)

// Bundle represents a FHIR Bundle resource. Resources are kept as
// generic maps so one envelope type serves both export assembly and
// import parsing.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string                 `json:"fullUrl,omitempty"`
	Resource map[string]interface{} `json:"resource,omitempty"`
}

// NewCollectionBundle creates a collection Bundle from ordered entries.
func NewCollectionBundle(entries []BundleEntry) *Bundle {
	now := time.Now().UTC()
	total := len(entries)
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
}

// ParseBundle parses a raw JSON body into a Bundle. It fails with
// ErrMalformedBundle when the outer object is not a Bundle; entry
// resources are left as generic maps for the caller to interpret.
func ParseBundle(body []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("%w: got resourceType %q", ErrMalformedBundle, b.ResourceType)
	}
	return &b, nil
}

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// URN builds a urn:uuid fullUrl for a bundle entry. It is emitted for
// traceability only and is never dereferenced.
func URN(id string) string {
	return "urn:uuid:" + id
}

var patientRefPattern = regexp.MustCompile(`^Patient/(.+)$`)

// ParsePatientReference extracts the patient identifier from a
// "Patient/{id}" reference. Any other shape fails with
// ErrInvalidReference.
func ParsePatientReference(ref string) (string, error) {
	m := patientRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return m[1], nil
}

// ResourceTypeOf returns the resourceType of a generic resource map.
func ResourceTypeOf(resource map[string]interface{}) string {
	rt, _ := resource["resourceType"].(string)
	return rt
}

// GetString reads a string field from a generic resource map.
func GetString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// GetMap reads a nested object from a generic resource map.
func GetMap(m map[string]interface{}, key string) map[string]interface{} {
	child, _ := m[key].(map[string]interface{})
	return child
}

// GetSlice reads an array field from a generic resource map.
func GetSlice(m map[string]interface{}, key string) []interface{} {
	s, _ := m[key].([]interface{})
	return s
}

// FirstMap returns the first object element of an array field, or nil.
func FirstMap(m map[string]interface{}, key string) map[string]interface{} {
	for _, v := range GetSlice(m, key) {
		if child, ok := v.(map[string]interface{}); ok {
			return child
		}
	}
	return nil
}
