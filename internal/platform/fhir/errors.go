package fhir

import "errors"

// Error taxonomy for FHIR import/export. Bundle import records these
// per entry and keeps going; single-resource endpoints surface them
// directly to the caller.
var (
	// ErrMalformedBundle: the outer object is not a Bundle. Fatal to
	// the whole import call.
	ErrMalformedBundle = errors.New("malformed bundle")

	// ErrMissingIdentifier: a Patient resource carries no identifier
	// under the MINSAL rut system. Per-entry skip.
	ErrMissingIdentifier = errors.New("missing rut identifier")

	// ErrInvalidReference: a subject/medication reference does not
	// match Patient/{id}. Per-entry error.
	ErrInvalidReference = errors.New("invalid patient reference")

	// ErrPatientNotFound: no patient matches the token or reference.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrUnsupportedValueShape: an Observation uses a value
	// representation other than valueQuantity. Per-entry error.
	ErrUnsupportedValueShape = errors.New("unsupported observation value shape")

	// ErrDuplicatePatient: a patient with the same rut already exists.
	// Fatal on single-resource create; a no-op during bundle import.
	ErrDuplicatePatient = errors.New("duplicate patient")
)

// OutcomeForError maps a taxonomy error to an OperationOutcome with the
// matching FHIR issue type.
func OutcomeForError(err error) *OperationOutcome {
	switch {
	case errors.Is(err, ErrMalformedBundle):
		return NewOperationOutcome(IssueSeverityError, IssueTypeStructure, err.Error())
	case errors.Is(err, ErrMissingIdentifier):
		return NewOperationOutcome(IssueSeverityError, IssueTypeRequired, err.Error())
	case errors.Is(err, ErrInvalidReference):
		return NewOperationOutcome(IssueSeverityError, IssueTypeValue, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		return NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, err.Error())
	case errors.Is(err, ErrUnsupportedValueShape):
		return NewOperationOutcome(IssueSeverityError, IssueTypeNotSupported, err.Error())
	case errors.Is(err, ErrDuplicatePatient):
		return NewOperationOutcome(IssueSeverityError, IssueTypeDuplicate, err.Error())
	default:
		return ErrorOutcome(err.Error())
	}
}
