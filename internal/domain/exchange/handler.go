package exchange

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nomad3/ficha-medica-universal/internal/domain/biomarker"
	"github.com/nomad3/ficha-medica-universal/internal/domain/patient"
	"github.com/nomad3/ficha-medica-universal/internal/domain/supplement"
	"github.com/nomad3/ficha-medica-universal/internal/platform/auth"
	"github.com/nomad3/ficha-medica-universal/internal/platform/fhir"
)

type Handler struct {
	exporter    *Exporter
	importer    *Importer
	patients    *patient.Service
	biomarkers  *biomarker.Service
	supplements *supplement.Service
}

func NewHandler(exporter *Exporter, importer *Importer,
	patients *patient.Service, biomarkers *biomarker.Service, supplements *supplement.Service) *Handler {
	return &Handler{
		exporter:    exporter,
		importer:    importer,
		patients:    patients,
		biomarkers:  biomarkers,
		supplements: supplements,
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	readGroup := fhirGroup.Group("", auth.RequireRole("admin", "clinician", "nutritionist", "viewer"))
	readGroup.GET("/ficha/:token", h.ExportFicha)
	readGroup.GET("/Patient/:token", h.GetPatient)
	readGroup.GET("/Observation", h.ListObservations)
	readGroup.GET("/MedicationStatement", h.ListMedicationStatements)

	writeGroup := fhirGroup.Group("", auth.RequireRole("admin", "clinician", "nutritionist"))
	writeGroup.POST("/Bundle", h.ImportBundle)
	writeGroup.POST("/Patient", h.CreatePatient)
	writeGroup.POST("/Observation", h.CreateObservation)
	writeGroup.POST("/MedicationStatement", h.CreateMedicationStatement)
}

// statusFor maps a taxonomy error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fhir.ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, fhir.ErrDuplicatePatient):
		return http.StatusConflict
	case errors.Is(err, fhir.ErrMalformedBundle),
		errors.Is(err, fhir.ErrMissingIdentifier),
		errors.Is(err, fhir.ErrInvalidReference),
		errors.Is(err, fhir.ErrUnsupportedValueShape):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), fhir.OutcomeForError(err))
}

// ExportFicha returns a patient's full record as a collection Bundle.
// The token may be a primary identifier, a legacy numeric id, or a rut.
func (h *Handler) ExportFicha(c echo.Context) error {
	bundle, err := h.exporter.Export(c.Request().Context(), c.Param("token"))
	if err != nil {
		return outcomeJSON(c, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

// ImportBundle ingests an external Bundle and returns the import
// report. Peers treat both 200 and 201 as success; the report payload
// is the contract, so a plain 200 is returned.
func (h *Handler) ImportBundle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}

	bundle, err := fhir.ParseBundle(body)
	if err != nil {
		return outcomeJSON(c, err)
	}

	report, err := h.importer.Import(c.Request().Context(), bundle)
	if err != nil {
		return outcomeJSON(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.patients.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, fhir.ErrPatientNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("token")))
		}
		return outcomeJSON(c, err)
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) CreatePatient(c echo.Context) error {
	resource, err := decodeResource(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}

	draft, err := patient.FromFHIR(resource)
	if err != nil {
		return outcomeJSON(c, err)
	}
	if err := h.patients.Create(c.Request().Context(), draft); err != nil {
		return outcomeJSON(c, err)
	}

	c.Response().Header().Set("Location", "/fhir/Patient/"+draft.ID)
	return c.JSON(http.StatusCreated, draft.ToFHIR())
}

// ListObservations returns the Observations for ?patient={token} as a
// collection Bundle.
func (h *Handler) ListObservations(c echo.Context) error {
	p, err := h.patients.Resolve(c.Request().Context(), c.QueryParam("patient"))
	if err != nil {
		return outcomeJSON(c, err)
	}

	panels, err := h.biomarkers.History(c.Request().Context(), p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	entries := []fhir.BundleEntry{}
	for _, panel := range panels {
		for _, obs := range panel.Observations() {
			entries = append(entries, fhir.BundleEntry{
				FullURL:  fhir.URN(fhir.GetString(obs, "id")),
				Resource: obs,
			})
		}
	}
	return c.JSON(http.StatusOK, fhir.NewCollectionBundle(entries))
}

func (h *Handler) CreateObservation(c echo.Context) error {
	resource, err := decodeResource(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}

	m, err := biomarker.ObservationFromFHIR(resource)
	if err != nil {
		return outcomeJSON(c, err)
	}

	p, err := h.patients.Resolve(c.Request().Context(), m.PatientID)
	if err != nil {
		return outcomeJSON(c, err)
	}
	m.PatientID = p.ID

	panel, _, err := h.biomarkers.RecordMeasurement(c.Request().Context(), m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	if panel == nil {
		return c.JSON(http.StatusOK, fhir.NewOperationOutcome(
			fhir.IssueSeverityInformation, fhir.IssueTypeCodeInvalid,
			"unknown biomarker code ignored: "+m.WireCode))
	}
	return c.JSON(http.StatusCreated, panel.ObservationFor(m.Code))
}

// ListMedicationStatements returns the MedicationStatements for
// ?patient={token} as a collection Bundle.
func (h *Handler) ListMedicationStatements(c echo.Context) error {
	p, err := h.patients.Resolve(c.Request().Context(), c.QueryParam("patient"))
	if err != nil {
		return outcomeJSON(c, err)
	}

	supplements, err := h.supplements.History(c.Request().Context(), p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	entries := []fhir.BundleEntry{}
	for _, s := range supplements {
		if s.Name == "" {
			continue
		}
		entries = append(entries, fhir.BundleEntry{
			FullURL:  fhir.URN(s.ID),
			Resource: s.ToFHIR(),
		})
	}
	return c.JSON(http.StatusOK, fhir.NewCollectionBundle(entries))
}

func (h *Handler) CreateMedicationStatement(c echo.Context) error {
	resource, err := decodeResource(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}

	draft, err := supplement.FromFHIR(resource)
	if err != nil {
		return outcomeJSON(c, err)
	}

	p, err := h.patients.Resolve(c.Request().Context(), draft.PatientID)
	if err != nil {
		return outcomeJSON(c, err)
	}
	draft.PatientID = p.ID
	draft.ID = ""

	if err := h.supplements.Record(c.Request().Context(), draft); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusCreated, draft.ToFHIR())
}

func decodeResource(c echo.Context) (map[string]interface{}, error) {
	var resource map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&resource); err != nil {
		return nil, err
	}
	return resource, nil
}
