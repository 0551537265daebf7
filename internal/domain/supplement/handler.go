package supplement

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nomad3/ficha-medica-universal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "nutritionist", "viewer"))
	readGroup.GET("/patients/:id/supplements", h.History)

	writeGroup := api.Group("", auth.RequireRole("admin", "clinician", "nutritionist"))
	writeGroup.POST("/patients/:id/supplements", h.Record)
}

func (h *Handler) Record(c echo.Context) error {
	var s Supplement
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.PatientID = c.Param("id")
	if err := h.svc.Record(c.Request().Context(), &s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) History(c echo.Context) error {
	supplements, err := h.svc.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if supplements == nil {
		supplements = []*Supplement{}
	}
	return c.JSON(http.StatusOK, supplements)
}
