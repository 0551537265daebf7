package biomarker

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
	readGroup.GET("/patients/:id/biomarkers", h.History)
}

// History backs the dashboard trend views with a patient's panels in
// date order.
func (h *Handler) History(c echo.Context) error {
	panels, err := h.svc.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if panels == nil {
		panels = []*Panel{}
	}
	return c.JSON(http.StatusOK, panels)
}
