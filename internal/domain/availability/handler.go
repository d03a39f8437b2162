package availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/panel/internal/domain/roster"
	"github.com/clinic/panel/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/doctors/:id/availability", h.GetAvailability)

	write := api.Group("", auth.RequireRole("admin", "registrar"))
	write.PUT("/doctors/:id/availability", h.ReplaceAvailability)
}

func doctorID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) GetAvailability(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) ReplaceAvailability(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	var req ReplaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Availability == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "availability is required")
	}
	rows, err := h.svc.ReplaceAvailability(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}
