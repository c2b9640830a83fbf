package doctor

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/doctors/:id", auth.RequireRole("doctor"))
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpsertProfile)
	g.PUT("/availability", h.SetAvailability)
	g.GET("/roster", h.Roster)
	g.GET("/dashboard", h.Dashboard)
}

func (h *Handler) GetProfile(c echo.Context) error {
	p, ok := h.svc.GetProfile(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpsertProfile(c echo.Context) error {
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.DoctorID = c.Param("id")
	return c.JSON(http.StatusOK, h.svc.UpsertProfile(c.Request().Context(), p))
}

type availabilityRequest struct {
	Slots []AvailabilitySlot `json:"slots"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for _, s := range req.Slots {
		if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "day_of_week must be 0-6")
		}
		if _, err := time.Parse("15:04", s.StartTime); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "start_time must be HH:mm")
		}
		if _, err := time.Parse("15:04", s.EndTime); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "end_time must be HH:mm")
		}
	}
	return c.JSON(http.StatusOK, h.svc.SetAvailability(c.Request().Context(), c.Param("id"), req.Slots))
}

func (h *Handler) Roster(c echo.Context) error {
	roster := h.svc.Roster(c.Param("id"))
	if roster == nil {
		roster = []link.Link{}
	}
	return c.JSON(http.StatusOK, roster)
}

func (h *Handler) Dashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.BuildDashboard(c.Param("id"), time.Now()))
}
