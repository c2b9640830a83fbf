package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amma-health/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("", auth.RequireRole("patient"))
	patient.POST("/appointments", h.Book)
	patient.GET("/patients/:id/appointments", h.ForPatient)

	doctor := api.Group("", auth.RequireRole("doctor"))
	doctor.GET("/doctors/:id/appointments", h.ForDoctor)
	doctor.POST("/appointments/:id/confirm", h.Confirm)
	doctor.POST("/appointments/:id/complete", h.Complete)
	doctor.POST("/appointments/:id/urgent", h.MarkUrgent)

	either := api.Group("", auth.RequireRole("patient", "doctor"))
	either.GET("/appointments/:id", h.Get)
	either.PATCH("/appointments/:id", h.Patch)
	either.POST("/appointments/:id/cancel", h.Cancel)
}

type bookRequest struct {
	DoctorID       string   `json:"doctor_id"`
	PatientID      string   `json:"patient_id"`
	FamilyMemberID string   `json:"family_member_id,omitempty"`
	ScheduledAt    string   `json:"scheduled_at"`
	Duration       int      `json:"duration"`
	Type           Type     `json:"type"`
	Reason         string   `json:"reason,omitempty"`
	AIPriority     *float64 `json:"ai_priority_score,omitempty"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	when, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_at must be RFC 3339")
	}

	a, err := h.svc.Book(c.Request().Context(), Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		FamilyMemberID:  req.FamilyMemberID,
		ScheduledAt:     when,
		Duration:        req.Duration,
		Type:            req.Type,
		Reason:          req.Reason,
		AIPriorityScore: req.AIPriority,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	a, ok := h.svc.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Patch(c echo.Context) error {
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, ok := h.svc.Apply(c.Request().Context(), c.Param("id"), p)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.statusChange(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.statusChange(c, h.svc.Cancel)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.statusChange(c, h.svc.Complete)
}

func (h *Handler) MarkUrgent(c echo.Context) error {
	return h.statusChange(c, h.svc.MarkUrgent)
}

func (h *Handler) statusChange(c echo.Context, apply func(ctx context.Context, id string) (Appointment, bool)) error {
	a, ok := apply(c.Request().Context(), c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ForPatient(c echo.Context) error {
	return c.JSON(http.StatusOK, orEmpty(h.svc.ForPatient(c.Param("id"))))
}

func (h *Handler) ForDoctor(c echo.Context) error {
	return c.JSON(http.StatusOK, orEmpty(h.svc.ForDoctor(c.Param("id"))))
}

func orEmpty(appts []Appointment) []Appointment {
	if appts == nil {
		return []Appointment{}
	}
	return appts
}
