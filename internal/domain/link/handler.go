package link

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amma-health/portal/internal/platform/auth"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("", auth.RequireRole("patient"))
	patient.POST("/links", h.CreateLinkRequest)
	patient.GET("/patients/:id/doctors", h.PatientDoctors)

	doctor := api.Group("", auth.RequireRole("doctor"))
	doctor.POST("/links/:id/accept", h.AcceptLink)
	doctor.POST("/links/:id/decline", h.DeclineLink)
	doctor.GET("/doctors/:id/patients", h.DoctorPatients)
	doctor.GET("/doctors/:id/link-requests", h.PendingForDoctor)

	// Either party may sever the relationship.
	either := api.Group("", auth.RequireRole("patient", "doctor"))
	either.DELETE("/links/:id", h.Unlink)
}

type createLinkRequest struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id"`
	PatientName string `json:"patient_name,omitempty"`
	DoctorName  string `json:"doctor_name,omitempty"`
}

// mutationResponse gives callers the outcome plus the resulting record
// so the UI re-renders from state rather than inferring success.
type mutationResponse struct {
	Outcome string `json:"outcome"`
	Link    *Link  `json:"link,omitempty"`
}

func (h *Handler) CreateLinkRequest(c echo.Context) error {
	var req createLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == "" || req.DoctorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and doctor_id are required")
	}

	ctx := c.Request().Context()
	out := h.registry.CreateLinkRequest(ctx, req.PatientID, req.DoctorID, req.PatientName, req.DoctorName)
	l, _ := h.registry.Get(LinkID(req.PatientID, req.DoctorID))

	status := http.StatusCreated
	if out != OutcomeApplied {
		status = http.StatusOK
	}
	return c.JSON(status, mutationResponse{Outcome: out.String(), Link: &l})
}

func (h *Handler) AcceptLink(c echo.Context) error {
	return h.transition(c, h.registry.AcceptLink)
}

func (h *Handler) DeclineLink(c echo.Context) error {
	return h.transition(c, h.registry.DeclineLink)
}

func (h *Handler) transition(c echo.Context, apply func(ctx context.Context, id string) Outcome) error {
	id := c.Param("id")
	out := apply(c.Request().Context(), id)
	resp := mutationResponse{Outcome: out.String()}
	if l, ok := h.registry.Get(id); ok {
		resp.Link = &l
	}
	// Guard rejections are absorbed here: the caller gets the current
	// (possibly unchanged) state, never an error.
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Unlink(c echo.Context) error {
	out := h.registry.Unlink(c.Request().Context(), c.Param("id"))
	if out == OutcomeNotFound {
		return c.JSON(http.StatusOK, mutationResponse{Outcome: out.String()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PatientDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, orEmpty(h.registry.PatientDoctors(c.Param("id"))))
}

func (h *Handler) DoctorPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, orEmpty(h.registry.DoctorPatients(c.Param("id"))))
}

func (h *Handler) PendingForDoctor(c echo.Context) error {
	return c.JSON(http.StatusOK, orEmpty(h.registry.PendingForDoctor(c.Param("id"))))
}

func orEmpty(links []Link) []Link {
	if links == nil {
		return []Link{}
	}
	return links
}
