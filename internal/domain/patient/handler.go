package patient

import (
	"errors"
	"net/http"

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
	g := api.Group("/patients/:id", auth.RequireRole("patient"))
	g.GET("/vault", h.GetVault)
	g.PUT("/profile", h.UpsertProfile)

	g.POST("/family-members", h.AddFamilyMember)
	g.PATCH("/family-members/:memberId", h.UpdateFamilyMember)
	g.DELETE("/family-members/:memberId", h.RemoveFamilyMember)

	g.POST("/records", h.AddMedicalRecord)
	g.DELETE("/records/:recordId", h.RemoveMedicalRecord)

	g.POST("/trusted-doctors", h.AddTrustedDoctor)
	g.PATCH("/trusted-doctors/:doctorId", h.UpdateTrustedDoctor)
	g.DELETE("/trusted-doctors/:doctorId", h.RemoveTrustedDoctor)
	g.POST("/trusted-doctors/:doctorId/resolve", h.ResolveTrustedDoctor)

	g.GET("/predictions", h.ListPredictions)
	g.POST("/predictions/generate", h.GeneratePrediction)
	g.POST("/predictions/:predictionId/read", h.MarkPredictionRead)
	g.POST("/predictions/:predictionId/action", h.MarkPredictionActioned)
}

func (h *Handler) GetVault(c echo.Context) error {
	v, ok := h.svc.GetVault(c.Param("id"))
	if !ok {
		// An empty vault is valid state, not an error.
		v = Vault{Profile: Profile{PatientID: c.Param("id")}}
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpsertProfile(c echo.Context) error {
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.PatientID = c.Param("id")
	return c.JSON(http.StatusOK, h.svc.UpsertProfile(c.Request().Context(), p))
}

func (h *Handler) AddFamilyMember(c echo.Context) error {
	var m FamilyMember
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if m.FirstName == "" || m.Relationship == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first_name and relationship are required")
	}
	return c.JSON(http.StatusCreated, h.svc.AddFamilyMember(c.Request().Context(), c.Param("id"), m))
}

func (h *Handler) UpdateFamilyMember(c echo.Context) error {
	var patch FamilyMemberPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.UpdateFamilyMember(c.Request().Context(), c.Param("id"), c.Param("memberId"), patch)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RemoveFamilyMember(c echo.Context) error {
	if !h.svc.RemoveFamilyMember(c.Request().Context(), c.Param("id"), c.Param("memberId")) {
		return echo.NewHTTPError(http.StatusNotFound, "family member not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddMedicalRecord(c echo.Context) error {
	var rec MedicalRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if rec.Title == "" || rec.DocumentType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and document_type are required")
	}
	return c.JSON(http.StatusCreated, h.svc.AddMedicalRecord(c.Request().Context(), c.Param("id"), rec))
}

func (h *Handler) RemoveMedicalRecord(c echo.Context) error {
	if !h.svc.RemoveMedicalRecord(c.Request().Context(), c.Param("id"), c.Param("recordId")) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddTrustedDoctor(c echo.Context) error {
	var d TrustedDoctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if d.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	return c.JSON(http.StatusCreated, h.svc.AddTrustedDoctor(c.Request().Context(), c.Param("id"), d))
}

func (h *Handler) UpdateTrustedDoctor(c echo.Context) error {
	var patch TrustedDoctorPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateTrustedDoctor(c.Request().Context(), c.Param("id"), c.Param("doctorId"), patch)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) RemoveTrustedDoctor(c echo.Context) error {
	if !h.svc.RemoveTrustedDoctor(c.Request().Context(), c.Param("id"), c.Param("doctorId")) {
		return echo.NewHTTPError(http.StatusNotFound, "trusted doctor not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type resolveRequest struct {
	Query string `json:"query,omitempty"`
}

func (h *Handler) ResolveTrustedDoctor(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.ResolveTrustedDoctor(c.Request().Context(), c.Param("id"), c.Param("doctorId"), req.Query)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListPredictions(c echo.Context) error {
	v, _ := h.svc.GetVault(c.Param("id"))
	if v.Predictions == nil {
		return c.JSON(http.StatusOK, []Prediction{})
	}
	return c.JSON(http.StatusOK, v.Predictions)
}

type generateRequest struct {
	FamilyMemberID string `json:"family_member_id,omitempty"`
}

func (h *Handler) GeneratePrediction(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.GeneratePrediction(c.Request().Context(), c.Param("id"), req.FamilyMemberID)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) MarkPredictionRead(c echo.Context) error {
	if !h.svc.MarkPredictionRead(c.Request().Context(), c.Param("id"), c.Param("predictionId")) {
		return echo.NewHTTPError(http.StatusNotFound, "prediction not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type actionRequest struct {
	AppointmentID string `json:"appointment_id,omitempty"`
}

func (h *Handler) MarkPredictionActioned(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !h.svc.MarkPredictionActioned(c.Request().Context(), c.Param("id"), c.Param("predictionId"), req.AppointmentID) {
		return echo.NewHTTPError(http.StatusNotFound, "prediction not found")
	}
	return c.NoContent(http.StatusNoContent)
}
