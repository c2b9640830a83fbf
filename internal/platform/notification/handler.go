package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amma-health/portal/internal/platform/auth"
	"github.com/amma-health/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.DELETE("/notifications", h.ClearAll)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	all := h.svc.ForUser(userID)
	p := pagination.FromContext(c)
	start, end := p.Slice(len(all))
	return c.JSON(http.StatusOK, pagination.NewResponse(all[start:end], len(all), p.Limit, p.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if !h.svc.MarkRead(c.Request().Context(), userID, c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearAll(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	h.svc.ClearAll(c.Request().Context(), userID)
	return c.NoContent(http.StatusNoContent)
}
