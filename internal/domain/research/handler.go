package research

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
	g := api.Group("/research", auth.RequireRole("researcher"))
	g.POST("/queries", h.SubmitQuery)
	g.GET("/queries", h.ListQueries)
	g.GET("/queries/:id", h.GetQuery)
	g.GET("/queries/:id/export", h.ExportCSV)
	g.POST("/chat/sessions", h.CreateSession)
	g.GET("/chat/sessions", h.ListSessions)
	g.POST("/chat/sessions/:id/messages", h.SendMessage)
	g.GET("/audit", h.AuditLog)
}

type submitQueryRequest struct {
	Question string `json:"question"`
	Filters  Filter `json:"filters"`
}

func (h *Handler) SubmitQuery(c echo.Context) error {
	var req submitQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	researcherID := auth.UserIDFromContext(c.Request().Context())
	q := h.svc.SubmitQuery(c.Request().Context(), researcherID, req.Question, req.Filters)
	return c.JSON(http.StatusCreated, q)
}

func (h *Handler) ListQueries(c echo.Context) error {
	researcherID := auth.UserIDFromContext(c.Request().Context())
	queries := h.svc.Queries(researcherID, QueryStatus(c.QueryParam("status")))
	if queries == nil {
		queries = []Query{}
	}
	return c.JSON(http.StatusOK, queries)
}

func (h *Handler) GetQuery(c echo.Context) error {
	q, ok := h.svc.GetQuery(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "query not found")
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ExportCSV(c echo.Context) error {
	researcherID := auth.UserIDFromContext(c.Request().Context())
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="query-export.csv"`)
	err := h.svc.ExportCSV(c.Request().Context(), researcherID, c.Param("id"), c.Response())
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	researcherID := auth.UserIDFromContext(c.Request().Context())
	return c.JSON(http.StatusCreated, h.svc.CreateChatSession(c.Request().Context(), researcherID))
}

func (h *Handler) ListSessions(c echo.Context) error {
	researcherID := auth.UserIDFromContext(c.Request().Context())
	sessions := h.svc.Sessions(researcherID)
	if sessions == nil {
		sessions = []ChatSession{}
	}
	return c.JSON(http.StatusOK, sessions)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	sess, err := h.svc.SendMessage(c.Request().Context(), c.Param("id"), req.Content)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) AuditLog(c echo.Context) error {
	researcherID := auth.UserIDFromContext(c.Request().Context())
	entries := h.svc.AuditLog(researcherID)
	if entries == nil {
		entries = []AuditEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
