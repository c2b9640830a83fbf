package identity

import (
	"errors"
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

// RegisterPublicRoutes mounts the routes reachable without a session.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/code/:code", h.DoctorByCode)
	api.GET("/users/:id", h.GetUser)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Specialty string `json:"specialty,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	role := Role(req.Role)
	if req.Role == "" {
		role = RolePatient
	}

	u, token, err := h.registry.Register(c.Request().Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      role,
		Specialty: req.Specialty,
		Phone:     req.Phone,
	})
	switch {
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sessionResponse{User: u, Token: token})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, token, err := h.registry.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	}
	return c.JSON(http.StatusOK, sessionResponse{User: u, Token: token})
}

func (h *Handler) Me(c echo.Context) error {
	id := auth.UserIDFromContext(c.Request().Context())
	u, ok := h.registry.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	u, ok := h.registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors := h.registry.Doctors()
	if doctors == nil {
		doctors = []User{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) DoctorByCode(c echo.Context) error {
	u, ok := h.registry.DoctorByCode(c.Param("code"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no doctor with that code")
	}
	return c.JSON(http.StatusOK, u)
}
