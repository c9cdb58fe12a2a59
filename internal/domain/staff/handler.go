package staff

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtour/caseflow/internal/platform/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the endpoints that work without a token.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/operator/login", h.login)
	g.POST("/auth/token/refresh", h.refresh)
}

// RegisterRoutes mounts the authenticated operator management endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/auth/users", h.list)
	admin.POST("/auth/users", h.create)
	admin.GET("/auth/users/:id", h.get)
	admin.PATCH("/auth/users/:id", h.update)
	admin.DELETE("/auth/users/:id", h.delete)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Operator     *Operator `json:"operator"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	pair, op, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Operator:     op,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	pair, err := h.service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) list(c echo.Context) error {
	ops, err := h.service.ListOperators(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ops == nil {
		ops = []*Operator{}
	}
	return c.JSON(http.StatusOK, ops)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	op, err := h.service.CreateOperator(c.Request().Context(), in)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusCreated, op)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid operator id")
	}
	op, err := h.service.GetOperator(c.Request().Context(), id)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, op)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid operator id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	op, err := h.service.UpdateOperator(c.Request().Context(), id, in)
	if err != nil {
		return staffError(err)
	}
	return c.JSON(http.StatusOK, op)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid operator id")
	}
	if err := h.service.DeleteOperator(c.Request().Context(), id); err != nil {
		return staffError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func staffError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountDisabled):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrOperatorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
