package stage

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medtour/caseflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/stages", h.ListStages)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/patients/stages", h.CreateStage)
	admin.PATCH("/patients/stages/:id", h.UpdateStage)
	admin.DELETE("/patients/stages/:id", h.DeleteStage)
}

func (h *Handler) ListStages(c echo.Context) error {
	stages, err := h.svc.ListStages(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if stages == nil {
		stages = []*Stage{}
	}
	return c.JSON(http.StatusOK, stages)
}

func (h *Handler) CreateStage(c echo.Context) error {
	var st Stage
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStage(c.Request().Context(), &st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStage(c echo.Context) error {
	var st Stage
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st.ID = c.Param("id")
	if err := h.svc.UpdateStage(c.Request().Context(), &st); err != nil {
		if errors.Is(err, ErrStageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "stage not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStage(c echo.Context) error {
	if err := h.svc.DeleteStage(c.Request().Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrStageNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "stage not found")
		case errors.Is(err, ErrStageInUse):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}
