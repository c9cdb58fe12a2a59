package intake

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtour/caseflow/internal/domain/patient"
	"github.com/medtour/caseflow/internal/platform/auth"
	"github.com/medtour/caseflow/internal/platform/blobstore"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/intake/sessions", h.start)
	g.GET("/intake/sessions/:id", h.get)
	g.PATCH("/intake/sessions/:id", h.save)
	g.POST("/intake/sessions/:id/documents", h.stageDocument)
	g.DELETE("/intake/sessions/:id/documents/:docId", h.removeDocument)
	g.POST("/intake/sessions/:id/advance", h.advance)
	g.POST("/intake/sessions/:id/back", h.back)
	g.POST("/intake/sessions/:id/submit", h.submit)
}

type startRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	sess, err := h.service.StartSession(c.Request().Context(), req.PatientID)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	sess, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) save(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	var in SaveInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, err := h.service.Save(c.Request().Context(), id, in)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) stageDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer src.Close()

	sess, err := h.service.StageDocument(c.Request().Context(), id,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) removeDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	docID, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	sess, err := h.service.RemoveStagedDocument(c.Request().Context(), id, docID)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) advance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	sess, err := h.service.Advance(c.Request().Context(), id)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) back(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	sess, err := h.service.Back(c.Request().Context(), id)
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	ctx := c.Request().Context()
	report, err := h.service.Submit(ctx, id, auth.UserIDFromContext(ctx))
	if errors.Is(err, ErrSubmitFailed) {
		// Compensated failure still carries the per-file report.
		return c.JSON(http.StatusBadGateway, report)
	}
	if err != nil {
		return intakeError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func intakeError(err error) error {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"step":   stepErr.Step,
			"fields": stepErr.Fields,
		})
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, patient.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionFinal):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
