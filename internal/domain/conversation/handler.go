package conversation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtour/caseflow/internal/platform/auth"
	"github.com/medtour/caseflow/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/conversations", h.getOrCreate)
	g.GET("/conversations", h.list)
	g.GET("/conversations/:id", h.get)
	g.GET("/conversations/:id/messages", h.listMessages)
	g.POST("/conversations/:id/messages", h.sendMessage)
	g.PATCH("/conversations/:id/messages/:messageId", h.editMessage)
	g.DELETE("/conversations/:id/messages/:messageId", h.deleteMessage)
	g.POST("/conversations/:id/read", h.markRead)
	g.GET("/conversations/:id/unread", h.unreadCount)
}

type getOrCreateRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) getOrCreate(c echo.Context) error {
	var req getOrCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	operatorID := auth.UserIDFromContext(c.Request().Context())
	conv, err := h.service.GetOrCreate(c.Request().Context(), req.PatientID, operatorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) list(c echo.Context) error {
	operatorID := auth.UserIDFromContext(c.Request().Context())
	convs, err := h.service.ListForOperator(c.Request().Context(), operatorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if convs == nil {
		convs = []*Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}
	conv, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return convError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) listMessages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	pg := pagination.FromContext(c)
	msgs, total, err := h.service.ListMessages(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return convError(err)
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(msgs, total, pg.Limit, pg.Offset))
}

type sendMessageRequest struct {
	Content     string      `json:"content"`
	Attachments []uuid.UUID `json:"attachments"`
	ReplyToID   *uuid.UUID  `json:"reply_to_id"`
}

func (h *Handler) sendMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	msg, err := h.service.SendMessage(ctx, id, SendInput{
		SenderID:    auth.UserIDFromContext(ctx),
		SenderRole:  auth.RoleFromContext(ctx),
		Content:     req.Content,
		Attachments: req.Attachments,
		ReplyToID:   req.ReplyToID,
	})
	if err != nil {
		return convError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) editMessage(c echo.Context) error {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}
	msgID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	msg, err := h.service.EditMessage(ctx, convID, msgID, auth.UserIDFromContext(ctx), req.Content)
	if err != nil {
		return convError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

func (h *Handler) deleteMessage(c echo.Context) error {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}
	msgID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}

	ctx := c.Request().Context()
	if err := h.service.DeleteMessage(ctx, convID, msgID, auth.UserIDFromContext(ctx)); err != nil {
		return convError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) markRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	side := c.QueryParam("side")
	if side != SideOperator && side != SidePatient {
		side = SideOperator
	}
	if err := h.service.MarkRead(c.Request().Context(), id, side); err != nil {
		return convError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) unreadCount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	side := c.QueryParam("side")
	if side != SideOperator && side != SidePatient {
		side = SideOperator
	}
	n, err := h.service.UnreadCount(c.Request().Context(), id, side)
	if err != nil {
		return convError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": n})
}

func convError(err error) error {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrMessageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyMessage):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotSender):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMessageDeleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
