package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campuschat/internal/chat"
	"campuschat/internal/middleware"
)

// ChatHandler is the synchronous face of the discussion core. It shares the
// gateway with the live transport — history, send, and delete run the exact
// same authorize/persist/broadcast logic whether they arrive over HTTP or a
// socket frame.
type ChatHandler struct {
	gateway *chat.Gateway
	logger  *zap.Logger
}

func NewChatHandler(gateway *chat.Gateway, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{gateway: gateway, logger: logger}
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// History handles GET /v1/courses/:id/messages?page=1&page_size=50
func (h *ChatHandler) History(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	page := 1
	if p := c.Query("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'page' parameter"})
			return
		}
	}
	pageSize := 50
	if ps := c.Query("page_size"); ps != "" {
		pageSize, err = strconv.Atoi(ps)
		if err != nil || pageSize < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'page_size' parameter"})
			return
		}
	}

	identity := middleware.GetIdentity(c)
	messages, err := h.gateway.History(c.Request.Context(), identity, courseID, page, pageSize)
	if err != nil {
		h.writeError(c, "failed to read history", err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Send handles POST /v1/courses/:id/messages — persists and broadcasts to
// any live room members, same rules as the socket send path.
func (h *ChatHandler) Send(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.GetIdentity(c)
	msg, err := h.gateway.Send(c.Request.Context(), identity, courseID, req.Content)
	if err != nil {
		h.writeError(c, "failed to send message", err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// Delete handles DELETE /v1/messages/:id
func (h *ChatHandler) Delete(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	identity := middleware.GetIdentity(c)
	if err := h.gateway.Delete(c.Request.Context(), identity, messageID); err != nil {
		h.writeError(c, "failed to delete message", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Presence handles GET /v1/courses/:id/presence
func (h *ChatHandler) Presence(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	identity := middleware.GetIdentity(c)
	users, err := h.gateway.Online(c.Request.Context(), identity, courseID)
	if err != nil {
		h.writeError(c, "failed to read presence", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_ids": users})
}

// writeError translates the core's error taxonomy into status codes. An
// authorization-lookup timeout maps like a denial — fail closed, never open.
func (h *ChatHandler) writeError(c *gin.Context, logMsg string, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrAuthorization), errors.Is(err, chat.ErrTimeout):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}
