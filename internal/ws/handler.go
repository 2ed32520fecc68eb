package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campuschat/internal/auth"
	"campuschat/internal/chat"
)

// Handler owns the live-transport endpoint. The token is verified before the
// upgrade: a connection with a missing or bad credential never becomes a
// WebSocket at all — it gets a plain 401 and the handshake fails closed.
type Handler struct {
	gateway  *chat.Gateway
	secret   string
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(gateway *chat.Gateway, secret string, logger *zap.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		secret:  secret,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect cross-origin during development; real
			// access control is the token, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /v1/ws?token=<jwt> (the token may also arrive as a
// bearer header; query param exists because browser WebSocket clients cannot
// set headers).
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	claims, err := auth.ParseToken(token, h.secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	identity := chat.Identity{UserID: claims.UserID, Role: claims.Role}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, identity, h.gateway, nil, h.logger)
	events, err := h.gateway.Connect(client.id, identity)
	if err != nil {
		// Duplicate connection IDs mean a broken transport layer, not a
		// client mistake; close hard and let the defect surface in logs.
		h.logger.Error("connection registration failed",
			zap.String("connection_id", client.id.String()),
			zap.Error(err),
		)
		conn.Close()
		return
	}
	client.events = events

	client.run(c.Request.Context())
}
