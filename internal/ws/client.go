package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campuschat/internal/chat"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameSize  = 4096
	ackQueueDepth = 16
)

// client is one live session: a registered connection plus the two pumps
// gorilla requires (a single reader goroutine and a single writer goroutine
// per socket).
type client struct {
	id       uuid.UUID
	identity chat.Identity
	conn     *websocket.Conn
	gateway  *chat.Gateway

	// events is the room fan-out stream owned by the registry; acks carries
	// this connection's own request acks. Both drain through the one write
	// pump, so no two goroutines ever write the socket concurrently.
	events <-chan chat.Event
	acks   chan chat.Event

	// done closes when run unwinds; writerGone closes when the write pump
	// exits. They are distinct because the read loop must be able to unwind
	// after a writer death, not before it.
	done       chan struct{}
	writerGone chan struct{}

	logger *zap.Logger
}

func newClient(conn *websocket.Conn, identity chat.Identity, gateway *chat.Gateway, events <-chan chat.Event, logger *zap.Logger) *client {
	return &client{
		id:         uuid.New(),
		identity:   identity,
		conn:       conn,
		gateway:    gateway,
		events:     events,
		acks:       make(chan chat.Event, ackQueueDepth),
		done:       make(chan struct{}),
		writerGone: make(chan struct{}),
		logger:     logger,
	}
}

// run blocks until the connection dies. The deferred Disconnect is the
// cleanup path for every way a session can end — clean close, network drop,
// oversized frame — so ghost room members cannot survive an abrupt
// disconnect.
func (c *client) run(ctx context.Context) {
	defer func() {
		close(c.done)
		c.gateway.Disconnect(c.id)
		c.conn.Close()
	}()

	go c.writePump()
	c.readPump(ctx)
}

func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed unexpectedly",
					zap.String("connection_id", c.id.String()),
					zap.Error(err),
				)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.ack(chat.Event{Type: chat.EventError, Reason: "malformed frame"})
			continue
		}
		// Frames from one connection are handled in arrival order, right
		// here on the read loop: two sends from the same sender can never
		// reorder each other.
		c.handleFrame(ctx, frame)
	}
}

func (c *client) handleFrame(ctx context.Context, frame clientFrame) {
	switch frame.Type {
	case frameJoin:
		if err := c.gateway.Join(ctx, c.id, frame.CourseID); err != nil {
			// A rejected join leaves the session authenticated; the client
			// may be authorized for other rooms.
			c.ack(chat.Event{Type: chat.EventRejected, CourseID: frame.CourseID, Reason: rejectReason(err)})
			return
		}
		c.ack(chat.Event{Type: chat.EventJoined, CourseID: frame.CourseID})

	case frameLeave:
		c.gateway.Leave(c.id, frame.CourseID)
		c.ack(chat.Event{Type: chat.EventLeft, CourseID: frame.CourseID})

	case frameSend:
		msg, err := c.gateway.Send(ctx, c.identity, frame.CourseID, frame.Content)
		if err != nil {
			c.ack(chat.Event{Type: chat.EventRejected, CourseID: frame.CourseID, Reason: rejectReason(err)})
			return
		}
		c.ack(chat.Event{Type: chat.EventAccepted, CourseID: frame.CourseID, Message: msg})

	case frameTyping:
		c.gateway.Typing(ctx, c.id, frame.CourseID, frame.IsTyping)

	default:
		c.ack(chat.Event{Type: chat.EventError, Reason: "unknown frame type"})
	}
}

// ack queues a response frame for the write pump. A dead writer never
// drains acks, so the queue-full case must also watch writerGone: otherwise
// a peer that stops reading while pipelining requests wedges the read loop
// here and the deferred Disconnect never runs.
func (c *client) ack(ev chat.Event) {
	select {
	case c.acks <- ev:
	case <-c.writerGone:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerGone)
		// Closing the conn errors any in-flight ReadMessage, so the read
		// loop observes writer death even while blocked on the socket.
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.acks:
			if !c.write(ev) {
				return
			}
		case ev := <-c.events:
			if !c.write(ev) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(ev chat.Event) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		c.logger.Debug("write failed",
			zap.String("connection_id", c.id.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrAuthorization), errors.Is(err, chat.ErrTimeout):
		return "not authorized"
	case errors.Is(err, chat.ErrNotFound):
		return "course not found"
	case errors.Is(err, chat.ErrSessionGone):
		return "session closed"
	case errors.Is(err, chat.ErrValidation):
		return "invalid content"
	case errors.Is(err, chat.ErrStore):
		return "message could not be saved"
	default:
		return "request failed"
	}
}
