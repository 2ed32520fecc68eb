package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campuschat/internal/models"
	"campuschat/internal/repository"
)

// DefaultFactTimeout bounds a single membership-fact lookup. A lookup that
// exceeds it fails closed, exactly like a denied authorization.
const DefaultFactTimeout = 3 * time.Second

// PresenceTracker records ephemeral "recently active in this room" state.
// Implemented over Redis in internal/presence; nothing here is durable and
// entries expire on their own.
type PresenceTracker interface {
	Touch(ctx context.Context, courseID, userID uuid.UUID) error
	Online(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

// Gateway orchestrates the discussion core: it is the only component that
// calls the authorizer, the store, and the broadcaster, and both the live
// transport and the REST surface go through it — one implementation of the
// authorize → persist → broadcast ordering, not two.
type Gateway struct {
	messages    repository.MessageRepository
	enrollment  repository.EnrollmentRepository
	registry    *Registry
	broadcaster *Broadcaster
	presence    PresenceTracker // optional
	factTimeout time.Duration
	logger      *zap.Logger
}

func NewGateway(
	messages repository.MessageRepository,
	enrollment repository.EnrollmentRepository,
	registry *Registry,
	broadcaster *Broadcaster,
	presence PresenceTracker,
	factTimeout time.Duration,
	logger *zap.Logger,
) *Gateway {
	if factTimeout <= 0 {
		factTimeout = DefaultFactTimeout
	}
	return &Gateway{
		messages:    messages,
		enrollment:  enrollment,
		registry:    registry,
		broadcaster: broadcaster,
		presence:    presence,
		factTimeout: factTimeout,
		logger:      logger,
	}
}

// fact fetches the membership fact under the gateway's lookup deadline.
// Admins still go through here so an unknown course surfaces as ErrNotFound
// for them too; a deadline becomes ErrTimeout (fail closed).
func (g *Gateway) fact(ctx context.Context, userID, courseID uuid.UUID) (models.MembershipFact, error) {
	ctx, cancel := context.WithTimeout(ctx, g.factTimeout)
	defer cancel()

	fact, err := g.enrollment.MembershipFact(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.MembershipFact{}, fmt.Errorf("membership fact for course %s: %w", courseID, ErrTimeout)
		}
		return models.MembershipFact{}, err
	}
	return fact, nil
}

// Connect registers a live connection after the transport has verified its
// token, and hands back the outbound event stream its write pump drains.
func (g *Gateway) Connect(connID uuid.UUID, identity Identity) (<-chan Event, error) {
	out, err := g.registry.Register(connID, identity)
	if err != nil {
		return nil, err
	}
	g.logger.Info("connection registered",
		zap.String("connection_id", connID.String()),
		zap.String("user_id", identity.UserID.String()),
		zap.String("role", string(identity.Role)),
	)
	return out, nil
}

// Disconnect is the unconditional cleanup path for any transport close,
// voluntary or abrupt. It removes the connection from every room so no ghost
// member lingers in later broadcasts.
func (g *Gateway) Disconnect(connID uuid.UUID) {
	g.registry.Unregister(connID)
	g.logger.Info("connection unregistered", zap.String("connection_id", connID.String()))
}

// Join authorizes the connection's identity for the room with a fresh
// membership fact and, only on success, records the membership. A rejection
// leaves the connection authenticated and usable for other rooms.
func (g *Gateway) Join(ctx context.Context, connID, courseID uuid.UUID) error {
	identity, ok := g.registry.Identity(connID)
	if !ok {
		return fmt.Errorf("join: connection %s: %w", connID, ErrSessionGone)
	}

	fact, err := g.fact(ctx, identity.UserID, courseID)
	if err != nil {
		return err
	}
	if !CanRead(identity, fact) {
		return fmt.Errorf("join course %s: %w", courseID, ErrAuthorization)
	}

	if err := g.registry.Join(connID, courseID); err != nil {
		return err
	}
	g.touchPresence(ctx, courseID, identity.UserID)
	g.broadcaster.PublishExcept(courseID, connID, userJoinedEvent(courseID, identity.UserID))
	return nil
}

// Leave drops the room membership. Idempotent — leaving twice is a no-op.
func (g *Gateway) Leave(connID, courseID uuid.UUID) {
	g.registry.Leave(connID, courseID)
}

// Typing relays an ephemeral typing signal to the room. Fire-and-forget: it
// never touches the store, and a signal from a connection that has not
// joined the room is silently ignored. Consumers treat "typing" as stale
// after a short window — there is no pushed stop on disconnect.
func (g *Gateway) Typing(ctx context.Context, connID, courseID uuid.UUID, isTyping bool) {
	identity, ok := g.registry.Identity(connID)
	if !ok || !g.registry.IsJoined(connID, courseID) {
		return
	}
	g.touchPresence(ctx, courseID, identity.UserID)
	g.broadcaster.Publish(courseID, userTypingEvent(courseID, identity.UserID, isTyping))
}

// Send is the one write path for messages, shared by the live protocol and
// the REST endpoint. Ordering is fixed: authorize with a fresh fact (never
// the join-time decision), persist durably, then broadcast. A send rejected
// at any step persists nothing and broadcasts nothing.
func (g *Gateway) Send(ctx context.Context, identity Identity, courseID uuid.UUID, content string) (*models.Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	fact, err := g.fact(ctx, identity.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !CanWrite(identity, fact) {
		return nil, fmt.Errorf("send to course %s: %w", courseID, ErrAuthorization)
	}

	msg, err := g.messages.Append(ctx, courseID, identity.UserID, content)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		g.logger.Error("message append failed",
			zap.String("course_id", courseID.String()),
			zap.String("sender_id", identity.UserID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	// Broadcast strictly after the durable write confirms: a message that
	// could still be lost on crash must never be announced.
	g.touchPresence(ctx, courseID, identity.UserID)
	g.broadcaster.Publish(courseID, newMessageEvent(msg))
	return msg, nil
}

// History serves the synchronous read path. It authorizes with a fresh fact
// and reads straight from the store; the registry and broadcaster are never
// involved, so it works for identities with no live connection at all.
func (g *Gateway) History(ctx context.Context, identity Identity, courseID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	fact, err := g.fact(ctx, identity.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !CanRead(identity, fact) {
		return nil, fmt.Errorf("read course %s: %w", courseID, ErrAuthorization)
	}
	return g.messages.History(ctx, courseID, page, pageSize)
}

// Delete hard-deletes a message; the store enforces the sender-or-admin rule.
func (g *Gateway) Delete(ctx context.Context, identity Identity, messageID int64) error {
	return g.messages.Remove(ctx, messageID, identity.UserID, identity.Role)
}

// Online returns the course's recently-active members from the ephemeral
// presence layer. Authorized like any other read of the room.
func (g *Gateway) Online(ctx context.Context, identity Identity, courseID uuid.UUID) ([]uuid.UUID, error) {
	fact, err := g.fact(ctx, identity.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !CanRead(identity, fact) {
		return nil, fmt.Errorf("read course %s: %w", courseID, ErrAuthorization)
	}
	if g.presence == nil {
		return []uuid.UUID{}, nil
	}
	return g.presence.Online(ctx, courseID)
}

func (g *Gateway) touchPresence(ctx context.Context, courseID, userID uuid.UUID) {
	if g.presence == nil {
		return
	}
	if err := g.presence.Touch(ctx, courseID, userID); err != nil {
		// Presence is ephemeral convenience state; a failed touch never
		// fails the action that triggered it.
		g.logger.Warn("presence touch failed",
			zap.String("course_id", courseID.String()),
			zap.Error(err),
		)
	}
}
