package chat

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broadcaster fans an event out to every live connection joined to a course
// room at the moment of the call.
//
// Delivery is best-effort to currently-live listeners: a connection that
// joins after Publish returns does not receive the event retroactively — it
// catches up through the persisted history. Per-recipient sends are
// non-blocking, so one stuck consumer never stalls the rest of the room.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger
}

func NewBroadcaster(registry *Registry, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, logger: logger}
}

// Publish delivers event to every current member of the room. A recipient
// whose outbound queue is full loses this event (it is not retried); that is
// logged but never escalated to the sender — the recipient's history replay
// covers the gap.
func (b *Broadcaster) Publish(courseID uuid.UUID, event Event) {
	b.publish(courseID, uuid.Nil, event)
}

// PublishExcept is Publish minus one connection. Join notifications use it:
// they are informational for the members already in the room, and skipping
// the joiner keeps its ack the only frame it sees for its own join.
func (b *Broadcaster) PublishExcept(courseID, exclude uuid.UUID, event Event) {
	b.publish(courseID, exclude, event)
}

func (b *Broadcaster) publish(courseID, exclude uuid.UUID, event Event) {
	for _, d := range b.registry.deliveries(courseID) {
		if d.connID == exclude {
			continue
		}
		select {
		case d.out <- event:
		default:
			b.logger.Warn("dropping event for slow consumer",
				zap.String("course_id", courseID.String()),
				zap.String("connection_id", d.connID.String()),
				zap.String("event_type", string(event.Type)),
			)
		}
	}
}
