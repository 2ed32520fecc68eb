package chat

import (
	"github.com/google/uuid"

	"campuschat/internal/models"
)

// EventType tags every server→client frame. The set is closed: the write
// pump and any client can switch exhaustively on it.
type EventType string

const (
	// Push events, fanned out to every live member of a room.
	EventNewMessage EventType = "new_message"
	EventUserTyping EventType = "user_typing"
	EventUserJoined EventType = "user_joined"

	// Acks, delivered only to the connection that issued the request.
	EventJoined   EventType = "joined"
	EventLeft     EventType = "left"
	EventAccepted EventType = "accepted"
	EventRejected EventType = "rejected"
	EventError    EventType = "error"
)

// Event is the single envelope for everything pushed down a live connection.
// Exactly one payload field is set, according to Type. Typing and join
// notifications carry no Message — they never touch the store.
type Event struct {
	Type     EventType       `json:"type"`
	CourseID uuid.UUID       `json:"course_id,omitempty"`
	Message  *models.Message `json:"message,omitempty"`
	UserID   uuid.UUID       `json:"user_id,omitempty"`
	IsTyping bool            `json:"is_typing,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

func newMessageEvent(msg *models.Message) Event {
	return Event{Type: EventNewMessage, CourseID: msg.CourseID, Message: msg}
}

func userTypingEvent(courseID, userID uuid.UUID, isTyping bool) Event {
	return Event{Type: EventUserTyping, CourseID: courseID, UserID: userID, IsTyping: isTyping}
}

func userJoinedEvent(courseID, userID uuid.UUID) Event {
	return Event{Type: EventUserJoined, CourseID: courseID, UserID: userID}
}
