package ws

import (
	"github.com/google/uuid"
)

// Client frame types. The set is closed: the dispatch switch in client.go
// covers every case and answers anything else with an error frame.
const (
	frameJoin   = "join"
	frameLeave  = "leave"
	frameSend   = "send"
	frameTyping = "typing"
)

// clientFrame is the single inbound wire shape. The type tag says which of
// the optional fields are meaningful; nothing else is ever accepted off the
// socket.
type clientFrame struct {
	Type     string    `json:"type"`
	CourseID uuid.UUID `json:"course_id"`
	Content  string    `json:"content,omitempty"`
	IsTyping bool      `json:"is_typing,omitempty"`
}
