package chat

import (
	"github.com/google/uuid"

	"campuschat/internal/models"
)

// Identity is the verified (userID, role) pair established once per
// connection at handshake, or per request from the bearer token. It never
// changes for the life of a connection.
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

// CanRead reports whether the identity may see a course's room: platform
// admins, the course's instructor, and enrolled students.
//
// Kept as a pure function on purpose. Authorization must be re-derived from
// a fresh MembershipFact on every call — a student who drops the course loses
// room access on their very next action, not their next connection.
func CanRead(id Identity, fact models.MembershipFact) bool {
	if id.Role == models.RoleAdmin {
		return true
	}
	return fact.IsInstructor || fact.IsEnrolled
}

// CanWrite reports whether the identity may post in a course's room.
// Same rule as CanRead: anyone who can see the room can post in it.
func CanWrite(id Identity, fact models.MembershipFact) bool {
	return CanRead(id, fact)
}
