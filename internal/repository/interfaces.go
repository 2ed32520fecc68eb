package repository

import (
	"context"

	"github.com/google/uuid"

	"campuschat/internal/models"
)

// Every method takes a context: these are I/O boundaries, and a cancelled
// request should cancel its query. Implementations signal the conditions in
// their contracts with the sentinel errors in internal/chat, so callers can
// match with errors.Is regardless of the backing store.

// MessageRepository is the durable, append-only record of course discussion
// messages. Append and Remove are the only mutations, and both must be
// durable before they return success — the gateway broadcasts only after the
// store has confirmed the write.
type MessageRepository interface {
	// Append validates content, assigns the id and created_at ordering key,
	// and persists. Returns chat.ErrValidation for empty or over-long content.
	Append(ctx context.Context, courseID, senderID uuid.UUID, content string) (*models.Message, error)

	// History returns one page of a course's messages in chronological order
	// (created_at, then id). page is 1-based. Returns chat.ErrNotFound when
	// the course is unknown; a known course with no messages is an empty
	// slice, not an error.
	History(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]models.Message, error)

	// Remove hard-deletes a message. Only the original sender or an admin may
	// delete; otherwise chat.ErrAuthorization. Deleting an already-deleted
	// message reports chat.ErrNotFound — the caller learns the delete had no
	// effect.
	Remove(ctx context.Context, messageID int64, requesterID uuid.UUID, requesterRole models.Role) error
}

// EnrollmentRepository exposes the external course/enrollment collaborator's
// membership facts. Queried fresh on every authorization decision — no
// caching layer belongs in front of this.
type EnrollmentRepository interface {
	// MembershipFact returns the identity's standing in the course, or
	// chat.ErrNotFound when the course does not exist.
	MembershipFact(ctx context.Context, userID, courseID uuid.UUID) (models.MembershipFact, error)
}

// UserRepository serves the login path.
type UserRepository interface {
	// GetByEmail returns nil, nil when no such user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
