package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a platform-wide role carried in the JWT. Per-course standing
// (instructor of course X, enrolled in course Y) lives in MembershipFact,
// not here — only "admin" grants anything globally.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// User is a platform account. Only the login path reads this; everything
// else works off the verified identity inside the token.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Course is read-only to this service: course CRUD lives elsewhere, we only
// consume "does this course exist and who teaches it" via MembershipFact.
type Course struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	InstructorID uuid.UUID `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is a single discussion message in a course room.
//
// Why int64 for ID (not UUID)?
//   - Messages are the highest-volume table; bigserial is smaller and
//     index-friendlier than a UUID.
//   - The sequence is assigned by a single store, so a strictly increasing
//     int64 is exactly the tie-break the ordering contract needs: two
//     messages sharing a created_at still sort deterministically by
//     (created_at, id).
type Message struct {
	ID        int64     `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipFact is the externally-sourced truth about an identity's standing
// in one course. It is queried fresh on every authorization decision and
// never cached: enrollment can change between a connection's handshake and
// its next action.
type MembershipFact struct {
	IsInstructor bool
	IsEnrolled   bool
}
