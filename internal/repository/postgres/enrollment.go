package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuschat/internal/chat"
	"campuschat/internal/models"
)

// EnrollmentStore reads membership facts from the course/enrollment tables
// owned by the wider platform. This service never writes them.
type EnrollmentStore struct {
	pool *pgxpool.Pool
}

func NewEnrollmentStore(pool *pgxpool.Pool) *EnrollmentStore {
	return &EnrollmentStore{pool: pool}
}

// MembershipFact answers "instructor? enrolled?" in one round trip. EXISTS
// stops at the first matching enrollment row, which matters on a query that
// runs before every join, send, and read.
func (s *EnrollmentStore) MembershipFact(ctx context.Context, userID, courseID uuid.UUID) (models.MembershipFact, error) {
	query := `
		SELECT c.instructor_id = $2,
		       EXISTS (
		           SELECT 1 FROM enrollments e
		           WHERE e.course_id = c.id AND e.user_id = $2
		       )
		FROM courses c
		WHERE c.id = $1`

	var fact models.MembershipFact
	err := s.pool.QueryRow(ctx, query, courseID, userID).Scan(
		&fact.IsInstructor,
		&fact.IsEnrolled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MembershipFact{}, fmt.Errorf("course %s: %w", courseID, chat.ErrNotFound)
		}
		return models.MembershipFact{}, fmt.Errorf("get membership fact: %w", err)
	}
	return fact, nil
}
