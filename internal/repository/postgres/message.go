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

const maxPageSize = 100

// MessageStore is the durable message record. Messages use bigserial ids, so
// the sequence Postgres assigns is the strictly increasing tie-break for
// ordering — two appends racing into the same course can share a created_at
// but never a (created_at, id) pair.
type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Append(ctx context.Context, courseID, senderID uuid.UUID, content string) (*models.Message, error) {
	if err := chat.ValidateContent(content); err != nil {
		return nil, err
	}

	// RETURNING hands back the store-assigned id and created_at; by the time
	// the row comes back the insert has committed, so success here means the
	// message is durable and safe to announce.
	query := `
		INSERT INTO messages (course_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, course_id, sender_id, content, created_at`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, courseID, senderID, content).Scan(
		&msg.ID,
		&msg.CourseID,
		&msg.SenderID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) History(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// An unknown course is an error; a known course with no messages is an
	// empty page. The EXISTS probe is what tells the two apart.
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("course %s: %w", courseID, chat.ErrNotFound)
	}

	// Chronological within the room; id breaks created_at ties. Backed by
	// the (course_id, created_at, id) index, so this is a range scan.
	query := `
		SELECT id, course_id, sender_id, content, created_at
		FROM messages
		WHERE course_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, courseID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.CourseID,
			&msg.SenderID,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func (s *MessageStore) Remove(ctx context.Context, messageID int64, requesterID uuid.UUID, requesterRole models.Role) error {
	var senderID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT sender_id FROM messages WHERE id = $1`, messageID,
	).Scan(&senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("message %d: %w", messageID, chat.ErrNotFound)
		}
		return fmt.Errorf("get message sender: %w", err)
	}

	if senderID != requesterID && requesterRole != models.RoleAdmin {
		return fmt.Errorf("delete message %d: %w", messageID, chat.ErrAuthorization)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	// Zero rows means a concurrent delete won the race; the caller should
	// still learn their delete had no effect.
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %d: %w", messageID, chat.ErrNotFound)
	}
	return nil
}
