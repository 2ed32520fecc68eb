package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuschat/internal/chat"
)

func TestClientFrameDecoding(t *testing.T) {
	courseID := uuid.New()

	tests := []struct {
		name string
		raw  string
		want clientFrame
	}{
		{
			"join",
			fmt.Sprintf(`{"type":"join","course_id":"%s"}`, courseID),
			clientFrame{Type: frameJoin, CourseID: courseID},
		},
		{
			"send",
			fmt.Sprintf(`{"type":"send","course_id":"%s","content":"hi"}`, courseID),
			clientFrame{Type: frameSend, CourseID: courseID, Content: "hi"},
		},
		{
			"typing",
			fmt.Sprintf(`{"type":"typing","course_id":"%s","is_typing":true}`, courseID),
			clientFrame{Type: frameTyping, CourseID: courseID, IsTyping: true},
		},
		{
			"leave",
			fmt.Sprintf(`{"type":"leave","course_id":"%s"}`, courseID),
			clientFrame{Type: frameLeave, CourseID: courseID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frame clientFrame
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &frame))
			assert.Equal(t, tt.want, frame)
		})
	}
}

func TestRejectReasonMapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("context: %w", err) }

	assert.Equal(t, "not authorized", rejectReason(wrap(chat.ErrAuthorization)))
	// A timed-out fact lookup looks exactly like a denial to the client.
	assert.Equal(t, "not authorized", rejectReason(wrap(chat.ErrTimeout)))
	assert.Equal(t, "course not found", rejectReason(wrap(chat.ErrNotFound)))
	assert.Equal(t, "session closed", rejectReason(wrap(chat.ErrSessionGone)))
	assert.Equal(t, "invalid content", rejectReason(wrap(chat.ErrValidation)))
	assert.Equal(t, "message could not be saved", rejectReason(wrap(chat.ErrStore)))
	assert.Equal(t, "request failed", rejectReason(errors.New("anything else")))
}
