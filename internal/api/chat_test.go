package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campuschat/internal/auth"
	"campuschat/internal/chat"
	"campuschat/internal/middleware"
	"campuschat/internal/models"
)

const testSecret = "api-test-secret"

// In-memory collaborators: enough of the store and enrollment contracts to
// drive the full handler → gateway → store path without Postgres.

type memEnrollment struct {
	mu      sync.Mutex
	courses map[uuid.UUID]bool
	facts   map[uuid.UUID]map[uuid.UUID]models.MembershipFact
}

func (m *memEnrollment) MembershipFact(ctx context.Context, userID, courseID uuid.UUID) (models.MembershipFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.courses[courseID] {
		return models.MembershipFact{}, fmt.Errorf("course %s: %w", courseID, chat.ErrNotFound)
	}
	return m.facts[courseID][userID], nil
}

type memMessages struct {
	mu      sync.Mutex
	seq     int64
	msgs    []models.Message
	courses map[uuid.UUID]bool
}

func (m *memMessages) Append(ctx context.Context, courseID, senderID uuid.UUID, content string) (*models.Message, error) {
	if err := chat.ValidateContent(content); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	msg := models.Message{ID: m.seq, CourseID: courseID, SenderID: senderID, Content: content, CreatedAt: time.Now()}
	m.msgs = append(m.msgs, msg)
	return &msg, nil
}

func (m *memMessages) History(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.courses[courseID] {
		return nil, fmt.Errorf("course %s: %w", courseID, chat.ErrNotFound)
	}
	out := make([]models.Message, 0)
	for _, msg := range m.msgs {
		if msg.CourseID == courseID {
			out = append(out, msg)
		}
	}
	start := (page - 1) * pageSize
	if start >= len(out) {
		return []models.Message{}, nil
	}
	if end := start + pageSize; end < len(out) {
		out = out[start:end]
	} else {
		out = out[start:]
	}
	return out, nil
}

func (m *memMessages) Remove(ctx context.Context, messageID int64, requesterID uuid.UUID, requesterRole models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.msgs {
		if msg.ID != messageID {
			continue
		}
		if msg.SenderID != requesterID && requesterRole != models.RoleAdmin {
			return fmt.Errorf("delete message %d: %w", messageID, chat.ErrAuthorization)
		}
		m.msgs = append(m.msgs[:i], m.msgs[i+1:]...)
		return nil
	}
	return fmt.Errorf("message %d: %w", messageID, chat.ErrNotFound)
}

type apiEnv struct {
	router *gin.Engine
	enr    *memEnrollment
	msgs   *memMessages
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enr := &memEnrollment{
		courses: make(map[uuid.UUID]bool),
		facts:   make(map[uuid.UUID]map[uuid.UUID]models.MembershipFact),
	}
	msgs := &memMessages{courses: make(map[uuid.UUID]bool)}

	registry := chat.NewRegistry()
	logger := zap.NewNop()
	gateway := chat.NewGateway(msgs, enr, registry, chat.NewBroadcaster(registry, logger), nil, 0, logger)
	handler := NewChatHandler(gateway, logger)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(testSecret))
	v1.GET("/courses/:id/messages", handler.History)
	v1.POST("/courses/:id/messages", handler.Send)
	v1.DELETE("/messages/:id", handler.Delete)

	return &apiEnv{router: router, enr: enr, msgs: msgs}
}

func (e *apiEnv) addCourse() uuid.UUID {
	courseID := uuid.New()
	e.enr.courses[courseID] = true
	e.enr.facts[courseID] = make(map[uuid.UUID]models.MembershipFact)
	e.msgs.courses[courseID] = true
	return courseID
}

func (e *apiEnv) enroll(courseID, userID uuid.UUID) {
	e.enr.facts[courseID][userID] = models.MembershipFact{IsEnrolled: true}
}

func (e *apiEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, userID uuid.UUID, role models.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, role, "user@example.edu", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestHistoryEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	courseID := env.addCourse()

	enrolled := uuid.New()
	env.enroll(courseID, enrolled)
	enrolledToken := tokenFor(t, enrolled, models.RoleStudent)
	outsiderToken := tokenFor(t, uuid.New(), models.RoleStudent)

	// Send one message, then read it back over the same surface.
	w := env.do(t, http.MethodPost, "/v1/courses/"+courseID.String()+"/messages", enrolledToken, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/v1/courses/"+courseID.String()+"/messages", enrolledToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var messages []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, enrolled, messages[0].SenderID)

	// Not enrolled: 403. Unknown course: 404. No token: 401.
	w = env.do(t, http.MethodGet, "/v1/courses/"+courseID.String()+"/messages", outsiderToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/courses/"+uuid.NewString()+"/messages", enrolledToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/courses/"+courseID.String()+"/messages", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendEndpointValidation(t *testing.T) {
	env := newAPIEnv(t)
	courseID := env.addCourse()

	userID := uuid.New()
	env.enroll(courseID, userID)
	token := tokenFor(t, userID, models.RoleStudent)
	path := "/v1/courses/" + courseID.String() + "/messages"

	// Missing content never reaches the gateway; binding rejects it.
	w := env.do(t, http.MethodPost, path, token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Over-long content is the store contract's rejection.
	long := strings.Repeat("a", chat.MaxContentLength+1)
	w = env.do(t, http.MethodPost, path, token, `{"content":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, env.msgs.msgs)
}

func TestDeleteEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	courseID := env.addCourse()

	sender := uuid.New()
	env.enroll(courseID, sender)
	senderToken := tokenFor(t, sender, models.RoleStudent)
	adminToken := tokenFor(t, uuid.New(), models.RoleAdmin)
	otherToken := tokenFor(t, uuid.New(), models.RoleStudent)

	w := env.do(t, http.MethodPost, "/v1/courses/"+courseID.String()+"/messages", senderToken, `{"content":"delete me"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))

	path := fmt.Sprintf("/v1/messages/%d", msg.ID)

	// A stranger cannot delete it; an admin can; a second delete is 404.
	w = env.do(t, http.MethodDelete, path, otherToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, path, adminToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, path, adminToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
