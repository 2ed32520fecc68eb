package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"campuschat/internal/models"
)

func TestCanRead(t *testing.T) {
	student := Identity{UserID: uuid.New(), Role: models.RoleStudent}
	instructor := Identity{UserID: uuid.New(), Role: models.RoleInstructor}
	admin := Identity{UserID: uuid.New(), Role: models.RoleAdmin}

	tests := []struct {
		name string
		id   Identity
		fact models.MembershipFact
		want bool
	}{
		{"enrolled student", student, models.MembershipFact{IsEnrolled: true}, true},
		{"unenrolled student", student, models.MembershipFact{}, false},
		{"course instructor", instructor, models.MembershipFact{IsInstructor: true}, true},
		{"instructor of a different course", instructor, models.MembershipFact{}, false},
		{"admin with no membership at all", admin, models.MembershipFact{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanRead(tt.id, tt.fact))
		})
	}
}

func TestCanWriteMatchesCanRead(t *testing.T) {
	// Read and write authorization are the same rule in this system: anyone
	// who can see the room can post in it.
	ids := []Identity{
		{UserID: uuid.New(), Role: models.RoleStudent},
		{UserID: uuid.New(), Role: models.RoleInstructor},
		{UserID: uuid.New(), Role: models.RoleAdmin},
	}
	facts := []models.MembershipFact{
		{},
		{IsEnrolled: true},
		{IsInstructor: true},
		{IsInstructor: true, IsEnrolled: true},
	}

	for _, id := range ids {
		for _, fact := range facts {
			assert.Equal(t, CanRead(id, fact), CanWrite(id, fact))
		}
	}
}
