package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	now := time.Now()
	turns := []Turn{
		NewTurn("u1", RoleUser, "a", now),
		NewTurn("u1", RoleAssistant, "b", now),
		NewTurn("u1", RoleUser, "c", now),
	}

	assert.Len(t, Window(turns, 0), 3)
	assert.Len(t, Window(turns, 5), 3)

	last := Window(turns, 2)
	assert.Equal(t, []string{"b", "c"}, []string{last[0].Content, last[1].Content})
}

func TestNewTurn(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, loc)

	turn := NewTurn("u1", RoleUser, "hat", now)

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, time.UTC, turn.CreatedAt.Location())
	assert.True(t, now.Equal(turn.CreatedAt))
}
