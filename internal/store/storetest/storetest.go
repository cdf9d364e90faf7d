// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
	"github.com/liteapi-travel/hscode-assistant/internal/store"
)

// Run exercises s. Keys are namespaced by t.Name() so backends may be shared
// between runs.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("history round trip", func(t *testing.T) {
		ctx := context.Background()
		user := "u-" + t.Name()
		base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

		for i, role := range []history.Role{history.RoleUser, history.RoleAssistant, history.RoleUser} {
			turn := history.NewTurn(user, role, fmt.Sprintf("turn %d", i), base.Add(time.Duration(i)*time.Second))
			require.NoError(t, s.AppendTurn(ctx, turn))
		}
		last := history.NewTurn(user, history.RoleAssistant, "ตอบกลับ 65050090", base.Add(time.Minute))
		require.NoError(t, s.AppendTurn(ctx, last))

		turns, err := s.LoadHistory(ctx, user, 0)
		require.NoError(t, err)
		require.Len(t, turns, 4)
		assert.Equal(t, "turn 0", turns[0].Content)
		assert.Equal(t, last.ID, turns[3].ID)
		assert.Equal(t, last.Role, turns[3].Role)
		assert.Equal(t, last.Content, turns[3].Content)
		assert.True(t, last.CreatedAt.Equal(turns[3].CreatedAt))

		window, err := s.LoadHistory(ctx, user, 2)
		require.NoError(t, err)
		require.Len(t, window, 2)
		assert.Equal(t, "turn 2", window[0].Content)
		assert.Equal(t, last.Content, window[1].Content)

		other, err := s.LoadHistory(ctx, user+"-other", 0)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("latest override wins", func(t *testing.T) {
		ctx := context.Background()
		keyword := "hat with brim " + t.Name()
		t1 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

		require.NoError(t, s.AddOverride(ctx, override.New("u1", keyword, "222222", t1.Add(time.Hour))))
		require.NoError(t, s.AddOverride(ctx, override.New("u2", keyword, "111111", t1)))
		require.NoError(t, s.AddOverride(ctx, override.New("u3", keyword+" x", "333333", t1.Add(2*time.Hour))))

		o, found, err := s.LatestOverride(ctx, keyword)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "222222", o.CorrectCode)
		assert.Equal(t, "u1", o.UserID)
		assert.Equal(t, keyword, o.Keyword)

		_, found, err = s.LatestOverride(ctx, "no such keyword "+t.Name())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("event dedupe", func(t *testing.T) {
		ctx := context.Background()
		id := "evt-" + t.Name()

		first, err := s.FirstSeen(ctx, id, time.Hour)
		require.NoError(t, err)
		assert.True(t, first)

		first, err = s.FirstSeen(ctx, id, time.Hour)
		require.NoError(t, err)
		assert.False(t, first)
	})
}
