package override

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "123456", want: "123456", ok: true},
		{text: "12345678", want: "12345678", ok: true},
		{text: "ใช้ 65050090 นะ", want: "65050090", ok: true},
		{text: "หมวก650500", want: "650500", ok: true},
		{text: "12345", ok: false},
		{text: "123456789", ok: false},
		{text: "6505.00.90", ok: false},
		{text: "abc123456", ok: false},
		{text: "hat with brim", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractCode(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func turns(now time.Time, pairs ...string) []history.Turn {
	var out []history.Turn
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, history.NewTurn("u1", history.Role(pairs[i]), pairs[i+1], now.Add(time.Duration(i)*time.Second)))
	}
	return out
}

func TestInferTarget(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		turns []history.Turn
		want  string
		ok    bool
	}{
		{
			name:  "question right before the code",
			turns: turns(now, "user", "hat with brim", "assistant", "65050090 ...", "user", "123456"),
			want:  "hat with brim",
			ok:    true,
		},
		{
			name:  "skips earlier numeric user turns",
			turns: turns(now, "user", "coffee", "user", "09012120", "user", "123456"),
			want:  "coffee",
			ok:    true,
		},
		{
			name:  "most recent question wins",
			turns: turns(now, "user", "coffee", "assistant", "ok", "user", "tea", "user", "123456"),
			want:  "tea",
			ok:    true,
		},
		{
			name:  "only numeric turns",
			turns: turns(now, "user", "111111", "user", "123456"),
			ok:    false,
		},
		{
			name:  "assistant text is never a target",
			turns: turns(now, "assistant", "hello", "user", "123456"),
			ok:    false,
		},
		{
			name: "empty history",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferTarget(tt.turns)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Content)
				assert.Equal(t, history.RoleUser, got.Role)
			}
		})
	}
}

func TestCapture(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	recent := turns(now, "user", "hat with brim", "assistant", "answer", "user", "123456")

	o, ok := Capture("u1", "123456", recent, now)
	require.True(t, ok)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "hat with brim", o.Keyword)
	assert.Equal(t, "123456", o.CorrectCode)
	assert.Equal(t, now, o.CreatedAt)
	assert.NotEmpty(t, o.ID)

	_, ok = Capture("u1", "hat", recent, now)
	assert.False(t, ok, "no code in text")

	_, ok = Capture("u1", "123456", turns(now, "user", "123456"), now)
	assert.False(t, ok, "nothing to attach the code to")
}

func TestLatest(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	overrides := []Override{
		{ID: "2", Keyword: "A", CorrectCode: "222222", CreatedAt: t2},
		{ID: "1", Keyword: "A", CorrectCode: "111111", CreatedAt: t1},
		{ID: "3", Keyword: "a", CorrectCode: "333333", CreatedAt: t2.Add(time.Hour)},
		{ID: "4", Keyword: "A hat", CorrectCode: "444444", CreatedAt: t2.Add(time.Hour)},
	}

	got, ok := Latest(overrides, "A")
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)

	_, ok = Latest(overrides, "B")
	assert.False(t, ok)

	tied := []Override{
		{ID: "first", Keyword: "A", CreatedAt: t1},
		{ID: "second", Keyword: "A", CreatedAt: t1},
	}
	got, _ = Latest(tied, "A")
	assert.Equal(t, "second", got.ID)
}

func TestRecord(t *testing.T) {
	r := Record(Override{Keyword: "hat", CorrectCode: "123456"})

	assert.Equal(t, "123456", r.Code)
	assert.Equal(t, Label, r.NameEN)
	assert.Equal(t, Label, r.NameTH)
	assert.True(t, r.Override)
	assert.False(t, r.Duty.Valid)
}
