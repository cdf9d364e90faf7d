// Package override captures and resolves user-submitted HS code corrections.
package override

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
	"github.com/liteapi-travel/hscode-assistant/internal/history"
)

// Label is shown in both name fields of a synthetic override record.
const Label = "User override"

var codePattern = regexp.MustCompile(`\b\d{6,8}\b`)

// Override maps a free-text keyword to the code a user says is correct.
type Override struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Keyword     string    `json:"keyword"`
	CorrectCode string    `json:"correct_hs"`
	CreatedAt   time.Time `json:"created_at"`
}

// New stamps an override with a fresh ID. The keyword is trimmed and
// otherwise kept verbatim.
func New(userID, keyword, code string, now time.Time) Override {
	return Override{
		ID:          uuid.NewString(),
		UserID:      userID,
		Keyword:     strings.TrimSpace(keyword),
		CorrectCode: code,
		CreatedAt:   now.UTC(),
	}
}

// ExtractCode returns the first standalone run of 6 to 8 digits in text.
func ExtractCode(text string) (string, bool) {
	code := codePattern.FindString(text)
	return code, code != ""
}

// HasCode reports whether text contains a standalone 6 to 8 digit run.
func HasCode(text string) bool {
	return codePattern.MatchString(text)
}

// InferTarget picks the question a code is answering: walking turns from
// newest to oldest, the first user turn that carries no code of its own.
// turns must be in creation order.
func InferTarget(turns []history.Turn) (history.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role != history.RoleUser {
			continue
		}
		if strings.TrimSpace(t.Content) == "" || HasCode(t.Content) {
			continue
		}
		return t, true
	}
	return history.Turn{}, false
}

// Capture decides whether text is a correction of an earlier question in
// recent. It returns the override to persist, or false when text holds no
// code or there is no earlier question to attach it to.
func Capture(userID, text string, recent []history.Turn, now time.Time) (Override, bool) {
	code, ok := ExtractCode(text)
	if !ok {
		return Override{}, false
	}

	target, ok := InferTarget(recent)
	if !ok {
		return Override{}, false
	}
	return New(userID, target.Content, code, now), true
}

// Latest returns the newest override stored for exactly keyword. Among
// overrides with the same timestamp the one stored last wins.
func Latest(overrides []Override, keyword string) (Override, bool) {
	var (
		best  Override
		found bool
	)
	for _, o := range overrides {
		if o.Keyword != keyword {
			continue
		}
		if !found || !o.CreatedAt.Before(best.CreatedAt) {
			best, found = o, true
		}
	}
	return best, found
}

// Record builds the synthetic catalog entry that is shown ahead of the
// regular search results.
func Record(o Override) catalog.TariffRecord {
	return catalog.TariffRecord{
		Code:     o.CorrectCode,
		NameEN:   Label,
		NameTH:   Label,
		Override: true,
	}
}
