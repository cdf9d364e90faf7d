package assistant

import (
	"time"

	"github.com/liteapi-travel/hscode-assistant/internal/advisor"
)

// SourceType is where a message was sent from.
type SourceType string

const (
	SourceUser  SourceType = "user"
	SourceGroup SourceType = "group"
	SourceRoom  SourceType = "room"
)

// Event is an inbound webhook event reduced to what the assistant needs.
type Event struct {
	ID          string
	Kind        string // "message", "follow", ...
	MessageType string // "text", "image", ...
	Text        string
	ReplyToken  string
	Source      SourceType
	UserID      string
	// ChatID is the group or room ID for multi-party sources.
	ChatID     string
	Redelivery bool
}

// IsMultiParty reports whether the event came from a group or room.
func (e Event) IsMultiParty() bool {
	return e.Source == SourceGroup || e.Source == SourceRoom
}

// ConversationKey identifies whose history the event belongs to.
func (e Event) ConversationKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.ChatID
}

// Action is what the assistant did with an event.
type Action string

const (
	ActionIgnored   Action = "ignored"
	ActionDuplicate Action = "duplicate"
	ActionHint      Action = "hint"
	ActionOverride  Action = "override_captured"
	ActionAnswered  Action = "answered"
	ActionFailed    Action = "failed"
)

// Outcome is the observable result of handling one event.
type Outcome struct {
	EventID        string
	UserID         string
	Action         Action
	Keyword        string
	Matches        int
	Reply          string
	AdvisorFailure advisor.FailureReason
	Err            error
	Duration       time.Duration
}

// Failed reports whether the event could not be completed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
