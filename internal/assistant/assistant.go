// Package assistant decides how to answer each chat message: record an HS
// code correction, or search the catalog and ask the advisor for an
// explanation.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liteapi-travel/hscode-assistant/internal/advisor"
	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
	"github.com/liteapi-travel/hscode-assistant/internal/store"
)

// Store is the persistence the assistant needs.
type Store interface {
	store.HistoryStore
	store.OverrideStore
}

// Advisor answers a prompt.
type Advisor interface {
	Ask(ctx context.Context, messages []advisor.Message) advisor.Result
}

// Replier sends a text reply for a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Config tunes conversation behaviour.
type Config struct {
	// MentionPrefix must start group and room messages; it is removed from
	// the keyword in every chat.
	MentionPrefix string
	// HistoryWindow caps the turns sent to the advisor. Zero sends all.
	HistoryWindow int
	// MaxPromptRecords caps the matches embedded in the prompt.
	MaxPromptRecords int
	// MaxListed caps the matches listed in the reply.
	MaxListed int
}

// Assistant is the per-event conversation orchestrator.
type Assistant struct {
	catalog *catalog.Catalog
	store   Store
	advisor Advisor
	replier Replier
	cfg     Config
	logger  zerolog.Logger

	now func() time.Time
}

func New(cat *catalog.Catalog, st Store, adv Advisor, replier Replier, cfg Config, logger zerolog.Logger) *Assistant {
	if cfg.MaxPromptRecords <= 0 {
		cfg.MaxPromptRecords = 10
	}
	return &Assistant{
		catalog: cat,
		store:   st,
		advisor: adv,
		replier: replier,
		cfg:     cfg,
		logger:  logger.With().Str("component", "assistant").Logger(),
		now:     time.Now,
	}
}

// Keyword extracts the search keyword from an event. ok is false when the
// event must be ignored.
func (a *Assistant) Keyword(ev Event) (keyword string, ok bool) {
	if ev.Kind != "message" || ev.MessageType != "text" {
		return "", false
	}

	text := ev.Text
	prefix := a.cfg.MentionPrefix
	if ev.IsMultiParty() && prefix != "" && !strings.HasPrefix(text, prefix) {
		return "", false
	}
	if prefix != "" {
		text = strings.Replace(text, prefix, "", 1)
	}
	return strings.TrimSpace(text), true
}

// Lookup searches the catalog and puts the newest override for keyword, if
// any, in front of the matches.
func (a *Assistant) Lookup(ctx context.Context, keyword string) []catalog.TariffRecord {
	matches := a.catalog.Search(keyword)

	o, found, err := a.store.LatestOverride(ctx, keyword)
	if err != nil {
		a.logger.Error().Err(err).Str("keyword", keyword).Msg("Failed to resolve override")
		return matches
	}
	if !found {
		return matches
	}

	out := make([]catalog.TariffRecord, 0, len(matches)+1)
	out = append(out, override.Record(o))
	return append(out, matches...)
}

// Handle runs one event to completion and reports what happened. Only a
// failed reply is reported as an error; persistence and advisor failures
// are logged and degrade the reply instead.
func (a *Assistant) Handle(ctx context.Context, ev Event) Outcome {
	out := Outcome{EventID: ev.ID, UserID: ev.UserID, Action: ActionIgnored}

	keyword, ok := a.Keyword(ev)
	if !ok {
		return out
	}
	out.Keyword = keyword

	logger := a.logger.With().
		Str("event_id", ev.ID).
		Str("user_id", ev.UserID).
		Str("keyword", keyword).
		Logger()

	if keyword == "" {
		out.Action = ActionHint
		out.Reply = HintText
		out.Err = a.send(ctx, ev, out.Reply)
		return out
	}

	convo := ev.ConversationKey()
	a.appendTurn(ctx, logger, history.NewTurn(convo, history.RoleUser, keyword, a.now()))

	recent, err := a.store.LoadHistory(ctx, convo, a.cfg.HistoryWindow)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load history")
		recent = []history.Turn{history.NewTurn(convo, history.RoleUser, keyword, a.now())}
	}

	if o, ok := override.Capture(convo, keyword, recent, a.now()); ok {
		if err := a.store.AddOverride(ctx, o); err != nil {
			logger.Error().Err(err).Msg("Failed to store override")
		} else {
			logger.Info().Str("override_keyword", o.Keyword).Str("code", o.CorrectCode).Msg("Stored override")
		}
		out.Action = ActionOverride
		out.Reply = ConfirmationText(o.Keyword, o.CorrectCode)
		out.Err = a.send(ctx, ev, out.Reply)
		return out
	}

	matches := a.Lookup(ctx, keyword)
	out.Matches = len(matches)
	logger.Info().Int("matches", len(matches)).Msg("Searched catalog")

	messages := a.promptMessages(recent, BuildPrompt(keyword, matches, a.cfg.MaxPromptRecords))
	res := a.advisor.Ask(ctx, messages)

	aiBlock := res.Text
	if res.OK() {
		a.appendTurn(ctx, logger, history.NewTurn(convo, history.RoleAssistant, res.Text, a.now()))
	} else {
		out.AdvisorFailure = res.Failure
		aiBlock = FallbackText
	}

	out.Action = ActionAnswered
	out.Reply = ComposeReply(CatalogBlock(matches, a.cfg.MaxListed), aiBlock)
	out.Err = a.send(ctx, ev, out.Reply)
	return out
}

func (a *Assistant) promptMessages(recent []history.Turn, prompt string) []advisor.Message {
	messages := make([]advisor.Message, 0, len(recent)+2)
	messages = append(messages, advisor.Message{Role: advisor.RoleSystem, Content: systemPrompt})
	for _, t := range recent {
		role := advisor.RoleUser
		if t.Role == history.RoleAssistant {
			role = advisor.RoleAssistant
		}
		messages = append(messages, advisor.Message{Role: role, Content: t.Content})
	}
	return append(messages, advisor.Message{Role: advisor.RoleUser, Content: prompt})
}

func (a *Assistant) appendTurn(ctx context.Context, logger zerolog.Logger, turn history.Turn) {
	if err := a.store.AppendTurn(ctx, turn); err != nil {
		logger.Error().Err(err).Str("role", string(turn.Role)).Msg("Failed to record turn")
	}
}

func (a *Assistant) send(ctx context.Context, ev Event, text string) error {
	if err := a.replier.Reply(ctx, ev.ReplyToken, text); err != nil {
		return fmt.Errorf("reply to event %s: %w", ev.ID, err)
	}
	return nil
}
