// Package line adapts the LINE Messaging API: webhook parsing and replies.
package line

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when a webhook body does not match its
// signature.
var ErrInvalidSignature = linebot.ErrInvalidSignature

// Parser verifies and decodes webhook requests for one channel.
type Parser struct {
	secret string
}

func NewParser(channelSecret string) *Parser {
	return &Parser{secret: channelSecret}
}

// ParseRequest verifies the request signature and decodes its events.
func (p *Parser) ParseRequest(r *http.Request) ([]assistant.Event, error) {
	events, err := linebot.ParseRequest(p.secret, r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("parse webhook: %w", err)
	}
	return toEvents(events), nil
}

// ParseSigned verifies signature against body and decodes its events. It is
// used when the webhook body arrives through a queue instead of HTTP.
func (p *Parser) ParseSigned(body []byte, signature string) ([]assistant.Event, error) {
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)
	return p.ParseRequest(req)
}

// ParseBody decodes a webhook body without checking its signature.
func ParseBody(body []byte) ([]assistant.Event, error) {
	var payload struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	return toEvents(payload.Events), nil
}

func toEvents(events []*linebot.Event) []assistant.Event {
	out := make([]assistant.Event, 0, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		out = append(out, ToEvent(ev))
	}
	return out
}

// ToEvent reduces an SDK event to an assistant event.
func ToEvent(ev *linebot.Event) assistant.Event {
	out := assistant.Event{
		ID:         ev.WebhookEventID,
		Kind:       string(ev.Type),
		ReplyToken: ev.ReplyToken,
		Redelivery: ev.DeliveryContext.IsRedelivery,
	}

	if src := ev.Source; src != nil {
		out.Source = assistant.SourceType(src.Type)
		out.UserID = src.UserID
		switch src.Type {
		case linebot.EventSourceTypeGroup:
			out.ChatID = src.GroupID
		case linebot.EventSourceTypeRoom:
			out.ChatID = src.RoomID
		}
	}

	switch msg := ev.Message.(type) {
	case nil:
	case *linebot.TextMessage:
		out.MessageType = string(linebot.MessageTypeText)
		out.Text = msg.Text
	case *linebot.ImageMessage:
		out.MessageType = string(linebot.MessageTypeImage)
	case *linebot.StickerMessage:
		out.MessageType = string(linebot.MessageTypeSticker)
	default:
		out.MessageType = "other"
	}

	return out
}
