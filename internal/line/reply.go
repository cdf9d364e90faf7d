package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// MaxTextLength is the longest text message LINE accepts, in characters.
const MaxTextLength = 5000

// Config holds Messaging API credentials.
type Config struct {
	ChannelSecret      string
	ChannelAccessToken string
	// Endpoint overrides the API base URL.
	Endpoint   string
	HTTPClient *http.Client
}

// Replier sends text replies through the Messaging API.
type Replier struct {
	client *linebot.Client
}

func NewReplier(cfg Config) (*Replier, error) {
	var opts []linebot.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, linebot.WithEndpointBase(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, linebot.WithHTTPClient(cfg.HTTPClient))
	}

	client, err := linebot.New(cfg.ChannelSecret, cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create line client: %w", err)
	}
	return &Replier{client: client}, nil
}

// Reply answers a reply token with a single text message.
func (r *Replier) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return errors.New("missing reply token")
	}

	_, err := r.client.ReplyMessage(replyToken, linebot.NewTextMessage(Truncate(text, MaxTextLength))).
		WithContext(ctx).
		Do()
	if err != nil {
		var apiErr *linebot.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("line reply api status %d: %w", apiErr.Code, err)
		}
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// Truncate shortens text to at most n characters, marking the cut with an
// ellipsis.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-1]) + "…"
}
