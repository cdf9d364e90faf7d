// Package hsassistant registers the assistant with the Functions Framework.
//
// Two entry points are exposed:
//   - line-webhook: the LINE webhook over HTTP, processed inline
//   - line-events: webhook bodies relayed through Pub/Sub
package hsassistant

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/liteapi-travel/hscode-assistant/internal/app"
	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/config"
	"github.com/liteapi-travel/hscode-assistant/internal/line"
	"github.com/liteapi-travel/hscode-assistant/internal/logging"
	"github.com/liteapi-travel/hscode-assistant/internal/server"
)

// SignatureAttribute is the Pub/Sub attribute carrying the relayed
// request's X-Line-Signature header.
const SignatureAttribute = "signature"

var (
	setupOnce sync.Once
	shared    *functionRuntime
	setupErr  error
)

func init() {
	functions.HTTP("line-webhook", lineWebhook)
	functions.CloudEvent("line-events", lineEvents)
}

type MessagePublishedData struct {
	Message PubSubMessage `json:"message"`
}

type PubSubMessage struct {
	Data       []byte            `json:"data"`
	Attributes map[string]string `json:"attributes"`
}

type functionRuntime struct {
	app    *app.App
	server *server.Server
}

func newFunctionRuntime(a *app.App) *functionRuntime {
	// The runtime throttles CPU once a response is written.
	return &functionRuntime{
		app:    a,
		server: a.Server(server.Options{Inline: true}),
	}
}

func setup(ctx context.Context) (*functionRuntime, error) {
	setupOnce.Do(func() {
		cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
		if err != nil {
			setupErr = err
			return
		}
		if err := cfg.ValidateLINE(); err != nil {
			setupErr = err
			return
		}

		logger := logging.New(logging.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			ServiceName: "hscode-assistant",
		})

		a, err := app.New(context.WithoutCancel(ctx), cfg, logger, app.Options{})
		if err != nil {
			setupErr = err
			return
		}
		shared = newFunctionRuntime(a)
	})
	return shared, setupErr
}

func lineWebhook(w http.ResponseWriter, r *http.Request) {
	rt, err := setup(r.Context())
	if err != nil {
		http.Error(w, "assistant unavailable", http.StatusInternalServerError)
		return
	}
	rt.server.HandleWebhook(w, r)
}

func lineEvents(ctx context.Context, e event.Event) error {
	rt, err := setup(ctx)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return rt.handleEvent(ctx, e)
}

// handleEvent processes a relayed webhook body. Only an unreadable
// CloudEvent is returned as an error; bad bodies are logged and dropped.
func (rt *functionRuntime) handleEvent(ctx context.Context, e event.Event) error {
	var msg MessagePublishedData
	if err := e.DataAs(&msg); err != nil {
		return fmt.Errorf("event.DataAs: %v", err)
	}

	events, err := rt.parse(msg.Message)
	if err != nil {
		rt.app.Logger.Error().Err(err).Str("cloudevent_id", e.ID()).Msg("Dropping undecodable webhook body")
		return nil
	}

	rt.app.Logger.Info().Int("events", len(events)).Str("cloudevent_id", e.ID()).Msg("Received relayed webhook")
	rt.app.Dispatcher.Dispatch(ctx, events)
	return nil
}

func (rt *functionRuntime) parse(msg PubSubMessage) ([]assistant.Event, error) {
	if sig := msg.Attributes[SignatureAttribute]; sig != "" {
		return rt.app.Parser.ParseSigned(msg.Data, sig)
	}
	return line.ParseBody(msg.Data)
}
