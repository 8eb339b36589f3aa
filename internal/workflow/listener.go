package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// reconnectDelay spaces out dial attempts when the event stream drops.
const reconnectDelay = 5 * time.Second

// Listener subscribes to the orchestration server's event stream and logs
// every event it emits. Purely observational: nothing downstream consumes
// the events.
type Listener struct {
	url    string
	logger zerolog.Logger
}

// NewListener creates a listener for the API at apiURL.
func NewListener(apiURL string, logger zerolog.Logger) *Listener {
	url := strings.TrimRight(apiURL, "/") + "/events/out"
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)

	return &Listener{url: url, logger: logger}
}

// streamEvent is the subset of an event frame we log.
type streamEvent struct {
	Event    string `json:"event"`
	Resource struct {
		ID string `json:"prefect.resource.id"`
	} `json:"resource"`
}

// Run consumes the event stream until ctx is cancelled, reconnecting with
// a delay when the connection drops.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn().Err(err).Msg("event stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.logger.Info().Str("url", l.url).Msg("subscribed to event stream")

	// ReadMessage blocks without a context; closing the connection on
	// cancellation unblocks it.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev streamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			l.logger.Debug().Msg("skipping undecodable event frame")
			continue
		}
		l.logger.Info().
			Str("event", ev.Event).
			Str("resource_id", ev.Resource.ID).
			Msg("workflow event")
	}
}
