package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzstoatzz/slackbot/internal/api"
	"github.com/zzstoatzz/slackbot/internal/crypto"
	"github.com/zzstoatzz/slackbot/internal/handlers"
	"github.com/zzstoatzz/slackbot/internal/models"
	"github.com/zzstoatzz/slackbot/internal/store"
)

var signingSecret = []byte("test-signing-secret")

type recordingDispatcher struct {
	mu        sync.Mutex
	mentions  []*models.InboundEvent
	reactions []*models.InboundEvent
}

func (d *recordingDispatcher) DispatchMention(ev *models.InboundEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mentions = append(d.mentions, ev)
}

func (d *recordingDispatcher) DispatchReaction(ev *models.InboundEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reactions = append(d.reactions, ev)
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingDispatcher) {
	t.Helper()

	conversations := store.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, conversations.Load(context.Background()))

	dispatcher := &recordingDispatcher{}
	h := handlers.NewHandler(conversations, store.NewMemoryDeduper(), dispatcher, zerolog.Nop())

	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), h, signingSecret))
	t.Cleanup(srv.Close)
	return srv, dispatcher
}

func postSigned(t *testing.T, srv *httptest.Server, body []byte) *http.Response {
	t.Helper()

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", crypto.Sign(signingSecret, ts, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUnsignedRequestRejected(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, dispatcher.mentions)
}

func TestHandshakeEchoesChallenge(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postSigned(t, srv, []byte(`{"type":"url_verification","challenge":"abc123"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "abc123", body["challenge"])
}

func TestMentionAcknowledgedAndDispatched(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	payload := []byte(`{
		"type": "event_callback",
		"event_id": "Ev0001",
		"event": {
			"type": "app_mention",
			"user": "U123",
			"text": "<@U0BOT> hello",
			"channel": "C456",
			"ts": "111.222"
		}
	}`)
	resp := postSigned(t, srv, payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])

	require.Len(t, dispatcher.mentions, 1)
	ev := dispatcher.mentions[0]
	assert.Equal(t, "111.222", ev.ConversationID)
	assert.Equal(t, "C456", ev.ChannelID)
	assert.Equal(t, "hello", ev.Text)
}

func TestRetriedDeliverySuppressed(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	payload := []byte(`{
		"type": "event_callback",
		"event_id": "Ev0002",
		"event": {
			"type": "app_mention",
			"user": "U123",
			"text": "hi",
			"channel": "C456",
			"ts": "1.2"
		}
	}`)

	for i := 0; i < 2; i++ {
		resp := postSigned(t, srv, payload)
		// Retries still get a 200, otherwise Slack keeps retrying.
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Len(t, dispatcher.mentions, 1, "second delivery of the same event_id must not dispatch")
}

func TestReactionDispatched(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	payload := []byte(`{
		"type": "event_callback",
		"event_id": "Ev0003",
		"event": {
			"type": "reaction_added",
			"user": "U123",
			"reaction": "+1",
			"item": {"channel": "C456", "ts": "111.222"}
		}
	}`)
	resp := postSigned(t, srv, payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, dispatcher.reactions, 1)
	assert.Equal(t, "+1", dispatcher.reactions[0].ReactionName)
}

func TestUnknownEventAcknowledged(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	resp := postSigned(t, srv, []byte(`{"type":"event_callback","event":{"type":"message","text":"x"}}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Empty(t, dispatcher.mentions)
	assert.Empty(t, dispatcher.reactions)
}

func TestMentionMissingChannelAcknowledgedNotDispatched(t *testing.T) {
	srv, dispatcher := newTestServer(t)

	payload := []byte(`{
		"type": "event_callback",
		"event": {"type": "app_mention", "text": "hi", "ts": "1.2"}
	}`)
	resp := postSigned(t, srv, payload)
	// Authenticated-but-broken events must never yield a 5xx.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, dispatcher.mentions)
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody(t, resp)
	assert.Equal(t, "healthy", health["status"])
}
