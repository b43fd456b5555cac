package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type recorder struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (r *recorder) Dispatch(_ context.Context, u tgbotapi.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func newServer(db Pinger, secret string) (*Server, *recorder) {
	rec := &recorder{}
	return New(context.Background(), Config{Secret: secret}, db, rec, zap.NewNop()), rec
}

func do(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newServer(pinger{}, "")
	w := do(s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	s, _ = newServer(pinger{err: errors.New("db gone")}, "")
	w = do(s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

const update = `{"update_id": 7, "message": {"message_id": 1, "date": 0,
	"from": {"id": 42, "is_bot": false, "first_name": "Ann"},
	"chat": {"id": 42, "type": "private"}, "text": "/start",
	"entities": [{"type": "bot_command", "offset": 0, "length": 6}]}}`

func TestWebhook(t *testing.T) {
	s, rec := newServer(pinger{}, "s3cret")

	w := do(s, http.MethodPost, WebhookPath, update, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodPost, WebhookPath, update, map[string]string{SecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, rec.updates)

	w = do(s, http.MethodPost, WebhookPath, update, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.updates, 1)
	assert.Equal(t, 7, rec.updates[0].UpdateID)
	assert.Equal(t, int64(42), rec.updates[0].Message.From.ID)
	assert.True(t, rec.updates[0].Message.IsCommand())
}

func TestWebhookWithoutSecret(t *testing.T) {
	s, rec := newServer(pinger{}, "")
	w := do(s, http.MethodPost, WebhookPath, update, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.updates, 1)

	w = do(s, http.MethodPost, WebhookPath, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, rec.updates, 1)
}
