package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestNewNotifierRequiresLogger(t *testing.T) {
	_, err := NewNotifier(Config{})
	require.Error(t, err)
}

func TestEnabledChannels(t *testing.T) {
	n, err := NewNotifier(Config{
		TelegramBotToken: "token",
		// Chat ID missing: telegram stays inactive.
		SlackWebhookURL: "https://hooks.slack.example/abc",
		Logger:          &mockLogger{},
	})
	require.NoError(t, err)

	channels := n.EnabledChannels()
	assert.False(t, channels["telegram"])
	assert.False(t, channels["discord"])
	assert.True(t, channels["slack"])
}

func TestSendNoChannels(t *testing.T) {
	n, err := NewNotifier(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Empty(t, n.Send(context.Background(), "hello"))
}

func TestSendTelegram(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewNotifier(Config{
		TelegramBotToken: "123:abc",
		TelegramChatID:   "42",
		Logger:           &mockLogger{},
	})
	require.NoError(t, err)
	n.telegramBase = srv.URL

	results := n.Send(context.Background(), "BUY ETHUSDT @ 2000")
	assert.Equal(t, map[string]bool{"telegram": true}, results)
	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotPayload["chat_id"])
	assert.Equal(t, "BUY ETHUSDT @ 2000", gotPayload["text"])
	assert.Equal(t, "HTML", gotPayload["parse_mode"])
}

func TestSendDiscordAccepts204(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewNotifier(Config{DiscordWebhookURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	results := n.Send(context.Background(), "alert")
	assert.Equal(t, map[string]bool{"discord": true}, results)
}

func TestFailedChannelDoesNotAffectOthers(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	n, err := NewNotifier(Config{
		DiscordWebhookURL: badSrv.URL,
		SlackWebhookURL:   okSrv.URL,
		Logger:            &mockLogger{},
	})
	require.NoError(t, err)

	results := n.Send(context.Background(), "alert")
	assert.Equal(t, map[string]bool{"discord": false, "slack": true}, results)
}
