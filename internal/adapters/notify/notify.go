// Package notify delivers alert messages to Telegram, Discord and Slack.
// Channels are independent: a failing webhook is reported per channel and
// never fails the caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cryptoSignalBot/internal/ports"
)

// Config holds the channel credentials. A channel is active only when all of
// its fields are set; an empty Config yields a notifier with no channels.
type Config struct {
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
	SlackWebhookURL   string
	Logger            ports.Logger
}

// Notifier implements ports.Notifier over HTTP webhooks.
type Notifier struct {
	cfg    Config
	logger ports.Logger
	client *http.Client

	// Overridable in tests.
	telegramBase string
}

// NewNotifier creates a multi-channel notifier.
func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for notifier: %w", ports.ErrConfigurationError)
	}
	return &Notifier{
		cfg:          cfg,
		logger:       cfg.Logger,
		client:       &http.Client{Timeout: 10 * time.Second},
		telegramBase: "https://api.telegram.org",
	}, nil
}

// EnabledChannels lists the configured channels and whether each is active.
func (n *Notifier) EnabledChannels() map[string]bool {
	return map[string]bool{
		"telegram": n.cfg.TelegramBotToken != "" && n.cfg.TelegramChatID != "",
		"discord":  n.cfg.DiscordWebhookURL != "",
		"slack":    n.cfg.SlackWebhookURL != "",
	}
}

// Send delivers the message to every active channel and reports per-channel
// success. Inactive channels are omitted from the result.
func (n *Notifier) Send(ctx context.Context, message string) map[string]bool {
	results := make(map[string]bool)
	for channel, enabled := range n.EnabledChannels() {
		if !enabled {
			continue
		}
		var err error
		switch channel {
		case "telegram":
			err = n.sendTelegram(ctx, message)
		case "discord":
			err = n.sendDiscord(ctx, message)
		case "slack":
			err = n.sendSlack(ctx, message)
		}
		if err != nil {
			n.logger.Warn(ctx, "Notification delivery failed", map[string]interface{}{"channel": channel, "error": err.Error()})
			results[channel] = false
			continue
		}
		results[channel] = true
	}
	return results
}

func (n *Notifier) sendTelegram(ctx context.Context, message string) error {
	payload := map[string]interface{}{
		"chat_id":    n.cfg.TelegramChatID,
		"text":       message,
		"parse_mode": "HTML",
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.telegramBase, n.cfg.TelegramBotToken)
	return n.post(ctx, url, payload, http.StatusOK)
}

func (n *Notifier) sendDiscord(ctx context.Context, message string) error {
	// Discord webhooks answer 204 No Content on success.
	return n.post(ctx, n.cfg.DiscordWebhookURL, map[string]interface{}{"content": message}, http.StatusOK, http.StatusNoContent)
}

func (n *Notifier) sendSlack(ctx context.Context, message string) error {
	return n.post(ctx, n.cfg.SlackWebhookURL, map[string]interface{}{"text": message}, http.StatusOK)
}

func (n *Notifier) post(ctx context.Context, url string, payload map[string]interface{}, okStatuses ...int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	for _, s := range okStatuses {
		if resp.StatusCode == s {
			return nil
		}
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
