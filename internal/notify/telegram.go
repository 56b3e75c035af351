package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender posts journal alerts to a Telegram chat through the Bot API.
type TelegramSender struct {
	sendURL string
	chatID  string
	client  *http.Client
}

// NewTelegramSender builds a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		sendURL: fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, token),
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode"`
	DisableLinkPreview bool   `json:"disable_web_page_preview"`
}

// Send posts the alert via sendMessage, title bolded above the body. Link
// previews are disabled so sync digests citing explorer URLs stay compact.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:             t.chatID,
		Text:               fmt.Sprintf("*%s*\n%s", title, message),
		ParseMode:          "Markdown",
		DisableLinkPreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }
