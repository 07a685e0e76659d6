package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stocktrack-api/internal/model"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers alerts to a chat via the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram channel. Returns nil when the
// bot token or chat id is missing so the channel stays disabled.
func NewTelegramNotifier(botToken, chatID string, timeout time.Duration) Notifier {
	if botToken == "" || chatID == "" {
		return nil
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPIBase,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Notifier.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// Send posts a formatted HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, alert model.OutboundAlert) error {
	text := fmt.Sprintf(
		"🔔 <b>OUTBOUND REQUEST - APPROVAL NEEDED</b>\n\n"+
			"📦 <b>Item:</b> %s\n"+
			"📊 <b>Quantity:</b> %d\n"+
			"📝 <b>Notes:</b> %s\n"+
			"👤 <b>Requested By:</b> %s\n"+
			"⏰ <b>Time:</b> %s\n"+
			"🆔 <b>ID:</b> <code>%s</code>\n\n"+
			"<i>Please check the system for approval</i>",
		alert.ItemName, alert.Quantity, alert.Notes, alert.CreatedBy,
		alert.CreatedAt.Format("2006-01-02 15:04:05"), alert.RequestID)

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Ensure TelegramNotifier implements Notifier
var _ Notifier = (*TelegramNotifier)(nil)
