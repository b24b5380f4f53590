package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dropwatch/internal/storage"
)

// Notification carries a price alert plus the item context worth rendering.
type Notification struct {
	Alert      storage.PriceAlert
	ProductURL string
	StoreName  string
}

// Notifier delivers price-drop notifications to an external channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with a rendered drop summary.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Int64("monitor_id", note.Alert.MonitorID).
		Str("severity", note.Alert.Severity).
		Msg("price alert dispatched")
	return nil
}

func renderMessage(note Notification) string {
	alert := note.Alert
	builder := strings.Builder{}
	builder.WriteString("[dropwatch]\n")
	builder.WriteString(alert.Message)
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Was: %s\n", alert.PreviousPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Now: %s (-%d%%)\n", alert.CurrentPrice.StringFixed(2), alert.PercentageOff))
	if note.StoreName != "" {
		builder.WriteString(fmt.Sprintf("Store: %s\n", note.StoreName))
	}
	if note.ProductURL != "" {
		builder.WriteString(note.ProductURL)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
