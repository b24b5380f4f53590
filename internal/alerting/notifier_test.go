package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dropwatch/internal/storage"
)

func testNotification() Notification {
	return Notification{
		Alert: storage.PriceAlert{
			MonitorID:     7,
			UserID:        "user-1",
			Severity:      "medium",
			Message:       "Nike Air Max 1 is down 25%: 200.00 -> 150.00",
			CurrentPrice:  decimal.NewFromInt(150),
			PreviousPrice: decimal.NewFromInt(200),
			PercentageOff: 25,
		},
		ProductURL: "https://shop.example.com/p/1",
		StoreName:  "Example Shop",
	}
}

func TestTelegramNotify(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("test-token", "chat-42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got["chat_id"] != "chat-42" {
		t.Errorf("chat_id = %q", got["chat_id"])
	}
	text := got["text"]
	for _, want := range []string{
		"Nike Air Max 1 is down 25%",
		"Was: 200.00",
		"Now: 150.00 (-25%)",
		"Store: Example Shop",
		"https://shop.example.com/p/1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifyAPIStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewTelegramNotifier("bad-token", "chat-42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestTelegramNotifyAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("test-token", "chat-42", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("expected error on ok=false")
	}
}

func TestRenderMessageOmitsEmptyContext(t *testing.T) {
	note := testNotification()
	note.StoreName = ""
	note.ProductURL = ""

	text := renderMessage(note)
	if strings.Contains(text, "Store:") {
		t.Errorf("message should omit empty store:\n%s", text)
	}
	if !strings.HasPrefix(text, "[dropwatch]") {
		t.Errorf("message missing prefix:\n%s", text)
	}
}
