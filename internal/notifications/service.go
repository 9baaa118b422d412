package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"drq/internal/config"
)

const userAgent = "drq/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventEntryFailed Event = "entry_failed"
	EventSweepFailed Event = "sweep_failed"
	EventTest        Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventEntryFailed: cfg.Notifications.EntryFailures,
			EventSweepFailed: cfg.Notifications.SweepFailures,
			EventTest:        true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventEntryFailed:
		queueName := payloadString(payload, "queue", "queue")
		body := fmt.Sprintf("❌ %s entry %s failed after %s attempts",
			queueName, payloadString(payload, "ref", "?"), payloadString(payload, "attempts", "?"))
		if reason := payloadString(payload, "error", ""); reason != "" {
			body += ": " + reason
		}
		return message{
			title:    "drq - Entry Failed",
			body:     body,
			tags:     []string{"drq", queueName, "failed"},
			priority: "high",
		}, true
	case EventSweepFailed:
		body := fmt.Sprintf("⚠️ Venue sync failed; %s pending", payloadString(payload, "remaining", "?"))
		if reason := payloadString(payload, "error", ""); reason != "" {
			body += ": " + reason
		}
		return message{
			title: "drq - Sync Failed",
			body:  body,
			tags:  []string{"drq", "sync", "failed"},
		}, true
	case EventTest:
		return message{
			title:    "drq - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"drq", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key, fallback string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return fallback
	}
	return text
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
