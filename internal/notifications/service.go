package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"tmsbridge/internal/config"
)

const userAgent = "tmsbridge/1"

// Event names an alert type.
type Event string

const (
	// EventTargetReady fires when a translation awaits a manual download.
	EventTargetReady Event = "target_ready"
	// EventActionFailed fires when an action against the TMS failed.
	EventActionFailed Event = "action_failed"
	// EventTest is sent by the CLI to verify delivery.
	EventTest Event = "test"
)

// Payload carries event fields.
type Payload map[string]any

// Service publishes alerts.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
		ready:    cfg.Notifications.Ready,
		errors:   cfg.Notifications.Errors,
		window:   time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		sent:     map[string]time.Time{},
		now:      time.Now,
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
	ready    bool
	errors   bool
	window   time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil {
		return nil
	}
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	if n.duplicate(string(event), payload) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	unit := payloadString(payload, "unit")
	switch event {
	case EventTargetReady:
		if !n.ready {
			return message{}, false
		}
		return message{
			title: "tmsbridge - Translation Ready",
			body:  fmt.Sprintf("Translation ready: %s [%s]\nDownload required", unit, payloadString(payload, "locale")),
			tags:  []string{"tmsbridge", "target", "ready"},
		}, true
	case EventActionFailed:
		if !n.errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("Error")
		if action := payloadString(payload, "action"); action != "" {
			b.WriteString(" during ")
			b.WriteString(action)
		}
		if unit != "" {
			b.WriteString(" for ")
			b.WriteString(unit)
		}
		if locale := payloadString(payload, "locale"); locale != "" {
			b.WriteString(" [")
			b.WriteString(locale)
			b.WriteString("]")
		}
		b.WriteString(": ")
		if msg := payloadString(payload, "error"); msg != "" {
			b.WriteString(msg)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "tmsbridge - Error",
			body:     b.String(),
			tags:     []string{"tmsbridge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "tmsbridge - Test",
			body:     "Notification system test",
			tags:     []string{"tmsbridge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

// duplicate reports whether the same alert was sent within the window and
// records it otherwise.
func (n *ntfyService) duplicate(event string, payload Payload) bool {
	if n.window <= 0 {
		return false
	}
	key := fingerprint(event, payload)
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, at := range n.sent {
		if now.Sub(at) >= n.window {
			delete(n.sent, k)
		}
	}
	if _, seen := n.sent[key]; seen {
		return true
	}
	n.sent[key] = now
	return false
}

func fingerprint(event string, payload Payload) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(event)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, payload[k])
	}
	return b.String()
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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
