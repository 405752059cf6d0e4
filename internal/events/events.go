package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tmsbridge/internal/config"
)

// SchemaVersion is stamped on every event.
const SchemaVersion = "1"

// Event types.
const (
	TypeSourceChanged = "source.changed"
	TypeTargetChanged = "target.changed"
	TypeDisassociated = "unit.disassociated"
)

// StatusEvent describes one persisted status change.
type StatusEvent struct {
	ID         string    `json:"id"`
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	DocumentID string    `json:"document_id,omitempty"`
	Locale     string    `json:"locale,omitempty"`
	Status     string    `json:"status"`
	Previous   string    `json:"previous,omitempty"`
	Progress   int       `json:"progress,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits status events.
type Publisher interface {
	Publish(ctx context.Context, events ...StatusEvent) error
	Close() error
}

// NewFromConfig returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewFromConfig(cfg *config.Config) Publisher {
	if cfg == nil || len(cfg.Events.Brokers) == 0 {
		return Noop{}
	}
	return NewKafka(cfg.Events.Brokers, cfg.Events.Topic)
}

func stamp(event *StatusEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = SchemaVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, ...StatusEvent) error { return nil }

func (Noop) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes JSON events keyed by unit identity so all events of one
// unit land on the same partition in order.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafka creates a producer for topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{writer: writer, topic: topic}
}

// NewKafkaWithWriter injects a writer, for tests.
func NewKafkaWithWriter(writer messageWriter, topic string) *Kafka {
	return &Kafka{writer: writer, topic: topic}
}

// Publish writes all events in one batch.
func (k *Kafka) Publish(ctx context.Context, events ...StatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for i := range events {
		event := events[i]
		stamp(&event)
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: k.topic,
			Key:   []byte(event.EntityKind + ":" + event.EntityID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
				{Key: "schema_version", Value: []byte(event.Version)},
			},
			Time: event.Timestamp,
		})
	}
	return k.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Memory keeps published events in memory.
type Memory struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (m *Memory) Publish(_ context.Context, events ...StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range events {
		stamp(&event)
		m.events = append(m.events, event)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusEvent(nil), m.events...)
}

// Statuses lists "type locale status" triples, for compact assertions.
func (m *Memory) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, event := range m.events {
		out = append(out, strings.Join(strings.Fields(event.Type+" "+event.Locale+" "+event.Status), " "))
	}
	return out
}
