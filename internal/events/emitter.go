package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/metrics"
)

// Emitter publishes a payload to a topic. Implementations do not wait for
// downstream consumers.
type Emitter interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// KafkaEmitter writes JSON messages to Kafka asynchronously. Emit returns
// once the message is queued; delivery failures are logged and counted.
type KafkaEmitter struct {
	writer *kafka.Writer
}

var _ Emitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter builds an emitter over brokers; logger may be nil.
func NewKafkaEmitter(brokers []string, logger *logrus.Entry) *KafkaEmitter {
	return &KafkaEmitter{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		Completion:             deliveryReporter(logger),
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// deliveryReporter handles the outcome of an async batch.
func deliveryReporter(logger *logrus.Entry) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, msg := range messages {
			metrics.Get().Emits.WithLabelValues(msg.Topic, metrics.ResultUndelivered).Inc()
			if logger != nil {
				logger.WithError(err).WithField("topic", msg.Topic).Error("kafka delivery failed")
			}
		}
	}
}

func (k *KafkaEmitter) Emit(ctx context.Context, topic string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Value: value}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (k *KafkaEmitter) Close() error {
	return k.writer.Close()
}

// Message is one emitted payload held by MemoryEmitter.
type Message struct {
	Topic   string
	Payload json.RawMessage
}

// MemoryEmitter keeps emitted messages in process for inspection in tests.
type MemoryEmitter struct {
	mu       sync.Mutex
	messages []Message
	logger   *logrus.Entry
}

var _ Emitter = (*MemoryEmitter)(nil)

// NewMemoryEmitter builds a MemoryEmitter; logger may be nil.
func NewMemoryEmitter(logger *logrus.Entry) *MemoryEmitter {
	return &MemoryEmitter{logger: logger}
}

func (m *MemoryEmitter) Emit(_ context.Context, topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	m.mu.Lock()
	m.messages = append(m.messages, Message{Topic: topic, Payload: raw})
	m.mu.Unlock()
	if m.logger != nil {
		m.logger.WithField("topic", topic).Debug("event emitted")
	}
	return nil
}

// Messages returns a copy of everything emitted so far.
func (m *MemoryEmitter) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Topics returns the topic of every emitted message in order.
func (m *MemoryEmitter) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		topics = append(topics, msg.Topic)
	}
	return topics
}
