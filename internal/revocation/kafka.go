package revocation

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes revocation events to a Kafka topic so other nodes can
// relay them into their local bus. Events are keyed by invitation id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// Returns nil when brokers or topic are empty (cross-node fan-out disabled).
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit serializes the event as JSON and writes it to the topic.
func (p *KafkaPublisher) Emit(ctx context.Context, ev Event) error {
	if p == nil || p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(ev.SharedAccessID),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Relay reads revocation events from the Kafka reader and republishes each into
// the local bus until ctx is cancelled. Malformed messages are logged and skipped.
func Relay(ctx context.Context, reader *kafka.Reader, bus Bus) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("revocation: kafka read error: %v", err)
			continue
		}
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Printf("revocation: skipping malformed event: %v", err)
			continue
		}
		if ev.Type != EventTypeRevoked || ev.SharedAccessID == "" {
			continue
		}
		if err := bus.Publish(ctx, ev); err != nil {
			log.Printf("revocation: local publish failed: %v", err)
		}
	}
}
