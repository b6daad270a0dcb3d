package producer

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"workfit-event-service-golang/internal/config"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the outbound side of the event bus. Publishing is
// fire-and-forget relative to the triggering request: delivery failures are
// logged, never surfaced to the original caller.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

// KafkaProducer publishes envelopes through async kafka writers. Envelopes
// sharing a key hash to the same partition, which is what gives downstream
// consumers per-entity ordering.
type KafkaProducer struct {
	brokers []string
	writers sync.Map
}

func NewKafkaProducer() *KafkaProducer {
	cfg := config.LoadConfig()
	brokers := strings.Split(cfg.KafkaBroker, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return &KafkaProducer{brokers: brokers}
}

// Publish marshals the event and hands it to the broker without waiting for
// the ack. Completion is observed only in the async callback log.
func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Producer] marshal failed for topic %s key %s: %v", topic, key, err)
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}

	// Async writers return immediately; errors arrive via Completion.
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		log.Printf("[Producer] enqueue failed for topic %s key %s: %v", topic, key, err)
		return err
	}
	return nil
}

func (p *KafkaProducer) writer(topic string) *kafkago.Writer {
	if w, ok := p.writers.Load(topic); ok {
		return w.(*kafkago.Writer)
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				for _, m := range messages {
					log.Printf("[Producer] delivery failed topic=%s key=%s: %v", topic, string(m.Key), err)
				}
				return
			}
			log.Printf("[Producer] delivered %d message(s) to %s", len(messages), topic)
		},
	}

	actual, loaded := p.writers.LoadOrStore(topic, writer)
	if loaded {
		_ = writer.Close()
		return actual.(*kafkago.Writer)
	}
	return writer
}

// Close flushes and closes all writers; call during service shutdown.
func (p *KafkaProducer) Close() {
	p.writers.Range(func(_, value interface{}) bool {
		if w, ok := value.(*kafkago.Writer); ok {
			_ = w.Close()
		}
		return true
	})
}
