package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"workfit-event-service-golang/internal/config"
	"workfit-event-service-golang/internal/events"
	kafkautil "workfit-event-service-golang/internal/kafka"

	"github.com/segmentio/kafka-go"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	meter           metric.Meter
	consumedCount   metric.Int64Counter
	deadLetterCount metric.Int64Counter
)

// InitMetrics wires the OpenTelemetry meter provider; call once from main.
func InitMetrics() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("workfit-event-service"),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	meter = otel.Meter("workfit-event-service")
	consumedCount, err = meter.Int64Counter("events.consumed.count")
	if err != nil {
		return fmt.Errorf("failed to create metric counter: %w", err)
	}
	deadLetterCount, err = meter.Int64Counter("events.deadletter.count")
	if err != nil {
		return fmt.Errorf("failed to create metric counter: %w", err)
	}

	log.Println("[OTEL] Metrics initialized for workfit-event-service")
	return nil
}

// Start launches the consumer group for one topic. Concurrency readers join
// the same group, so partitions spread across them while each partition is
// still processed by exactly one reader at a time.
func Start(ctx context.Context, wg *sync.WaitGroup, topic string, handler Handler) {
	cfg := config.LoadConfig()
	policy := RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
	dlq := NewKafkaDLQPublisher(kafkautil.DLTFor(topic))

	for i := 0; i < cfg.ConsumerConcurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runLoop(ctx, worker, topic, handler, policy, dlq, cfg)
		}(i)
	}
	log.Printf("[Consumer] started topic %s with %d worker(s)", topic, cfg.ConsumerConcurrency)
}

func runLoop(ctx context.Context, worker int, topic string, handler Handler, policy RetryPolicy, dlq DLQPublisher, cfg *config.Config) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBroker, ","),
		GroupID:  cfg.ConsumerGroup,
		Topic:    topic,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[Consumer] worker %d for %s shutting down", worker, topic)
				return
			}
			log.Printf("[Consumer] fetch error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		d := Delivery{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
		}

		start := time.Now()
		err = RunWithRetry(ctx, d, handler, policy, dlq)
		if consumedCount != nil {
			consumedCount.Add(ctx, 1, metric.WithAttributes(
				attribute.String("topic", topic),
				attribute.Bool("success", err == nil),
			))
		}
		if err != nil {
			// Unacknowledged on purpose; the broker redelivers after rebalance.
			log.Printf("[Consumer] leaving %s[%d]@%d unacknowledged: %v", d.Topic, d.Partition, d.Offset, err)
			continue
		}

		log.Printf("[Consumer] %s[%d]@%d processed in %s", d.Topic, d.Partition, d.Offset, time.Since(start))

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Printf("[Consumer] commit error on %s: %v", topic, err)
		}
	}
}

// KafkaDLQPublisher publishes dead-letter records through the shared writer
// pool.
type KafkaDLQPublisher struct {
	topic string
}

func NewKafkaDLQPublisher(dltTopic string) *KafkaDLQPublisher {
	return &KafkaDLQPublisher{topic: dltTopic}
}

func (p *KafkaDLQPublisher) PublishDeadLetter(ctx context.Context, rec events.DeadLetterRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	writer, err := kafkautil.GetWriter(p.topic)
	if err != nil {
		return fmt.Errorf("dlq writer unavailable: %w", err)
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Key),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if deadLetterCount != nil {
		deadLetterCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("topic", rec.Topic),
			attribute.String("event.type", rec.EventType),
		))
	}
	return nil
}
