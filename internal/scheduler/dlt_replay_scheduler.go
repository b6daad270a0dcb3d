package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"workfit-event-service-golang/internal/config"
	"workfit-event-service-golang/internal/events"
	kafkautil "workfit-event-service-golang/internal/kafka"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ReplayConfig struct {
	RunSpec    string `yaml:"run_spec"`    //e.g "@hourly"
	BatchLimit int    `yaml:"batch_limit"` //records per DLT per run
}

// LoadReplayConfig — fallback defaults if not present
func LoadReplayConfig() ReplayConfig {
	cfg := ReplayConfig{
		RunSpec:    "@hourly",
		BatchLimit: 100,
	}
	yamlCfg := config.LoadConfig()
	if yamlCfg.DLTReplaySpec != "" {
		cfg.RunSpec = yamlCfg.DLTReplaySpec
	}
	if yamlCfg.DLTReplayBatchLimit > 0 {
		cfg.BatchLimit = yamlCfg.DLTReplayBatchLimit
	}
	return cfg
}

// StartDLTReplayScheduler periodically drains the dead-letter topics and
// republishes each record to its source topic with the original key, so the
// replay lands on the same partition as the original.
func StartDLTReplayScheduler(topics []string) {
	cfg := LoadReplayConfig()
	meter := otel.Meter("dlt-replay-scheduler")
	runCount, _ := meter.Int64Counter("dlt.replay.run.count")
	replayCount, _ := meter.Int64Counter("dlt.replay.record.count")

	c := cron.New()

	_, err := c.AddFunc(cfg.RunSpec, func() {
		ctx := context.Background()
		start := time.Now()
		log.Printf("[Scheduler] Starting DLT replay batch - cron: %s", cfg.RunSpec)

		total := RunReplayPass(ctx, topics)
		runCount.Add(ctx, 1)
		replayCount.Add(ctx, int64(total),
			metric.WithAttributes(attribute.String("status", "completed")),
		)
		log.Printf("[Scheduler] Completed DLT replay in %s — replayed=%d", time.Since(start), total)
	})
	if err != nil {
		log.Printf("[Scheduler] Failed to schedule DLT replay: %v", err)
		return
	}

	c.Start()
	log.Printf("[Scheduler] DLT replay scheduler initialized — runs at '%s'", cfg.RunSpec)
}

// RunReplayPass drains each topic's DLT once, outside the cron schedule.
// Used by the operational replay endpoint.
func RunReplayPass(ctx context.Context, topics []string) int {
	cfg := LoadReplayConfig()
	total := 0
	for _, topic := range topics {
		count, err := replayOnce(ctx, kafkautil.DLTFor(topic), cfg.BatchLimit)
		if err != nil {
			log.Printf("[Scheduler] replay error on %s: %v", kafkautil.DLTFor(topic), err)
		}
		total += count
	}
	return total
}

func replayOnce(ctx context.Context, dltTopic string, limit int) (int, error) {
	appCfg := config.LoadConfig()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(appCfg.KafkaBroker, ","),
		GroupID:  appCfg.ConsumerGroup + "-dlt-replay",
		Topic:    dltTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer r.Close()

	count := 0
	for count < limit {
		// A short deadline doubles as the "topic is drained" signal.
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		m, err := r.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return count, nil
			}
			return count, err
		}

		rec, err := decodeDeadLetter(m.Value)
		if err != nil {
			// Unreadable records are committed away, there is nothing to replay.
			log.Printf("[Scheduler] skipping unreadable record on %s@%d: %v", dltTopic, m.Offset, err)
			if err := r.CommitMessages(ctx, m); err != nil {
				return count, err
			}
			continue
		}

		if err := republish(ctx, rec); err != nil {
			// Leave the record uncommitted so the next run retries it.
			return count, err
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			return count, err
		}

		log.Printf("[Scheduler] replayed %s event %s back to %s", rec.EventType, rec.EventID, rec.Topic)
		count++
	}
	return count, nil
}

func decodeDeadLetter(value []byte) (events.DeadLetterRecord, error) {
	var rec events.DeadLetterRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return rec, fmt.Errorf("malformed dead-letter record: %w", err)
	}
	if rec.Topic == "" {
		return rec, fmt.Errorf("dead-letter record has no source topic")
	}
	if len(rec.Value) == 0 {
		return rec, fmt.Errorf("dead-letter record has no payload")
	}
	return rec, nil
}

func republish(ctx context.Context, rec events.DeadLetterRecord) error {
	writer, err := kafkautil.GetWriter(rec.Topic)
	if err != nil {
		return fmt.Errorf("replay writer unavailable: %w", err)
	}
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Key),
		Value: rec.Value,
		Time:  time.Now().UTC(),
	})
}
