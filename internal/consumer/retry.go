package consumer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"workfit-event-service-golang/internal/events"
)

// Delivery is one fetched message plus its broker coordinates, carried into
// the dead-letter record when processing fails for good.
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler applies one event. A nil return acknowledges the message. Errors
// are classified: wrap with Fatal for terminal failures (malformed payload,
// unknown target entity); anything else is treated as retryable.
type Handler func(ctx context.Context, d Delivery) error

// FatalError marks a failure that retrying cannot fix. The consumer wrapper
// dead-letters it immediately instead of burning retry attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf builds a non-retryable error from a format string.
func Fatalf(format string, args ...interface{}) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err is classified terminal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// RetryPolicy bounds the wrapper's retry behavior. Zero values fall back to
// the defaults below.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultRetryDelay
	}
	return p
}

// DLQPublisher forwards exhausted or fatal deliveries to the topic's
// dead-letter topic.
type DLQPublisher interface {
	PublishDeadLetter(ctx context.Context, rec events.DeadLetterRecord) error
}

// RunWithRetry invokes the handler up to MaxAttempts times for retryable
// failures, with a fixed delay between attempts. Fatal failures and
// exhausted retries produce a DeadLetterRecord. A nil return means the
// original message may be acknowledged; a non-nil return means it must stay
// unacknowledged so the broker redelivers it.
func RunWithRetry(ctx context.Context, d Delivery, handler Handler, policy RetryPolicy, dlq DLQPublisher) error {
	policy = policy.withDefaults()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attempts = attempt
		lastErr = handler(ctx, d)
		if lastErr == nil {
			return nil
		}
		if IsFatal(lastErr) {
			log.Printf("[Consumer] terminal failure on %s[%d]@%d: %v", d.Topic, d.Partition, d.Offset, lastErr)
			break
		}

		log.Printf("[Consumer] attempt %d/%d failed on %s[%d]@%d: %v",
			attempt, policy.MaxAttempts, d.Topic, d.Partition, d.Offset, lastErr)
		if attempt < policy.MaxAttempts {
			select {
			case <-time.After(policy.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	rec := newDeadLetterRecord(d, lastErr, attempts)
	if err := dlq.PublishDeadLetter(ctx, rec); err != nil {
		// Leave the message unacknowledged so it is redelivered; losing it
		// and losing the dead letter at the same time is the one outcome
		// this wrapper must not allow.
		log.Printf("[Consumer] dead-letter publish failed for %s[%d]@%d: %v", d.Topic, d.Partition, d.Offset, err)
		return err
	}

	log.Printf("[Consumer] dead-lettered %s[%d]@%d after %d attempt(s): %v",
		d.Topic, d.Partition, d.Offset, attempts, lastErr)
	return nil
}

func newDeadLetterRecord(d Delivery, cause error, attempts int) events.DeadLetterRecord {
	rec := events.DeadLetterRecord{
		Topic:      d.Topic,
		Partition:  d.Partition,
		Offset:     d.Offset,
		Key:        string(d.Key),
		Value:      append([]byte(nil), d.Value...),
		RetryCount: attempts,
		FailedAt:   time.Now().UTC(),
	}
	if cause != nil {
		rec.Reason = cause.Error()
	}
	if h, err := events.Peek(d.Value); err == nil {
		rec.EventID = h.EventID
		rec.EventType = h.EventType
	}
	return rec
}
