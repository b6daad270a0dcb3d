package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"workfit-event-service-golang/internal/events"
)

type recordingDLQ struct {
	records []events.DeadLetterRecord
	err     error
}

func (d *recordingDLQ) PublishDeadLetter(_ context.Context, rec events.DeadLetterRecord) error {
	if d.err != nil {
		return d.err
	}
	d.records = append(d.records, rec)
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
}

func TestRunWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	handler := func(context.Context, Delivery) error {
		calls++
		return errors.New("db unavailable")
	}
	dlq := &recordingDLQ{}
	d := Delivery{Topic: "user-registration", Partition: 1, Offset: 42, Key: []byte("u1"), Value: []byte(`{"eventId":"e1","eventType":"USER_REGISTERED"}`)}

	if err := RunWithRetry(context.Background(), d, handler, fastPolicy(), dlq); err != nil {
		t.Fatalf("dead-lettered delivery should ack, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("retryable failure should be attempted 3 times, got %d", calls)
	}
	if len(dlq.records) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dlq.records))
	}

	rec := dlq.records[0]
	if rec.RetryCount != 3 {
		t.Fatalf("retry count should record all attempts, got %d", rec.RetryCount)
	}
	if rec.EventID != "e1" || rec.EventType != "USER_REGISTERED" {
		t.Fatalf("envelope header not carried into dead letter: %+v", rec)
	}
	if rec.Topic != "user-registration" || rec.Offset != 42 {
		t.Fatalf("broker coordinates not carried into dead letter: %+v", rec)
	}
	if rec.Reason == "" {
		t.Fatalf("dead letter should carry the failure reason")
	}
}

func TestRunWithRetryFatalSkipsRetries(t *testing.T) {
	calls := 0
	handler := func(context.Context, Delivery) error {
		calls++
		return Fatalf("malformed payload")
	}
	dlq := &recordingDLQ{}

	if err := RunWithRetry(context.Background(), Delivery{Value: []byte("not json")}, handler, fastPolicy(), dlq); err != nil {
		t.Fatalf("fatal delivery should still ack after dead-lettering, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal failure must not retry, got %d calls", calls)
	}
	if len(dlq.records) != 1 || dlq.records[0].RetryCount != 1 {
		t.Fatalf("fatal dead letter should record a single attempt: %+v", dlq.records)
	}
}

func TestRunWithRetryRecoversMidway(t *testing.T) {
	calls := 0
	handler := func(context.Context, Delivery) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}
	dlq := &recordingDLQ{}

	if err := RunWithRetry(context.Background(), Delivery{}, handler, fastPolicy(), dlq); err != nil {
		t.Fatalf("recovered delivery should ack, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected success on 3rd attempt, got %d calls", calls)
	}
	if len(dlq.records) != 0 {
		t.Fatalf("recovered delivery must not dead-letter")
	}
}

func TestRunWithRetryDLQFailureLeavesUnacked(t *testing.T) {
	handler := func(context.Context, Delivery) error {
		return Fatal(errors.New("unknown user"))
	}
	dlq := &recordingDLQ{err: errors.New("broker down")}

	err := RunWithRetry(context.Background(), Delivery{}, handler, fastPolicy(), dlq)
	if err == nil {
		t.Fatalf("failed dead-letter publish must leave the message unacked")
	}
}

func TestRunWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(context.Context, Delivery) error {
		calls++
		cancel()
		return errors.New("transient")
	}
	dlq := &recordingDLQ{}

	err := RunWithRetry(ctx, Delivery{}, handler, RetryPolicy{MaxAttempts: 3, Delay: time.Minute}, dlq)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancelled context must stop further attempts, got %d", calls)
	}
}

func TestIsFatalClassification(t *testing.T) {
	if IsFatal(errors.New("plain")) {
		t.Fatalf("plain errors are retryable")
	}
	if !IsFatal(Fatal(errors.New("broken"))) {
		t.Fatalf("Fatal wrapper should classify terminal")
	}
	wrapped := errors.Join(errors.New("outer"), Fatalf("inner"))
	if !IsFatal(wrapped) {
		t.Fatalf("fatal classification should survive wrapping")
	}
	if Fatal(nil) != nil {
		t.Fatalf("Fatal(nil) should stay nil")
	}
}
