package scheduler

import (
	"encoding/json"
	"testing"
	"time"

	"workfit-event-service-golang/internal/events"
)

func TestDecodeDeadLetterRoundTrip(t *testing.T) {
	rec := events.DeadLetterRecord{
		EventID:    "e1",
		EventType:  "USER_REGISTERED",
		Topic:      "user-registration",
		Partition:  2,
		Offset:     99,
		Key:        "u1",
		Value:      json.RawMessage(`{"eventId":"e1"}`),
		Reason:     "user store down",
		RetryCount: 3,
		FailedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodeDeadLetter(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Topic != "user-registration" || got.Key != "u1" {
		t.Fatalf("replay target lost: %+v", got)
	}
	if string(got.Value) != `{"eventId":"e1"}` {
		t.Fatalf("original payload must replay unchanged, got %s", got.Value)
	}
}

func TestDecodeDeadLetterRejectsUnusable(t *testing.T) {
	if _, err := decodeDeadLetter([]byte("not json")); err == nil {
		t.Fatalf("malformed record must be rejected")
	}
	if _, err := decodeDeadLetter([]byte(`{"value":{"x":1}}`)); err == nil {
		t.Fatalf("record without source topic cannot replay")
	}
	if _, err := decodeDeadLetter([]byte(`{"topic":"user-registration"}`)); err == nil {
		t.Fatalf("record without payload cannot replay")
	}
}

func TestLoadReplayConfigDefaults(t *testing.T) {
	cfg := LoadReplayConfig()
	if cfg.RunSpec == "" {
		t.Fatalf("run spec must have a default")
	}
	if cfg.BatchLimit <= 0 {
		t.Fatalf("batch limit must have a positive default")
	}
}
