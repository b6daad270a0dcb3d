package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Header is the common envelope prefix shared by every event published to the
// bus. A published event is immutable fact; corrections are new events.
type Header struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeader builds an envelope header for the given event type.
func NewHeader(eventType string) Header {
	return Header{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Peek decodes only the envelope header from a raw message so consumers can
// route on eventType before committing to a full decode. Unknown fields are
// ignored for forward compatibility.
func Peek(raw []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}
