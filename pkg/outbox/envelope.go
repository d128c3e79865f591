package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. Most ledger events are emitted
// by the system itself; manual adjustments carry the operator reference.
type ActorRef struct {
	OperatorID string `json:"operatorId,omitempty"`
	Source     string `json:"source,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
