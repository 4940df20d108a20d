package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the customer and the entry point (direct_checkout or
// payment_webhook) behind an event.
type ActorRef struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Source     string    `json:"source,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent as the
// Pub/Sub message body. EventID lets subscribers drop redeliveries.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
