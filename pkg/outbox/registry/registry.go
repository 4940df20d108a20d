// Package registry maps outbox event types to their Pub/Sub topic and payload
// schema so the publisher can reject malformed rows before sending them.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox/payloads"
)

// OrderPayload is implemented by every order event payload.
type OrderPayload interface {
	Order() uuid.UUID
}

// ResolvedEvent is a validated outbox row ready to publish.
type ResolvedEvent struct {
	EventType enums.OutboxEventType
	Topic     string
	Envelope  outbox.PayloadEnvelope
	Payload   OrderPayload
}

type route struct {
	aggregate enums.OutboxAggregateType
	topic     string
	decode    func(json.RawMessage) (OrderPayload, error)
}

// EventRegistry knows every event type the publisher may send.
type EventRegistry struct {
	routes map[enums.OutboxEventType]route
}

// PermanentError marks a row that no amount of retrying will publish.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent outbox error"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(format string, args ...any) error {
	return PermanentError{Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}

// NewEventRegistry routes both order events to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	return &EventRegistry{routes: map[enums.OutboxEventType]route{
		enums.EventOrderCreated: {
			aggregate: enums.AggregateOrder,
			topic:     cfg.OrdersTopic,
			decode:    decodeAs[payloads.OrderCreatedEvent],
		},
		enums.EventOrderPaid: {
			aggregate: enums.AggregateOrder,
			topic:     cfg.OrdersTopic,
			decode:    decodeAs[payloads.OrderPaidEvent],
		},
	}}, nil
}

func decodeAs[T OrderPayload](data json.RawMessage) (OrderPayload, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is permanent.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[row.EventType]
	if !ok {
		return nil, Permanent("unsupported event type %s", row.EventType)
	}
	if rt.aggregate != row.AggregateType {
		return nil, Permanent("aggregate mismatch: expected %s got %s", rt.aggregate, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return nil, Permanent("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, Permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent("payload missing for %s", row.EventType)
	}

	payload, err := rt.decode(envelope.Data)
	if err != nil {
		return nil, Permanent("decode %s payload: %w", row.EventType, err)
	}
	if payload.Order() != row.AggregateID {
		return nil, Permanent("payload order %s does not match aggregate %s", payload.Order(), row.AggregateID)
	}

	return &ResolvedEvent{
		EventType: row.EventType,
		Topic:     rt.topic,
		Envelope:  envelope,
		Payload:   payload,
	}, nil
}
