package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
)

// EventOrderConfirmation is the event_type attribute consumers route on.
const EventOrderConfirmation = "order_confirmation"

const defaultTimeout = 10 * time.Second

// Trigger asks the notification service to send an order confirmation.
type Trigger interface {
	OrderConfirmed(ctx context.Context, orderID uuid.UUID) error
}

// Publisher is the subset of a Pub/Sub topic publisher the trigger needs.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult
}

// PublishResult resolves to the server-assigned message id.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

type orderConfirmationMessage struct {
	OrderID string `json:"order_id"`
}

// PubSubTrigger publishes order confirmations to the notifications topic.
type PubSubTrigger struct {
	publisher Publisher
	logg      *logger.Logger
}

// NewPubSubTrigger builds a trigger bound to the notifications topic publisher.
func NewPubSubTrigger(publisher Publisher, logg *logger.Logger) (*PubSubTrigger, error) {
	if publisher == nil {
		return nil, errors.New("notification publisher required")
	}
	return &PubSubTrigger{publisher: publisher, logg: logg}, nil
}

func (t *PubSubTrigger) OrderConfirmed(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return errors.New("order id required")
	}
	data, err := json.Marshal(orderConfirmationMessage{OrderID: orderID.String()})
	if err != nil {
		return err
	}
	result := t.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": EventOrderConfirmation,
			"order_id":   orderID.String(),
		},
	})
	if result == nil {
		return errors.New("publisher returned no result")
	}
	msgID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish order confirmation: %w", err)
	}
	if t.logg != nil {
		logCtx := t.logg.WithOrderID(ctx, orderID)
		t.logg.Debug(t.logg.WithField(logCtx, "message_id", msgID), "order confirmation published")
	}
	return nil
}

// Noop is used when notifications are disabled.
type Noop struct{}

func (Noop) OrderConfirmed(context.Context, uuid.UUID) error { return nil }

// Dispatcher runs triggers off the request path. Notification failure never
// reaches the caller; it is logged and counted.
type Dispatcher struct {
	trigger Trigger
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	timeout time.Duration
}

// NewDispatcher wraps a trigger for fire-and-forget use. A nil trigger
// behaves like Noop.
func NewDispatcher(trigger Trigger, logg *logger.Logger, m *metrics.CheckoutMetrics, timeout time.Duration) *Dispatcher {
	if trigger == nil {
		trigger = Noop{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{trigger: trigger, logg: logg, metrics: m, timeout: timeout}
}

// FireAndForget sends the confirmation in the background on a context
// detached from ctx's cancellation but carrying its log fields. The returned
// channel is closed when the attempt finishes.
func (d *Dispatcher) FireAndForget(ctx context.Context, orderID uuid.UUID) <-chan struct{} {
	done := make(chan struct{})
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		d.send(sendCtx, orderID)
	}()
	return done
}

func (d *Dispatcher) send(ctx context.Context, orderID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, orderID, fmt.Errorf("notification trigger panic: %v", r))
		}
	}()
	if err := d.trigger.OrderConfirmed(ctx, orderID); err != nil {
		d.fail(ctx, orderID, err)
		return
	}
	d.metrics.IncNotification("sent")
}

func (d *Dispatcher) fail(ctx context.Context, orderID uuid.UUID, err error) {
	d.metrics.IncNotification("failed")
	if d.logg == nil {
		return
	}
	d.logg.Error(d.logg.WithOrderID(ctx, orderID), "order confirmation notification failed", err)
}

// NewTopicPublisher adapts a Pub/Sub publisher handle.
func NewTopicPublisher(p *gcppubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &topicPublisher{publisher: p}
}

type topicPublisher struct {
	publisher *gcppubsub.Publisher
}

func (p *topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	return p.publisher.Publish(ctx, msg)
}
