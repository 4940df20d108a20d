package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/henriqueponts/labstore-sub002/api/responses"
	paymentwebhook "github.com/henriqueponts/labstore-sub002/internal/webhooks/payments"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
)

// DefaultMaxBodyBytes caps webhook bodies at 1 MiB.
const DefaultMaxBodyBytes int64 = 1 << 20

type PaymentWebhookService interface {
	HandleEvent(ctx context.Context, event *gateway.Event) (paymentwebhook.Outcome, error)
}

type paymentWebhookGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type webhookAck struct {
	EventID string                 `json:"event_id"`
	Outcome paymentwebhook.Outcome `json:"outcome"`
}

// PaymentWebhook receives gateway payment notifications. Any non-2xx reply
// makes the gateway redeliver, so only events that were fully handled, or
// are known duplicates, are acknowledged.
func PaymentWebhook(svc PaymentWebhookService, guard paymentWebhookGuard, secret string, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if secret != "" && !gateway.VerifySignature(secret, payload, r.Header.Get(gateway.SignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := gateway.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.Type})
		}

		seen, err := guard.Seen(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			responses.WriteSuccess(w, webhookAck{EventID: event.ID, Outcome: paymentwebhook.OutcomeDuplicate})
			return
		}

		outcome, err := svc.HandleEvent(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := guard.Mark(ctx, event.ID); err != nil && logg != nil {
			logg.Error(ctx, "record webhook guard", err)
		}
		responses.WriteSuccess(w, webhookAck{EventID: event.ID, Outcome: outcome})
	}
}
