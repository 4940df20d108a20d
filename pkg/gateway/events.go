package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
)

// EventPaymentSucceeded is the only event type that materializes orders.
const EventPaymentSucceeded = "payment.succeeded"

// MaxInstallments is the longest plan a link may offer. The validate tag on
// EventData.Installments and the payment_transactions CHECK use the same bound.
const MaxInstallments = 12

// Event is a payment notification delivered to the webhook endpoint.
type Event struct {
	ID        string    `json:"id" validate:"required"`
	Type      string    `json:"type" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData is the payment that a link produced.
type EventData struct {
	LinkID        string            `json:"link_id" validate:"required"`
	TransactionID string            `json:"transaction_id" validate:"required"`
	PaymentMethod string            `json:"payment_method" validate:"required"`
	Amount        decimal.Decimal   `json:"amount"`
	Installments  int               `json:"installments" validate:"gte=0,lte=12"`
	Metadata      map[string]string `json:"metadata"`
	Items         []EventItem       `json:"items" validate:"dive"`
}

// EventItem is a purchased line. Amount is the line total.
type EventItem struct {
	Name     string            `json:"name"`
	Quantity int               `json:"quantity" validate:"gt=0"`
	Amount   decimal.Decimal   `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// ProductID returns the catalog product id carried in the item metadata.
func (i EventItem) ProductID() string {
	return strings.TrimSpace(i.Metadata["product_id"])
}

// CustomerID returns the customer id carried in the payment metadata.
func (d EventData) CustomerID() string {
	return strings.TrimSpace(d.Metadata["customer_id"])
}

var eventValidator = validator.New()

// ParseEvent decodes and shape-checks a webhook body. Any failure is a
// VALIDATION_ERROR so the caller can reject it before side effects.
func ParseEvent(body []byte) (*Event, error) {
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook body is empty")
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook body is not valid json")
	}
	if err := eventValidator.Struct(event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook event is malformed").
			WithDetails(validationDetails(err))
	}
	if event.Type == EventPaymentSucceeded {
		if len(event.Data.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment event has no items")
		}
		if event.Data.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount is negative")
		}
	}
	return &event, nil
}

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return details
	}
	for _, fe := range verrs {
		details[fe.Namespace()] = fmt.Sprintf("failed %s", fe.Tag())
	}
	return details
}
