package payloads

import (
	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/enums"
)

// OrderCreatedEvent is emitted when direct checkout materializes an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int64               `json:"total_cents"`
	LineCount     int                 `json:"line_count"`
}

// OrderPaidEvent is emitted when a gateway payment confirmation materializes
// an order.
type OrderPaidEvent struct {
	OrderID              uuid.UUID           `json:"order_id"`
	CustomerID           uuid.UUID           `json:"customer_id"`
	LinkID               string              `json:"link_id"`
	GatewayTransactionID string              `json:"gateway_transaction_id"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method"`
	AmountCents          int64               `json:"amount_cents"`
	Installments         int                 `json:"installments"`
}

// Order returns the order the event describes.
func (e OrderCreatedEvent) Order() uuid.UUID { return e.OrderID }

// Order returns the order the event describes.
func (e OrderPaidEvent) Order() uuid.UUID { return e.OrderID }
