package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/enums"
)

// PaymentTransaction records the gateway payment that settled an order. At
// most one exists per link id.
type PaymentTransaction struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	GatewayTransactionID string              `gorm:"column:gateway_transaction_id;not null"`
	Status               enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	AmountCents          int64               `gorm:"column:amount_cents;not null"`
	Installments         int                 `gorm:"column:installments;not null;default:1"`
	LinkID               string              `gorm:"column:link_id;not null;uniqueIndex:ux_payment_transactions_link_id"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
}
