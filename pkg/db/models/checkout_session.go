package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// CheckoutSession bridges checkout-time context to the gateway link id.
// Rows are never updated or deleted.
type CheckoutSession struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LinkID              string                    `gorm:"column:link_id;not null;uniqueIndex:ux_checkout_sessions_link_id"`
	CustomerID          uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null"`
	FreightCarrier      string                    `gorm:"column:freight_carrier;not null"`
	FreightService      string                    `gorm:"column:freight_service;not null"`
	FreightPriceCents   int64                     `gorm:"column:freight_price_cents;not null"`
	FreightLeadTimeDays int                       `gorm:"column:freight_lead_time_days;not null"`
	SubtotalCents       int64                     `gorm:"column:subtotal_cents;not null"`
	TotalCents          int64                     `gorm:"column:total_cents;not null"`
	Installments        types.InstallmentSchedule `gorm:"column:installments;type:jsonb;not null"`
	RedirectURL         string                    `gorm:"column:redirect_url;not null"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
