package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// Order is a materialized purchase. LinkID is set for orders created from a
// gateway checkout session and is unique when present.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	FreightCarrier      string              `gorm:"column:freight_carrier;not null;default:''"`
	FreightService      string              `gorm:"column:freight_service;not null;default:''"`
	FreightPriceCents   int64               `gorm:"column:freight_price_cents;not null;default:0"`
	FreightLeadTimeDays int                 `gorm:"column:freight_lead_time_days;not null;default:0"`
	DeliveryAddress     types.Address       `gorm:"column:delivery_address;type:jsonb;not null"`
	SubtotalCents       int64               `gorm:"column:subtotal_cents;not null;default:0"`
	TotalCents          int64               `gorm:"column:total_cents;not null;default:0"`
	LinkID              *string             `gorm:"column:link_id;uniqueIndex:ux_orders_link_id"`
	Lines               []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment             *PaymentTransaction `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine snapshots the unit price at purchase time.
type OrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
