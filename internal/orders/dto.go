package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	"github.com/henriqueponts/labstore-sub002/pkg/pagination"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// LinkStatus is the answer to "did my payment link turn into an order yet".
type LinkStatus struct {
	LinkID  string            `json:"link_id"`
	Status  enums.OrderStatus `json:"status"`
	OrderID *uuid.UUID        `json:"order_id,omitempty"`
}

// OrderLineDTO is an order line as returned to the owner.
type OrderLineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// PaymentDTO summarizes the settling transaction.
type PaymentDTO struct {
	GatewayTransactionID string              `json:"gateway_transaction_id"`
	Status               enums.PaymentStatus `json:"status"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method"`
	AmountCents          int64               `json:"amount_cents"`
	Installments         int                 `json:"installments"`
}

// OrderDTO is the order detail view.
type OrderDTO struct {
	ID                  uuid.UUID           `json:"id"`
	Status              enums.OrderStatus   `json:"status"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	FreightCarrier      string              `json:"freight_carrier,omitempty"`
	FreightService      string              `json:"freight_service,omitempty"`
	FreightPriceCents   int64               `json:"freight_price_cents"`
	FreightLeadTimeDays int                 `json:"freight_lead_time_days"`
	DeliveryAddress     types.Address       `json:"delivery_address"`
	SubtotalCents       int64               `json:"subtotal_cents"`
	TotalCents          int64               `json:"total_cents"`
	LinkID              *string             `json:"link_id,omitempty"`
	Lines               []OrderLineDTO      `json:"lines"`
	Payment             *PaymentDTO         `json:"payment,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// OrderSummary is a list entry.
type OrderSummary struct {
	ID         uuid.UUID         `json:"id"`
	Status     enums.OrderStatus `json:"status"`
	TotalCents int64             `json:"total_cents"`
	ItemCount  int               `json:"item_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

// OrderList is one page of a customer's orders.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ToOrderDTO maps an order with its lines and payment to the detail view.
func ToOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:                  order.ID,
		Status:              order.Status,
		PaymentMethod:       order.PaymentMethod,
		FreightCarrier:      order.FreightCarrier,
		FreightService:      order.FreightService,
		FreightPriceCents:   order.FreightPriceCents,
		FreightLeadTimeDays: order.FreightLeadTimeDays,
		DeliveryAddress:     order.DeliveryAddress,
		SubtotalCents:       order.SubtotalCents,
		TotalCents:          order.TotalCents,
		LinkID:              order.LinkID,
		Lines:               make([]OrderLineDTO, 0, len(order.Lines)),
		CreatedAt:           order.CreatedAt,
	}
	for _, line := range order.Lines {
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		})
	}
	if p := order.Payment; p != nil {
		dto.Payment = &PaymentDTO{
			GatewayTransactionID: p.GatewayTransactionID,
			Status:               p.Status,
			PaymentMethod:        p.PaymentMethod,
			AmountCents:          p.AmountCents,
			Installments:         p.Installments,
		}
	}
	return dto
}

func toOrderList(rows []models.Order, limit int) *OrderList {
	limit = pagination.NormalizeLimit(limit)
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		items := 0
		for _, line := range row.Lines {
			items += line.Quantity
		}
		list.Orders = append(list.Orders, OrderSummary{
			ID:         row.ID,
			Status:     row.Status,
			TotalCents: row.TotalCents,
			ItemCount:  items,
			CreatedAt:  row.CreatedAt,
		})
	}
	return list
}
