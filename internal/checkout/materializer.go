package checkout

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/internal/cart"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/internal/products"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox/payloads"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// FreightSnapshot is the freight charged on an order.
type FreightSnapshot struct {
	Carrier      string
	Service      string
	PriceCents   int64
	LeadTimeDays int
}

// MaterializeLine is one product quantity to turn into an order line. When
// UnitPriceCents is nil the current catalog price is used.
type MaterializeLine struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents *int64
}

// PaymentRecord describes the gateway payment settling the order.
type PaymentRecord struct {
	GatewayTransactionID string
	Method               enums.PaymentMethod
	AmountCents          int64
	Installments         int
}

// MaterializeInput is everything needed to create an order atomically.
type MaterializeInput struct {
	CustomerID      uuid.UUID
	Status          enums.OrderStatus
	PaymentMethod   enums.PaymentMethod
	Freight         FreightSnapshot
	DeliveryAddress types.Address
	Lines           []MaterializeLine
	LinkID          *string
	Payment         *PaymentRecord
	// RequireActive rejects lines whose product is no longer sellable.
	RequireActive bool
}

// Materializer turns a set of lines into an order, decrementing stock and
// clearing the customer's cart in the caller's transaction. Direct checkout
// and webhook reconciliation both go through it.
type Materializer struct {
	products *products.Repository
	carts    cart.CartRepository
	orders   orders.Repository
	outbox   outboxPublisher
}

// NewMaterializer wires the repositories the materializer writes to.
func NewMaterializer(productRepo *products.Repository, cartRepo cart.CartRepository, ordersRepo orders.Repository, publisher outboxPublisher) (*Materializer, error) {
	if productRepo == nil {
		return nil, errors.New("product repository required")
	}
	if cartRepo == nil {
		return nil, errors.New("cart repository required")
	}
	if ordersRepo == nil {
		return nil, errors.New("orders repository required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &Materializer{products: productRepo, carts: cartRepo, orders: ordersRepo, outbox: publisher}, nil
}

// Materialize must run inside tx. Any error leaves the transaction to be
// rolled back by the caller.
func (m *Materializer) Materialize(ctx context.Context, tx *gorm.DB, in MaterializeInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if in.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if len(in.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "no lines to order")
	}
	if in.Payment != nil && (in.LinkID == nil || *in.LinkID == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment requires a link id")
	}

	productRepo := m.products.WithTx(tx)
	ordersRepo := m.orders.WithTx(tx)

	order := &models.Order{
		ID:                  uuid.New(),
		CustomerID:          in.CustomerID,
		Status:              in.Status,
		PaymentMethod:       in.PaymentMethod,
		FreightCarrier:      in.Freight.Carrier,
		FreightService:      in.Freight.Service,
		FreightPriceCents:   in.Freight.PriceCents,
		FreightLeadTimeDays: in.Freight.LeadTimeDays,
		DeliveryAddress:     in.DeliveryAddress,
		LinkID:              in.LinkID,
	}
	if err := ordersRepo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	var subtotal int64
	for _, line := range sortedLines(in.Lines) {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		product, err := productRepo.LockByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if in.RequireActive && !product.IsActive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available: "+product.Name).
				WithDetails(map[string]any{"product_id": product.ID.String()})
		}
		if product.Stock < line.Quantity {
			return nil, pkgerrors.InsufficientStock(product.ID.String(), product.Name, line.Quantity, product.Stock)
		}

		unit := product.PriceCents
		if line.UnitPriceCents != nil {
			unit = *line.UnitPriceCents
		}
		orderLine := models.OrderLine{
			OrderID:        order.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: unit,
			LineTotalCents: unit * int64(line.Quantity),
		}
		if err := ordersRepo.CreateOrderLine(ctx, &orderLine); err != nil {
			return nil, err
		}
		if err := productRepo.DecrementStock(ctx, product, line.Quantity); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, orderLine)
		subtotal += orderLine.LineTotalCents
	}

	order.SubtotalCents = subtotal
	order.TotalCents = subtotal + in.Freight.PriceCents
	if err := ordersRepo.UpdateTotals(ctx, order.ID, order.SubtotalCents, order.TotalCents); err != nil {
		return nil, err
	}

	if in.Payment != nil {
		installments := in.Payment.Installments
		if installments <= 0 {
			installments = 1
		}
		txn := &models.PaymentTransaction{
			OrderID:              order.ID,
			GatewayTransactionID: in.Payment.GatewayTransactionID,
			Status:               enums.PaymentStatusApproved,
			PaymentMethod:        in.Payment.Method,
			AmountCents:          in.Payment.AmountCents,
			Installments:         installments,
			LinkID:               *in.LinkID,
		}
		if err := ordersRepo.CreatePaymentTransaction(ctx, txn); err != nil {
			return nil, err
		}
		order.Payment = txn
	}

	if _, err := m.carts.WithTx(tx).ClearByCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}

	if err := m.outbox.Emit(ctx, tx, orderEvent(order)); err != nil {
		return nil, err
	}
	return order, nil
}

func orderEvent(order *models.Order) outbox.DomainEvent {
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{CustomerID: order.CustomerID},
	}
	if order.Payment != nil {
		event.EventType = enums.EventOrderPaid
		event.Actor.Source = "payment_webhook"
		event.Data = payloads.OrderPaidEvent{
			OrderID:              order.ID,
			CustomerID:           order.CustomerID,
			LinkID:               order.Payment.LinkID,
			GatewayTransactionID: order.Payment.GatewayTransactionID,
			PaymentMethod:        order.Payment.PaymentMethod,
			AmountCents:          order.Payment.AmountCents,
			Installments:         order.Payment.Installments,
		}
		return event
	}
	event.EventType = enums.EventOrderCreated
	event.Actor.Source = "direct_checkout"
	event.Data = payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalCents:    order.TotalCents,
		LineCount:     len(order.Lines),
	}
	return event
}

// sortedLines orders lines by product id so concurrent checkouts that share
// products always lock rows in the same order.
func sortedLines(lines []MaterializeLine) []MaterializeLine {
	out := make([]MaterializeLine, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out
}
