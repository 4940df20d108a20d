package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// PlaceOrderInput is a direct checkout request. DeliveryAddress overrides the
// customer's stored address; Freight is optional.
type PlaceOrderInput struct {
	CustomerID      uuid.UUID
	PaymentMethod   enums.PaymentMethod
	DeliveryAddress *types.Address
	Freight         *FreightChoice
}

// PlaceOrder converts the customer's cart into a PENDING_PAYMENT order. Stock
// is checked and decremented under row locks in one transaction; on any
// failure nothing is written and the cart is untouched.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDuration(metrics.PathDirect, time.Since(started)) }()

	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	lines, err := s.carts.ListLines(ctx, input.CustomerID)
	if err != nil {
		return nil, s.fail(metrics.PathDirect, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart"))
	}
	if len(lines) == 0 {
		return nil, s.fail(metrics.PathDirect, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		return nil, s.fail(metrics.PathDirect, err)
	}
	address, err := resolveAddress(input.DeliveryAddress, customer)
	if err != nil {
		return nil, s.fail(metrics.PathDirect, err)
	}

	var shipping FreightSnapshot
	if input.Freight.isSet() {
		shipping, err = s.quoteFreight(ctx, lines, address.PostalCode, *input.Freight)
		if err != nil {
			return nil, s.fail(metrics.PathDirect, err)
		}
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Re-read inside the transaction so the order reflects the cart as
		// it is when stock is locked.
		current, err := s.carts.WithTx(tx).ListLines(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		materializeLines := make([]MaterializeLine, 0, len(current))
		for _, line := range current {
			materializeLines = append(materializeLines, MaterializeLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		order, err = s.materializer.Materialize(ctx, tx, MaterializeInput{
			CustomerID:      input.CustomerID,
			Status:          enums.OrderStatusPendingPayment,
			PaymentMethod:   input.PaymentMethod,
			Freight:         shipping,
			DeliveryAddress: address,
			Lines:           materializeLines,
			RequireActive:   true,
		})
		return err
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
		}
		return nil, s.fail(metrics.PathDirect, err)
	}

	s.metrics.IncOrder(metrics.PathDirect)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithCustomerID(ctx, input.CustomerID), order.ID)
		s.logg.Info(s.logg.WithField(logCtx, "total_cents", order.TotalCents), "order placed")
	}
	s.notifier.FireAndForget(ctx, order.ID)
	return order, nil
}

func resolveAddress(override *types.Address, customer *models.Customer) (types.Address, error) {
	if override != nil && !override.IsZero() {
		if err := override.Validate(); err != nil {
			return types.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery address")
		}
		return *override, nil
	}
	if customer == nil || customer.Address.IsZero() {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if err := customer.Address.Validate(); err != nil {
		return types.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored address is incomplete")
	}
	return customer.Address, nil
}
