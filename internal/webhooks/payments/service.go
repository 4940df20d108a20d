// Package paymentwebhook turns confirmed gateway payments into paid orders.
package paymentwebhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/internal/checkout"
	"github.com/henriqueponts/labstore-sub002/internal/customers"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/internal/products"
	"github.com/henriqueponts/labstore-sub002/pkg/db"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
)

// Outcome is how an event was settled. Every outcome is acknowledged to the
// gateway; only errors trigger a redelivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionFinder interface {
	FindByLinkID(ctx context.Context, linkID string) (*models.CheckoutSession, error)
}

type materializer interface {
	Materialize(ctx context.Context, tx *gorm.DB, in checkout.MaterializeInput) (*models.Order, error)
}

type notifier interface {
	FireAndForget(ctx context.Context, orderID uuid.UUID) <-chan struct{}
}

type ServiceParams struct {
	Tx           txRunner
	Orders       orders.Repository
	Customers    *customers.Repository
	Products     *products.Repository
	Sessions     sessionFinder
	Materializer materializer
	Notifier     notifier
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

type Service struct {
	tx           txRunner
	orders       orders.Repository
	customers    *customers.Repository
	products     *products.Repository
	sessions     sessionFinder
	materializer materializer
	notifier     notifier
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers repo required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repo required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session finder required")
	}
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order materializer required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	return &Service{
		tx:           params.Tx,
		orders:       params.Orders,
		customers:    params.Customers,
		products:     params.Products,
		sessions:     params.Sessions,
		materializer: params.Materializer,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// HandleEvent reconciles one gateway event. A payment that already produced
// an order, whether found up front or lost to a concurrent delivery at
// commit, is reported as OutcomeDuplicate.
func (s *Service) HandleEvent(ctx context.Context, event *gateway.Event) (Outcome, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDuration(metrics.PathWebhook, time.Since(started)) }()

	if event == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	if event.Type != gateway.EventPaymentSucceeded {
		s.metrics.IncWebhookEvent(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	linkID := strings.TrimSpace(event.Data.LinkID)
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithLinkID(s.logg.WithField(ctx, "event_id", event.ID), linkID)
	}

	var (
		order     *models.Order
		duplicate bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.orders.WithTx(tx).FindPaymentByLinkID(ctx, linkID)
		if err != nil {
			return err
		}
		if existing != nil {
			duplicate = true
			return nil
		}

		input, err := s.buildInput(logCtx, tx, event)
		if err != nil {
			return err
		}
		order, err = s.materializer.Materialize(ctx, tx, input)
		return err
	})
	if err != nil {
		if isLinkConflict(err) {
			duplicate = true
		} else {
			s.fail(logCtx, err)
			return "", err
		}
	}
	if duplicate {
		s.metrics.IncWebhookEvent(string(OutcomeDuplicate))
		if s.logg != nil {
			s.logg.Info(logCtx, "payment already reconciled")
		}
		return OutcomeDuplicate, nil
	}

	s.metrics.IncOrder(metrics.PathWebhook)
	s.metrics.IncWebhookEvent(string(OutcomeProcessed))
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(logCtx, order.ID), "paid order materialized")
	}
	s.notifier.FireAndForget(ctx, order.ID)
	return OutcomeProcessed, nil
}

func (s *Service) buildInput(ctx context.Context, tx *gorm.DB, event *gateway.Event) (checkout.MaterializeInput, error) {
	data := event.Data
	linkID := strings.TrimSpace(data.LinkID)

	customerID, err := uuid.Parse(data.CustomerID())
	if err != nil {
		return checkout.MaterializeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment metadata lacks a valid customer_id")
	}
	customer, err := s.customers.WithTx(tx).FindByID(ctx, customerID)
	if err != nil {
		return checkout.MaterializeInput{}, err
	}
	if customer.Address.IsZero() && s.logg != nil {
		s.logg.Warn(ctx, "customer has no stored delivery address")
	}

	var shipping checkout.FreightSnapshot
	session, err := s.sessions.FindByLinkID(ctx, linkID)
	if err != nil {
		return checkout.MaterializeInput{}, err
	}
	if session == nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "no checkout session for payment link; freight left empty")
		}
	} else {
		shipping = checkout.FreightSnapshot{
			Carrier:      session.FreightCarrier,
			Service:      session.FreightService,
			PriceCents:   session.FreightPriceCents,
			LeadTimeDays: session.FreightLeadTimeDays,
		}
	}

	lines, err := s.resolveLines(ctx, tx, data.Items)
	if err != nil {
		return checkout.MaterializeInput{}, err
	}

	method := paymentMethod(data.PaymentMethod)
	return checkout.MaterializeInput{
		CustomerID:      customerID,
		Status:          enums.OrderStatusPaid,
		PaymentMethod:   method,
		Freight:         shipping,
		DeliveryAddress: customer.Address,
		Lines:           lines,
		LinkID:          &linkID,
		Payment: &checkout.PaymentRecord{
			GatewayTransactionID: data.TransactionID,
			Method:               method,
			AmountCents:          gateway.Cents(data.Amount),
			Installments:         data.Installments,
		},
	}, nil
}

// resolveLines maps every item to a catalog product. One unmapped item fails
// the whole event.
func (s *Service) resolveLines(ctx context.Context, tx *gorm.DB, items []gateway.EventItem) ([]checkout.MaterializeLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnresolvedLine, "payment carries no items")
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ProductID())
		if err != nil {
			return nil, unresolved(item, "item has no product_id metadata")
		}
		ids = append(ids, id)
	}
	known, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]checkout.MaterializeLine, 0, len(items))
	for i, item := range items {
		if _, ok := known[ids[i]]; !ok {
			return nil, unresolved(item, "item references an unknown product")
		}
		unit := gateway.Cents(item.Amount.Div(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, checkout.MaterializeLine{
			ProductID:      ids[i],
			Quantity:       item.Quantity,
			UnitPriceCents: &unit,
		})
	}
	return lines, nil
}

func unresolved(item gateway.EventItem, message string) error {
	return pkgerrors.New(pkgerrors.CodeUnresolvedLine, message).
		WithDetails(map[string]any{"name": item.Name, "product_id": item.ProductID()})
}

// paymentMethod maps the gateway's method name, treating anything
// unrecognized as a card payment.
func paymentMethod(value string) enums.PaymentMethod {
	method := enums.PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if method.IsValid() {
		return method
	}
	return enums.PaymentMethodCreditCard
}

func isLinkConflict(err error) bool {
	return db.IsUniqueViolation(err, "ux_payment_transactions_link_id") ||
		db.IsUniqueViolation(err, "ux_orders_link_id")
}

func (s *Service) fail(ctx context.Context, err error) {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncFailure(metrics.PathWebhook, string(code))
	s.metrics.IncWebhookEvent("failed")
	if s.logg != nil {
		s.logg.Error(ctx, "payment reconciliation failed", err)
	}
}
