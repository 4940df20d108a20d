package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/db"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// CreateSessionInput starts a hosted payment for the customer's cart.
type CreateSessionInput struct {
	CustomerID  uuid.UUID
	Freight     FreightChoice
	RedirectURL string
}

// SessionResult is returned to the client, which redirects the payer to URL.
type SessionResult struct {
	LinkID            string                    `json:"link_id"`
	URL               string                    `json:"url"`
	SubtotalCents     int64                     `json:"subtotal_cents"`
	FreightPriceCents int64                     `json:"freight_price_cents"`
	TotalCents        int64                     `json:"total_cents"`
	Installments      types.InstallmentSchedule `json:"installments"`
}

// CreateSession prices the cart, asks the gateway for a payment link and
// records the session keyed by its link id. No stock is reserved; the order
// only exists once the payment confirmation arrives.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDuration(metrics.PathSession, time.Since(started)) }()

	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if !input.Freight.isSet() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "freight carrier and service are required")
	}

	lines, err := s.carts.ListLines(ctx, input.CustomerID)
	if err != nil {
		return nil, s.fail(metrics.PathSession, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart"))
	}
	if len(lines) == 0 {
		return nil, s.fail(metrics.PathSession, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
	}
	if err := checkSellable(lines); err != nil {
		return nil, s.fail(metrics.PathSession, err)
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		return nil, s.fail(metrics.PathSession, err)
	}
	address, err := resolveAddress(nil, customer)
	if err != nil {
		return nil, s.fail(metrics.PathSession, err)
	}

	shipping, err := s.quoteFreight(ctx, lines, address.PostalCode, input.Freight)
	if err != nil {
		return nil, s.fail(metrics.PathSession, err)
	}

	var subtotal int64
	items := make([]gateway.LinkItem, 0, len(lines))
	for _, line := range lines {
		subtotal += line.Product.PriceCents * int64(line.Quantity)
		items = append(items, gateway.LinkItem{
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: gateway.Money(line.Product.PriceCents),
			Metadata:  map[string]string{"product_id": line.ProductID.String()},
		})
	}
	total := subtotal + shipping.PriceCents
	schedule := BuildInstallments(total, s.cfg.MaxInstallments)

	redirect := strings.TrimSpace(input.RedirectURL)
	if redirect == "" {
		redirect = s.cfg.RedirectURL
	}

	linkInstallments := make([]gateway.LinkInstallment, 0, len(schedule))
	for _, entry := range schedule {
		linkInstallments = append(linkInstallments, gateway.LinkInstallment{Count: entry.Count, Amount: gateway.Money(entry.AmountCents)})
	}
	link, err := s.gateway.CreateLink(ctx, gateway.LinkRequest{
		IdempotencyKey: uuid.NewString(),
		Currency:       s.cfg.Currency,
		Amount:         gateway.Money(total),
		Items:          items,
		Installments:   linkInstallments,
		Customer: gateway.LinkCustomer{
			Name:     customer.Name,
			Email:    customer.Email,
			Document: customer.Document,
		},
		Shipping: &gateway.LinkShipping{
			Carrier:      shipping.Carrier,
			Service:      shipping.Service,
			Amount:       gateway.Money(shipping.PriceCents),
			LeadTimeDays: shipping.LeadTimeDays,
			PostalCode:   types.NormalizePostalCode(address.PostalCode),
		},
		RedirectURL: redirect,
		Metadata:    map[string]string{"customer_id": input.CustomerID.String()},
	})
	if err != nil {
		return nil, s.fail(metrics.PathSession, err)
	}

	session := &models.CheckoutSession{
		LinkID:              link.ID,
		CustomerID:          input.CustomerID,
		FreightCarrier:      shipping.Carrier,
		FreightService:      shipping.Service,
		FreightPriceCents:   shipping.PriceCents,
		FreightLeadTimeDays: shipping.LeadTimeDays,
		SubtotalCents:       subtotal,
		TotalCents:          total,
		Installments:        schedule,
		RedirectURL:         redirect,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if db.IsUniqueViolation(err, "ux_checkout_sessions_link_id") {
			return nil, s.fail(metrics.PathSession, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment link already registered"))
		}
		return nil, s.fail(metrics.PathSession, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save checkout session"))
	}

	if s.logg != nil {
		logCtx := s.logg.WithLinkID(s.logg.WithCustomerID(ctx, input.CustomerID), link.ID)
		s.logg.Info(s.logg.WithField(logCtx, "total_cents", total), "checkout session issued")
	}
	return &SessionResult{
		LinkID:            link.ID,
		URL:               link.URL,
		SubtotalCents:     subtotal,
		FreightPriceCents: shipping.PriceCents,
		TotalCents:        total,
		Installments:      schedule,
	}, nil
}

// checkSellable fails fast when a line can no longer be bought as-is.
func checkSellable(lines []models.CartLine) error {
	for _, line := range lines {
		if line.Product == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart references an unknown product").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		if !line.Product.IsActive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available: "+line.Product.Name).
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		if line.Quantity > line.Product.Stock {
			return pkgerrors.InsufficientStock(line.ProductID.String(), line.Product.Name, line.Quantity, line.Product.Stock)
		}
	}
	return nil
}
