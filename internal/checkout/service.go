package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/internal/cart"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type freightQuoter interface {
	Quote(ctx context.Context, req freight.QuoteRequest) ([]freight.Option, error)
}

type linkCreator interface {
	CreateLink(ctx context.Context, req gateway.LinkRequest) (*gateway.Link, error)
}

type sessionStore interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
}

type notifier interface {
	FireAndForget(ctx context.Context, orderID uuid.UUID) <-chan struct{}
}

// Service covers both checkout entry points: placing an order directly and
// issuing a hosted payment session.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error)
	QuoteFreight(ctx context.Context, customerID uuid.UUID, postalCode string) ([]freight.Option, error)
}

type ServiceParams struct {
	Config       config.CheckoutConfig
	Tx           txRunner
	Carts        cart.CartRepository
	Customers    customerLoader
	Materializer *Materializer
	Sessions     sessionStore
	Freight      freightQuoter
	Gateway      linkCreator
	Notifier     notifier
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

type service struct {
	cfg          config.CheckoutConfig
	tx           txRunner
	carts        cart.CartRepository
	customers    customerLoader
	materializer *Materializer
	sessions     sessionStore
	freight      freightQuoter
	gateway      linkCreator
	notifier     notifier
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if params.Materializer == nil {
		return nil, fmt.Errorf("order materializer required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Freight == nil {
		return nil, fmt.Errorf("freight quoter required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	cfg := params.Config
	if cfg.MaxInstallments <= 0 || cfg.MaxInstallments > MaxInstallments {
		cfg.MaxInstallments = MaxInstallments
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	return &service{
		cfg:          cfg,
		tx:           params.Tx,
		carts:        params.Carts,
		customers:    params.Customers,
		materializer: params.Materializer,
		sessions:     params.Sessions,
		freight:      params.Freight,
		gateway:      params.Gateway,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// FreightChoice names the carrier option the customer picked. The price is
// always re-quoted server side.
type FreightChoice struct {
	Carrier string
	Service string
}

func (c *FreightChoice) isSet() bool {
	return c != nil && strings.TrimSpace(c.Carrier) != "" && strings.TrimSpace(c.Service) != ""
}

// quoteFreight re-quotes the cart to the destination and returns the chosen
// option. It must not run inside a transaction.
func (s *service) quoteFreight(ctx context.Context, lines []models.CartLine, destination string, choice FreightChoice) (FreightSnapshot, error) {
	options, err := s.freight.Quote(ctx, freight.QuoteRequest{
		OriginPostalCode:      s.cfg.OriginPostalCode,
		DestinationPostalCode: destination,
		Parcels:               parcelsFor(lines),
	})
	if err != nil {
		return FreightSnapshot{}, err
	}
	option, ok := freight.Select(options, choice.Carrier, choice.Service)
	if !ok {
		return FreightSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "freight option not available for this address").
			WithDetails(map[string]any{"carrier": choice.Carrier, "service": choice.Service})
	}
	return FreightSnapshot{
		Carrier:      option.Carrier,
		Service:      option.Service,
		PriceCents:   option.PriceCents,
		LeadTimeDays: option.LeadTimeDays,
	}, nil
}

func parcelsFor(lines []models.CartLine) []freight.Parcel {
	parcels := make([]freight.Parcel, 0, len(lines))
	for _, line := range lines {
		if line.Product == nil {
			continue
		}
		p := line.Product
		parcels = append(parcels, freight.Parcel{
			WeightGrams:  p.WeightGrams,
			LengthCM:     p.LengthCM,
			WidthCM:      p.WidthCM,
			HeightCM:     p.HeightCM,
			Quantity:     line.Quantity,
			InsuredCents: p.PriceCents * int64(line.Quantity),
		})
	}
	return parcels
}

func (s *service) fail(path string, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncFailure(path, string(code))
	return err
}
