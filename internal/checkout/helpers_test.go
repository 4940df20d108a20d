package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/henriqueponts/labstore-sub002/internal/cart"
	"github.com/henriqueponts/labstore-sub002/internal/customers"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/internal/products"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db"
	"github.com/henriqueponts/labstore-sub002/pkg/db/dbtest"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox"
)

type stubFreight struct {
	options []freight.Option
	err     error
	calls   int
	last    freight.QuoteRequest
}

func (s *stubFreight) Quote(_ context.Context, req freight.QuoteRequest) ([]freight.Option, error) {
	s.calls++
	s.last = req
	return s.options, s.err
}

type stubGateway struct {
	link *gateway.Link
	err  error
	reqs []gateway.LinkRequest
}

func (s *stubGateway) CreateLink(_ context.Context, req gateway.LinkRequest) (*gateway.Link, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (s *stubNotifier) FireAndForget(_ context.Context, orderID uuid.UUID) <-chan struct{} {
	s.mu.Lock()
	s.calls = append(s.calls, orderID)
	s.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return done
}

func (s *stubNotifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fixture struct {
	client   *db.Client
	carts    *cart.Repository
	svc      Service
	freight  *stubFreight
	gateway  *stubGateway
	notifier *stubNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	cartRepo := cart.NewRepository(conn)
	materializer, err := NewMaterializer(
		products.NewRepository(conn),
		cartRepo,
		orders.NewRepository(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
	)
	require.NoError(t, err)

	f := &fixture{
		client:   client,
		carts:    cartRepo,
		freight:  &stubFreight{options: []freight.Option{{Carrier: "correios", Service: "sedex", PriceCents: 1990, LeadTimeDays: 3}}},
		gateway:  &stubGateway{link: &gateway.Link{ID: "lnk_123", URL: "https://pay.example.com/lnk_123"}},
		notifier: &stubNotifier{},
	}
	f.svc, err = NewService(ServiceParams{
		Config: config.CheckoutConfig{
			Currency:         "BRL",
			MaxInstallments:  12,
			OriginPostalCode: "01001-000",
			RedirectURL:      "https://store.example.com/checkout/done",
		},
		Tx:           client,
		Carts:        cartRepo,
		Customers:    customers.NewRepository(conn),
		Materializer: materializer,
		Sessions:     NewSessionRepository(conn),
		Freight:      f.freight,
		Gateway:      f.gateway,
		Notifier:     f.notifier,
	})
	require.NoError(t, err)
	return f
}

// addToCart writes a cart line directly, bypassing cart-level stock checks.
func (f *fixture) addToCart(t *testing.T, customerID, productID uuid.UUID, qty int, unitPrice int64) {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.GetOrCreate(ctx, customerID)
	require.NoError(t, err)
	line := models.CartLine{CartID: c.ID, ProductID: productID, Quantity: qty, UnitPriceCents: unitPrice}
	require.NoError(t, f.carts.SaveLine(ctx, &line))
}
