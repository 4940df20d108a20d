package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henriqueponts/labstore-sub002/api/middleware"
	"github.com/henriqueponts/labstore-sub002/internal/cart"
	"github.com/henriqueponts/labstore-sub002/internal/checkout"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/pagination"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

type stubCartService struct {
	view       *cart.CartView
	err        error
	lastQty    int
	lastProdID uuid.UUID
	cleared    bool
}

func (s *stubCartService) GetCart(context.Context, uuid.UUID) (*cart.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, productID uuid.UUID, qty int) (*cart.CartView, error) {
	s.lastProdID, s.lastQty = productID, qty
	return s.view, s.err
}

func (s *stubCartService) UpdateItem(_ context.Context, _ uuid.UUID, productID uuid.UUID, qty int) (*cart.CartView, error) {
	s.lastProdID, s.lastQty = productID, qty
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _ uuid.UUID, productID uuid.UUID) (*cart.CartView, error) {
	s.lastProdID = productID
	return s.view, s.err
}

func (s *stubCartService) Clear(context.Context, uuid.UUID) error {
	s.cleared = true
	return s.err
}

type stubCheckoutService struct {
	order     *models.Order
	session   *checkout.SessionResult
	options   []freight.Option
	err       error
	lastOrder checkout.PlaceOrderInput
	lastSess  checkout.CreateSessionInput
	lastPC    string
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, input checkout.PlaceOrderInput) (*models.Order, error) {
	s.lastOrder = input
	return s.order, s.err
}

func (s *stubCheckoutService) CreateSession(_ context.Context, input checkout.CreateSessionInput) (*checkout.SessionResult, error) {
	s.lastSess = input
	return s.session, s.err
}

func (s *stubCheckoutService) QuoteFreight(_ context.Context, _ uuid.UUID, postalCode string) ([]freight.Option, error) {
	s.lastPC = postalCode
	return s.options, s.err
}

type stubOrdersService struct {
	list       *orders.OrderList
	order      *orders.OrderDTO
	status     *orders.LinkStatus
	err        error
	lastParams pagination.Params
	lastLink   string
}

func (s *stubOrdersService) GetByLinkID(_ context.Context, _ uuid.UUID, linkID string) (*orders.LinkStatus, error) {
	s.lastLink = linkID
	return s.status, s.err
}

func (s *stubOrdersService) GetOrder(context.Context, uuid.UUID, uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrdersService) ListOrders(_ context.Context, _ uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	s.lastParams = params
	return s.list, s.err
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func serve(t *testing.T, method, pattern, target, body string, handler http.HandlerFunc, customerID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if customerID != uuid.Nil {
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCartFetchRequiresCustomer(t *testing.T) {
	svc := &stubCartService{view: &cart.CartView{}}
	resp := serve(t, http.MethodGet, "/cart", "/cart", "", CartFetch(svc, nil), uuid.Nil)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeUnauthorized), decodeError(t, resp).Error.Code)
}

func TestCartFetchReturnsView(t *testing.T) {
	svc := &stubCartService{view: &cart.CartView{ItemCount: 3, SubtotalCents: 4500, Lines: []cart.LineView{}}}
	resp := serve(t, http.MethodGet, "/cart", "/cart", "", CartFetch(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data cart.CartView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, 3, envelope.Data.ItemCount)
	assert.Equal(t, int64(4500), envelope.Data.SubtotalCents)
}

func TestCartAddItem(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: &cart.CartView{}}
	body := `{"product_id":"` + productID.String() + `","quantity":2}`

	resp := serve(t, http.MethodPost, "/cart/items", "/cart/items", body, CartAddItem(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, productID, svc.lastProdID)
	assert.Equal(t, 2, svc.lastQty)
}

func TestCartAddItemRejectsBadBodies(t *testing.T) {
	cases := map[string]string{
		"zero quantity":  `{"product_id":"` + uuid.NewString() + `","quantity":0}`,
		"missing id":     `{"quantity":1}`,
		"unknown field":  `{"product_id":"` + uuid.NewString() + `","quantity":1,"price":1}`,
		"malformed json": `{"product_id":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCartService{view: &cart.CartView{}}
			resp := serve(t, http.MethodPost, "/cart/items", "/cart/items", body, CartAddItem(svc, nil), uuid.New())
			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Zero(t, svc.lastQty)
		})
	}
}

func TestCartUpdateItemAllowsZero(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: &cart.CartView{}, lastQty: -1}

	resp := serve(t, http.MethodPatch, "/cart/items/{productId}", "/cart/items/"+productID.String(), `{"quantity":0}`, CartUpdateItem(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, productID, svc.lastProdID)
	assert.Equal(t, 0, svc.lastQty)
}

func TestCartUpdateItemRequiresQuantity(t *testing.T) {
	svc := &stubCartService{view: &cart.CartView{}}
	resp := serve(t, http.MethodPatch, "/cart/items/{productId}", "/cart/items/"+uuid.NewString(), `{}`, CartUpdateItem(svc, nil), uuid.New())
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartRemoveItemRejectsBadID(t *testing.T) {
	svc := &stubCartService{view: &cart.CartView{}}
	resp := serve(t, http.MethodDelete, "/cart/items/{productId}", "/cart/items/not-a-uuid", "", CartRemoveItem(svc, nil), uuid.New())

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, uuid.Nil, svc.lastProdID)
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	resp := serve(t, http.MethodDelete, "/cart", "/cart", "", CartClear(svc, nil), uuid.New())

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.True(t, svc.cleared)
}

func TestCheckoutPlaceOrderCreated(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Status:        enums.OrderStatusPendingPayment,
		PaymentMethod: enums.PaymentMethodPix,
		SubtotalCents: 9000,
		TotalCents:    9000,
		CreatedAt:     time.Now(),
	}
	svc := &stubCheckoutService{order: order}
	body := `{"payment_method":"pix","freight":{"carrier":"correios","service":"pac"},
		"delivery_address":{"street":"Rua XV","number":"10","city":"Curitiba","state":"PR","postal_code":"80020-310"}}`

	resp := serve(t, http.MethodPost, "/orders", "/orders", body, CheckoutPlaceOrder(svc, nil), customerID)

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope struct {
		Data orders.OrderDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, order.ID, envelope.Data.ID)
	assert.Equal(t, enums.OrderStatusPendingPayment, envelope.Data.Status)

	assert.Equal(t, customerID, svc.lastOrder.CustomerID)
	assert.Equal(t, enums.PaymentMethodPix, svc.lastOrder.PaymentMethod)
	require.NotNil(t, svc.lastOrder.Freight)
	assert.Equal(t, "pac", svc.lastOrder.Freight.Service)
	require.NotNil(t, svc.lastOrder.DeliveryAddress)
	assert.Equal(t, "Curitiba", svc.lastOrder.DeliveryAddress.City)
}

func TestCheckoutPlaceOrderValidation(t *testing.T) {
	cases := map[string]string{
		"unknown method":    `{"payment_method":"cash"}`,
		"missing method":    `{}`,
		"incomplete addr":   `{"payment_method":"pix","delivery_address":{"street":"Rua XV"}}`,
		"incomplete choice": `{"payment_method":"pix","freight":{"carrier":"correios"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{}
			resp := serve(t, http.MethodPost, "/orders", "/orders", body, CheckoutPlaceOrder(svc, nil), uuid.New())
			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, uuid.Nil, svc.lastOrder.CustomerID)
		})
	}
}

func TestCheckoutPlaceOrderMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"), http.StatusUnprocessableEntity},
		{pkgerrors.InsufficientStock(uuid.NewString(), "Beaker", 3, 1), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &stubCheckoutService{err: tc.err}
		resp := serve(t, http.MethodPost, "/orders", "/orders", `{"payment_method":"boleto"}`, CheckoutPlaceOrder(svc, nil), uuid.New())
		assert.Equal(t, tc.status, resp.Code)
	}
}

func TestCheckoutCreateSession(t *testing.T) {
	svc := &stubCheckoutService{session: &checkout.SessionResult{
		LinkID:     "lnk_1",
		URL:        "https://pay.example.com/lnk_1",
		TotalCents: 11990,
		Installments: []types.Installment{
			{Count: 1, AmountCents: 11990},
		},
	}}
	body := `{"carrier":"correios","service":"sedex","redirect_url":"https://store.example.com/done"}`

	resp := serve(t, http.MethodPost, "/checkout/sessions", "/checkout/sessions", body, CheckoutCreateSession(svc, nil), uuid.New())

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope struct {
		Data checkout.SessionResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "lnk_1", envelope.Data.LinkID)
	assert.Equal(t, "sedex", svc.lastSess.Freight.Service)
	assert.Equal(t, "https://store.example.com/done", svc.lastSess.RedirectURL)
}

func TestCheckoutCreateSessionRejectsBadRedirect(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"carrier":"correios","service":"sedex","redirect_url":"not a url"}`
	resp := serve(t, http.MethodPost, "/checkout/sessions", "/checkout/sessions", body, CheckoutCreateSession(svc, nil), uuid.New())
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFreightQuotesPassesPostalCode(t *testing.T) {
	svc := &stubCheckoutService{options: []freight.Option{{Carrier: "correios", Service: "pac", PriceCents: 2500, LeadTimeDays: 7}}}
	resp := serve(t, http.MethodGet, "/freight/quotes", "/freight/quotes?postal_code=+80020-310+", "", FreightQuotes(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "80020-310", svc.lastPC)
	var envelope struct {
		Data []freight.Option `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, int64(2500), envelope.Data[0].PriceCents)
}

func TestOrdersListWritesCursor(t *testing.T) {
	svc := &stubOrdersService{list: &orders.OrderList{
		Orders:     []orders.OrderSummary{{ID: uuid.New(), TotalCents: 100}},
		NextCursor: "abc",
	}}
	resp := serve(t, http.MethodGet, "/orders", "/orders?limit=10&cursor=xyz", "", OrdersList(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data       []orders.OrderSummary `json:"data"`
		NextCursor string                `json:"next_cursor"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, "abc", envelope.NextCursor)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "xyz"}, svc.lastParams)
}

func TestOrdersListRejectsLimit(t *testing.T) {
	svc := &stubOrdersService{list: &orders.OrderList{}}
	resp := serve(t, http.MethodGet, "/orders", "/orders?limit=1000", "", OrdersList(svc, nil), uuid.New())
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrdersDetailNotFound(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	resp := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/"+uuid.NewString(), "", OrdersDetail(svc, nil), uuid.New())

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "order not found", decodeError(t, resp).Error.Message)
}

func TestOrdersLinkStatus(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{status: &orders.LinkStatus{LinkID: "lnk_9", Status: enums.OrderStatusPaid, OrderID: &orderID}}

	resp := serve(t, http.MethodGet, "/orders/status", "/orders/status?link_id=lnk_9", "", OrdersLinkStatus(svc, nil), uuid.New())

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "lnk_9", svc.lastLink)

	missing := serve(t, http.MethodGet, "/orders/status", "/orders/status", "", OrdersLinkStatus(svc, nil), uuid.New())
	require.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": ok}), uuid.Nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-LabStore-Env"))

	resp = serve(t, http.MethodGet, "/health/ready", "/health/ready", "", HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": down}), uuid.Nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeDependency), body.Error.Code)
	assert.Equal(t, "redis", body.Error.Details["dependency"])
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := serve(t, http.MethodGet, "/health/live", "/health/live", "", HealthLive(cfg), uuid.Nil)
	require.Equal(t, http.StatusOK, resp.Code)
}
