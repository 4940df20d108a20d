package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/api/responses"
	"github.com/henriqueponts/labstore-sub002/api/validators"
	"github.com/henriqueponts/labstore-sub002/internal/checkout"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// CheckoutService covers direct orders, hosted sessions and freight quotes.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, input checkout.PlaceOrderInput) (*models.Order, error)
	CreateSession(ctx context.Context, input checkout.CreateSessionInput) (*checkout.SessionResult, error)
	QuoteFreight(ctx context.Context, customerID uuid.UUID, postalCode string) ([]freight.Option, error)
}

type freightChoiceRequest struct {
	Carrier string `json:"carrier" validate:"required,max=64"`
	Service string `json:"service" validate:"required,max=64"`
}

type placeOrderRequest struct {
	PaymentMethod   string                `json:"payment_method" validate:"required,payment_method"`
	DeliveryAddress *types.Address        `json:"delivery_address,omitempty"`
	Freight         *freightChoiceRequest `json:"freight,omitempty"`
}

type createSessionRequest struct {
	Carrier     string `json:"carrier" validate:"required,max=64"`
	Service     string `json:"service" validate:"required,max=64"`
	RedirectURL string `json:"redirect_url,omitempty" validate:"omitempty,url,max=2048"`
}

// CheckoutPlaceOrder turns the caller's cart into a pending order.
func CheckoutPlaceOrder(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.PlaceOrderInput{
			CustomerID:      customerID,
			PaymentMethod:   enums.PaymentMethod(body.PaymentMethod),
			DeliveryAddress: body.DeliveryAddress,
		}
		if body.Freight != nil {
			input.Freight = &checkout.FreightChoice{Carrier: body.Freight.Carrier, Service: body.Freight.Service}
		}

		order, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.ToOrderDTO(order))
	}
}

// CheckoutCreateSession issues a hosted payment link for the cart.
func CheckoutCreateSession(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSession(r.Context(), checkout.CreateSessionInput{
			CustomerID:  customerID,
			Freight:     checkout.FreightChoice{Carrier: body.Carrier, Service: body.Service},
			RedirectURL: body.RedirectURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// FreightQuotes lists carrier options for the cart. postal_code defaults to
// the customer's stored address.
func FreightQuotes(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postal := validators.SanitizeString(r.URL.Query().Get("postal_code"), 16)
		options, err := svc.QuoteFreight(r.Context(), customerID, postal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}
