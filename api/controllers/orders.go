package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/api/responses"
	"github.com/henriqueponts/labstore-sub002/api/validators"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/pagination"
)

// OrdersService answers the caller's order lookups.
type OrdersService interface {
	GetByLinkID(ctx context.Context, customerID uuid.UUID, linkID string) (*orders.LinkStatus, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*orders.OrderDTO, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*orders.OrderList, error)
}

// OrdersList pages through the caller's orders, newest first.
func OrdersList(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListOrders(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Orders, list.NextCursor)
	}
}

func OrdersDetail(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersLinkStatus lets a client returning from the hosted payment page poll
// whether its link has become an order.
func OrdersLinkStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		linkID, err := validators.RequireQuery(r, "link_id", 128)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.GetByLinkID(r.Context(), customerID, linkID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
