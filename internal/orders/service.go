package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/pagination"
)

// Service answers order lookups for the owning customer.
type Service interface {
	GetByLinkID(ctx context.Context, customerID uuid.UUID, linkID string) (*LinkStatus, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo     Repository
	sessions SessionLookup
}

// NewService builds the order lookup service.
func NewService(repo Repository, sessions SessionLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session lookup required")
	}
	return &service{repo: repo, sessions: sessions}, nil
}

// GetByLinkID reports the materialized order status for a payment link, or
// PENDING_PAYMENT while only the session exists. Links that belong to another
// customer are reported as not found.
func (s *service) GetByLinkID(ctx context.Context, customerID uuid.UUID, linkID string) (*LinkStatus, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "link_id is required")
	}

	order, err := s.repo.FindByLinkID(ctx, linkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by link")
	}
	if order != nil {
		if order.CustomerID != customerID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment link not found")
		}
		id := order.ID
		return &LinkStatus{LinkID: linkID, Status: order.Status, OrderID: &id}, nil
	}

	session, err := s.sessions.FindByLinkID(ctx, linkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout session")
	}
	if session == nil || session.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment link not found")
	}
	return &LinkStatus{LinkID: linkID, Status: enums.OrderStatusPendingPayment}, nil
}

func (s *service) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindForCustomer(ctx, customerID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return ToOrderDTO(order), nil
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return toOrderList(rows, params.Limit), nil
}
