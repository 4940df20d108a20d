package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/pagination"
)

// Repository defines persistence operations for orders, their lines and the
// payment transactions that settle them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	UpdateTotals(ctx context.Context, orderID uuid.UUID, subtotalCents, totalCents int64) error
	CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindPaymentByLinkID(ctx context.Context, linkID string) (*models.PaymentTransaction, error)
	FindByLinkID(ctx context.Context, linkID string) (*models.Order, error)
	FindForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
}

// SessionLookup reports whether a checkout session exists for a link id and
// customer. Implemented by the checkout session repository.
type SessionLookup interface {
	FindByLinkID(ctx context.Context, linkID string) (*models.CheckoutSession, error)
}
