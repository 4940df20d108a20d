package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and by order materialization.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	ListLines(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID) (*models.CartLine, error)
	SaveLine(ctx context.Context, line *models.CartLine) error
	DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID) error
	ClearByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}
