package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/internal/products"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the cart manager. Mutations are scoped to the owning customer.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, customerID, productID uuid.UUID, qty int) (*CartView, error)
	UpdateItem(ctx context.Context, customerID, productID uuid.UUID, qty int) (*CartView, error)
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products *products.Repository
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, productRepo *products.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, tx: tx, products: productRepo}, nil
}

func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart == nil {
		return newCartView(nil, nil), nil
	}
	lines, err := s.repo.ListLines(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	return newCartView(cart, lines), nil
}

// AddItem merges qty into an existing line or inserts a new one with a price
// snapshot. The merged quantity must fit in current stock; the product is read
// in the same transaction as the write.
func (s *service) AddItem(ctx context.Context, customerID, productID uuid.UUID, qty int) (*CartView, error) {
	if err := validateIDs(customerID, productID); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available for sale").
				WithDetails(map[string]any{"product_id": productID.String()})
		}

		repo := s.repo.WithTx(tx)
		cart, err := repo.GetOrCreate(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		line, err := repo.FindLine(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		if line == nil {
			line = &models.CartLine{CartID: cart.ID, ProductID: productID, UnitPriceCents: product.PriceCents}
		}
		merged := line.Quantity + qty
		if merged > product.Stock {
			return pkgerrors.InsufficientStock(product.ID.String(), product.Name, merged, product.Stock)
		}
		line.Quantity = merged

		if err := repo.SaveLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}
		return repo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// UpdateItem overwrites a line's quantity. A quantity of zero or less deletes
// the line, and deleting an absent line is a no-op.
func (s *service) UpdateItem(ctx context.Context, customerID, productID uuid.UUID, qty int) (*CartView, error) {
	if err := validateIDs(customerID, productID); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return s.RemoveItem(ctx, customerID, productID)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return pkgerrors.InsufficientStock(product.ID.String(), product.Name, qty, product.Stock)
		}

		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if cart == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		line, err := repo.FindLine(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		line.Quantity = qty
		if err := repo.SaveLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}
		return repo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartView, error) {
	if err := validateIDs(customerID, productID); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if cart == nil {
			return nil
		}
		if err := repo.DeleteLine(ctx, cart.ID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
		}
		return repo.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// Clear empties the cart. Checkout calls the repository directly inside its
// own transaction; this entry point exists for callers without one.
func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if _, err := s.repo.ClearByCustomer(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func validateIDs(customerID, productID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return nil
}
