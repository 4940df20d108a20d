package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
)

// Repository is the product stock store. Stock is only ever changed through
// DecrementStock inside a transaction that locked the row first.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product without locking.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &product, nil
}

// FindByIDs loads the products for the given ids keyed by id. Missing ids are
// simply absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// LockByID reads the product with SELECT ... FOR UPDATE. The lock lasts until
// the surrounding transaction ends, so it must be called on a WithTx repository.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, id)
	}
	return &product, nil
}

// DecrementStock subtracts qty only when enough stock remains. The guard in
// the WHERE clause keeps stock non-negative even without a prior lock.
func (r *Repository) DecrementStock(ctx context.Context, product *models.Product, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", product.ID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.InsufficientStock(product.ID.String(), product.Name, qty, product.Stock)
	}
	product.Stock -= qty
	return nil
}

func notFound(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found").
			WithDetails(map[string]any{"product_id": id.String()})
	}
	return err
}
