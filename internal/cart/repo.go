package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
)

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCustomer returns the customer's cart or nil when none was created yet.
func (r *Repository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the customer's cart, creating it on first write. The
// insert ignores a conflicting concurrent creator and reloads its row.
func (r *Repository) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	existing, err := r.FindByCustomer(ctx, customerID)
	if err != nil || existing != nil {
		return existing, err
	}

	cart := &models.Cart{ID: uuid.New(), CustomerID: customerID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "customer_id"}}, DoNothing: true}).
		Create(cart)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return r.FindByCustomer(ctx, customerID)
	}
	return cart, nil
}

// ListLines returns the customer's cart lines with their live product rows,
// oldest first.
func (r *Repository) ListLines(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Product").
		Joins("JOIN carts ON carts.id = cart_lines.cart_id").
		Where("carts.customer_id = ?", customerID).
		Order("cart_lines.created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FindLine returns the line for the product or nil.
func (r *Repository) FindLine(ctx context.Context, cartID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// SaveLine inserts a new line or overwrites an existing one.
func (r *Repository) SaveLine(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
		return r.db.WithContext(ctx).Omit("Product").Create(line).Error
	}
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{"quantity": line.Quantity, "updated_at": time.Now().UTC()}).Error
}

// DeleteLine removes the line for the product. Deleting an absent line is a no-op.
func (r *Repository) DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartLine{}).Error
}

// Touch bumps the cart's last-modified marker.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
}

// ClearByCustomer deletes every line of the customer's cart and reports how
// many were removed.
func (r *Repository) ClearByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id IN (?)", r.db.Model(&models.Cart{}).Select("id").Where("customer_id = ?", customerID)).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
