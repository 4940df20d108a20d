package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/enums"
)

// Product is the catalog entry whose stock column is contended by checkouts.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	PriceCents  int64               `gorm:"column:price_cents;not null"`
	Stock       int                 `gorm:"column:stock;not null;default:0"`
	Status      enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'active'"`
	WeightGrams int                 `gorm:"column:weight_grams;not null;default:0"`
	LengthCM    int                 `gorm:"column:length_cm;not null;default:0"`
	WidthCM     int                 `gorm:"column:width_cm;not null;default:0"`
	HeightCM    int                 `gorm:"column:height_cm;not null;default:0"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the product can be sold.
func (p Product) IsActive() bool {
	return p.Status == enums.ProductStatusActive
}
