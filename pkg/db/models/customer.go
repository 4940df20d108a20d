package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// Customer is the storefront buyer. Identity is owned by the identity
// provider; this row carries the contact and delivery data checkout needs.
type Customer struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string        `gorm:"column:name;not null"`
	Email     string        `gorm:"column:email;not null"`
	Document  string        `gorm:"column:document;not null"`
	Phone     *string       `gorm:"column:phone"`
	Address   types.Address `gorm:"column:address;type:jsonb"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
