package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
)

// LineView is a cart line joined with live product detail.
type LineView struct {
	ProductID          uuid.UUID `json:"product_id"`
	Name               string    `json:"name"`
	Quantity           int       `json:"quantity"`
	UnitPriceCents     int64     `json:"unit_price_cents"`
	SnapshotPriceCents int64     `json:"snapshot_price_cents"`
	LineTotalCents     int64     `json:"line_total_cents"`
	AvailableStock     int       `json:"available_stock"`
	Active             bool      `json:"active"`
}

// CartView is the customer's cart as returned to clients. A customer without
// a cart row gets an empty view.
type CartView struct {
	CartID        *uuid.UUID `json:"cart_id,omitempty"`
	Lines         []LineView `json:"lines"`
	ItemCount     int        `json:"item_count"`
	SubtotalCents int64      `json:"subtotal_cents"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func newCartView(cart *models.Cart, lines []models.CartLine) *CartView {
	view := &CartView{Lines: make([]LineView, 0, len(lines))}
	if cart != nil {
		id := cart.ID
		updated := cart.UpdatedAt
		view.CartID = &id
		view.UpdatedAt = &updated
	}
	for _, line := range lines {
		lv := LineView{
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			SnapshotPriceCents: line.UnitPriceCents,
			UnitPriceCents:     line.UnitPriceCents,
		}
		if line.Product != nil {
			lv.Name = line.Product.Name
			lv.UnitPriceCents = line.Product.PriceCents
			lv.AvailableStock = line.Product.Stock
			lv.Active = line.Product.IsActive()
		}
		lv.LineTotalCents = lv.UnitPriceCents * int64(lv.Quantity)
		view.Lines = append(view.Lines, lv)
		view.ItemCount += lv.Quantity
		view.SubtotalCents += lv.LineTotalCents
	}
	return view
}
