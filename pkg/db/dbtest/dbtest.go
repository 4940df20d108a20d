// Package dbtest opens throwaway SQLite databases with the checkout schema for
// package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/henriqueponts/labstore-sub002/pkg/db"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

var schema = []string{
	`CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  document TEXT NOT NULL,
  phone TEXT,
  address TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  status TEXT NOT NULL DEFAULT 'active',
  weight_grams INTEGER NOT NULL DEFAULT 0,
  length_cm INTEGER NOT NULL DEFAULT 0,
  width_cm INTEGER NOT NULL DEFAULT 0,
  height_cm INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_carts_customer_id ON carts (customer_id)`,
	`CREATE TABLE cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_cart_lines_cart_product ON cart_lines (cart_id, product_id)`,
	`CREATE TABLE checkout_sessions (
  id TEXT PRIMARY KEY,
  link_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  freight_carrier TEXT NOT NULL,
  freight_service TEXT NOT NULL,
  freight_price_cents INTEGER NOT NULL,
  freight_lead_time_days INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  installments TEXT NOT NULL,
  redirect_url TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_checkout_sessions_link_id ON checkout_sessions (link_id)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  freight_carrier TEXT NOT NULL DEFAULT '',
  freight_service TEXT NOT NULL DEFAULT '',
  freight_price_cents INTEGER NOT NULL DEFAULT 0,
  freight_lead_time_days INTEGER NOT NULL DEFAULT 0,
  delivery_address TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  link_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_orders_link_id ON orders (link_id) WHERE link_id IS NOT NULL`,
	`CREATE TABLE order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE payment_transactions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway_transaction_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  installments INTEGER NOT NULL DEFAULT 1 CHECK (installments BETWEEN 1 AND 12),
  link_id TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_payment_transactions_link_id ON payment_transactions (link_id)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
}

// Open creates a file-backed SQLite database under t.TempDir. Transactions
// begin IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing, which stands in for postgres row locks.
func Open(t *testing.T) *db.Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "labstore.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	client := db.NewFromConn(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// DefaultAddress is a complete delivery address.
func DefaultAddress() types.Address {
	return types.Address{
		Street:       "Av. Paulista",
		Number:       "1000",
		Neighborhood: "Bela Vista",
		City:         "Sao Paulo",
		State:        "SP",
		PostalCode:   "01310-100",
		Country:      "BR",
	}
}

// SeedCustomer inserts a customer with a stored delivery address.
func SeedCustomer(t *testing.T, conn *gorm.DB) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		ID:       uuid.New(),
		Name:     "Maria Souza",
		Email:    fmt.Sprintf("maria_%s@example.com", uuid.NewString()[:8]),
		Document: "39053344705",
		Address:  DefaultAddress(),
	}
	if err := conn.Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

// SeedProduct inserts an active product with the given price and stock.
func SeedProduct(t *testing.T, conn *gorm.DB, name string, priceCents int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		PriceCents:  priceCents,
		Stock:       stock,
		Status:      enums.ProductStatusActive,
		WeightGrams: 300,
		LengthCM:    20,
		WidthCM:     15,
		HeightCM:    5,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// StockOf reads the current stock column.
func StockOf(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// Count returns the number of rows in the model's table matching the optional condition.
func Count(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	tx := conn.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}
