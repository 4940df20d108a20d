package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/dbtest"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
)

func TestFindByIDNotFound(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindByIDsSkipsMissing(t *testing.T) {
	client := dbtest.Open(t)
	a := dbtest.SeedProduct(t, client.DB(), "Raspberry Pi 5", 65000, 3)
	repo := NewRepository(client.DB())

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Raspberry Pi 5", found[a.ID].Name)
}

func TestDecrementStockInsideLockedTransaction(t *testing.T) {
	client := dbtest.Open(t)
	product := dbtest.SeedProduct(t, client.DB(), "Arduino Uno", 10000, 5)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		locked, err := txRepo.LockByID(ctx, product.ID)
		if err != nil {
			return err
		}
		return txRepo.DecrementStock(ctx, locked, 2)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, dbtest.StockOf(t, client.DB(), product.ID))
}

func TestDecrementStockRefusesToGoNegative(t *testing.T) {
	client := dbtest.Open(t)
	product := dbtest.SeedProduct(t, client.DB(), "Sensor DHT22", 2500, 1)
	repo := NewRepository(client.DB())

	err := repo.DecrementStock(context.Background(), product, 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	assert.Contains(t, typed.Message(), "Sensor DHT22")
	assert.Equal(t, 1, dbtest.StockOf(t, client.DB(), product.ID))

	assert.True(t, pkgerrors.IsCode(repo.DecrementStock(context.Background(), product, 0), pkgerrors.CodeValidation))
}
