package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/henriqueponts/labstore-sub002/pkg/db/dbtest"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
)

func TestRepositoryGetOrCreateIsIdempotent(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	customer := dbtest.SeedCustomer(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	missing, err := repo.FindByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Nil(t, missing)

	first, err := repo.GetOrCreate(ctx, customer.ID)
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, customer.ID)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 1, dbtest.Count(t, conn, &models.Cart{}, "customer_id = ?", customer.ID))
}

func TestRepositoryLinesLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	customer := dbtest.SeedCustomer(t, conn)
	product := dbtest.SeedProduct(t, conn, "Caneca", 2500, 10)
	repo := NewRepository(conn)
	ctx := context.Background()

	cart, err := repo.GetOrCreate(ctx, customer.ID)
	require.NoError(t, err)

	line := &models.CartLine{CartID: cart.ID, ProductID: product.ID, Quantity: 2, UnitPriceCents: product.PriceCents}
	require.NoError(t, repo.SaveLine(ctx, line))
	require.NotEqual(t, uuid.Nil, line.ID)

	line.Quantity = 5
	require.NoError(t, repo.SaveLine(ctx, line))

	lines, err := repo.ListLines(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 5, lines[0].Quantity)
	require.NotNil(t, lines[0].Product)
	require.Equal(t, "Caneca", lines[0].Product.Name)

	found, err := repo.FindLine(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, line.ID, found.ID)

	absent, err := repo.FindLine(ctx, cart.ID, uuid.New())
	require.NoError(t, err)
	require.Nil(t, absent)

	cleared, err := repo.ClearByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	lines, err = repo.ListLines(ctx, customer.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestRepositoryClearLeavesOtherCustomersAlone(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	alice := dbtest.SeedCustomer(t, conn)
	bob := dbtest.SeedCustomer(t, conn)
	product := dbtest.SeedProduct(t, conn, "Camiseta", 5990, 10)
	repo := NewRepository(conn)
	ctx := context.Background()

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		cart, err := repo.GetOrCreate(ctx, id)
		require.NoError(t, err)
		require.NoError(t, repo.SaveLine(ctx, &models.CartLine{CartID: cart.ID, ProductID: product.ID, Quantity: 1, UnitPriceCents: 5990}))
	}

	_, err := repo.ClearByCustomer(ctx, alice.ID)
	require.NoError(t, err)

	bobLines, err := repo.ListLines(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobLines, 1)
}
