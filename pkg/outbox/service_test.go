package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/dbtest"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/enums"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	orderID := uuid.New()
	customerID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{CustomerID: customerID, Source: "direct_checkout"},
			Data:          map[string]any{"order_id": orderID.String()},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, client.DB().First(&row, "aggregate_id = ?", orderID).Error)
	require.Equal(t, enums.EventOrderCreated, row.EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, customerID, envelope.Actor.CustomerID)
	require.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)
	boom := errors.New("boom")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 0, dbtest.Count(t, client.DB(), &models.OutboxEvent{}, ""))
}

func TestEmitRequiresTransactionAndKnownType(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPaid}))
	require.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "unknown"}))
	require.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
	}), "aggregate id is required")
	require.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: "store",
		AggregateID:   uuid.New(),
	}))
	require.EqualValues(t, 0, dbtest.Count(t, client.DB(), &models.OutboxEvent{}, ""))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("timeout")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "timeout", *rows[0].LastError)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = repo.DeletePublishedBefore(conn, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}
