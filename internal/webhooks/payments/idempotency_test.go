package paymentwebhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/henriqueponts/labstore-sub002/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func TestIdempotencyGuardRecordsOnlyOnMark(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, redis.WebhookScope("gateway"))
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.Seen(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	seen, err = guard.Seen(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("unsettled event must stay unseen: seen=%v err=%v", seen, err)
	}

	if err := guard.Mark(ctx, "evt_1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	seen, err = guard.Seen(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("after mark: seen=%v err=%v", seen, err)
	}
}

func TestIdempotencyGuardMarkOutlivesCanceledContext(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "scope")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := guard.Mark(ctx, "evt_gone"); err != nil {
		t.Fatalf("mark on canceled context: %v", err)
	}
	seen, err := guard.Seen(context.Background(), "evt_gone")
	if err != nil || !seen {
		t.Fatalf("expected event recorded, seen=%v err=%v", seen, err)
	}
}

func TestIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), -time.Second, "scope"); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, ""); err == nil {
		t.Fatalf("expected error for empty scope")
	}
	guard, _ := NewIdempotencyGuard(newMemoryStore(), time.Hour, "scope")
	if _, err := guard.Seen(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty event id")
	}
	if err := guard.Mark(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty event id")
	}
}
