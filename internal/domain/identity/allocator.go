package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CardAllocator hands out patient card ids. Ids are increasing but may have
// gaps; uniqueness is enforced by the store on insert.
type CardAllocator interface {
	Next(ctx context.Context) (int64, error)
}

// StoreCardAllocator returns the largest stored card id plus one.
type StoreCardAllocator struct {
	patients PatientRepository
}

func NewStoreCardAllocator(patients PatientRepository) *StoreCardAllocator {
	return &StoreCardAllocator{patients: patients}
}

func (a *StoreCardAllocator) Next(ctx context.Context) (int64, error) {
	max, err := a.patients.MaxCardID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read max card id: %w", err)
	}
	return max + 1, nil
}

// DefaultCardCounterKey is the redis key holding the last issued card id.
const DefaultCardCounterKey = "clinic:patient:card_id"

type cardCounter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Incr(ctx context.Context, key string) *goredis.IntCmd
}

// RedisCardAllocator issues card ids from a redis INCR counter. The counter
// is seeded from the store maximum the first time it is used, so an empty
// redis picks up where the store left off.
type RedisCardAllocator struct {
	rdb      cardCounter
	key      string
	patients PatientRepository

	mu     sync.Mutex
	seeded bool
}

func NewRedisCardAllocator(rdb *goredis.Client, patients PatientRepository) *RedisCardAllocator {
	return &RedisCardAllocator{rdb: rdb, key: DefaultCardCounterKey, patients: patients}
}

func (a *RedisCardAllocator) Next(ctx context.Context) (int64, error) {
	if err := a.seed(ctx); err != nil {
		return 0, err
	}
	id, err := a.rdb.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr card counter: %w", err)
	}
	return id, nil
}

func (a *RedisCardAllocator) seed(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seeded {
		return nil
	}
	max, err := a.patients.MaxCardID(ctx)
	if err != nil {
		return fmt.Errorf("read max card id: %w", err)
	}
	// SETNX leaves an existing counter alone.
	if err := a.rdb.SetNX(ctx, a.key, max, 0).Err(); err != nil {
		return fmt.Errorf("seed card counter: %w", err)
	}
	a.seeded = true
	return nil
}
