package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	billingapp "github.com/storefront/backend/internal/application/billing"
)

// cachedBalance is the serialized form of a balance snapshot. Amounts are
// stored as strings to keep decimal precision across the round trip.
type cachedBalance struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	Total         string    `json:"total"`
	AppliedAmount string    `json:"applied_amount"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
	CachedAt      time.Time `json:"cached_at"`
}

// RedisBalanceCache caches derived invoice balances in Redis. It is a
// read-side convenience only; the transaction ledger remains the source of
// truth and entries are rewritten or dropped after every ledger write.
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ billingapp.BalanceCache = (*RedisBalanceCache)(nil)

// NewRedisBalanceCache creates a Redis balance cache and verifies the connection
func NewRedisBalanceCache(addr, password string, db int, ttl time.Duration) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBalanceCacheWithClient(client, "", ttl), nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisBalanceCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisBalanceCache {
	if keyPrefix == "" {
		keyPrefix = "billing:balance:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisBalanceCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisBalanceCache) key(invoiceID uuid.UUID) string {
	return c.keyPrefix + invoiceID.String()
}

// Get returns the cached balance snapshot, or nil on a miss
func (c *RedisBalanceCache) Get(ctx context.Context, invoiceID uuid.UUID) (*billingapp.BalanceSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(invoiceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read balance cache: %w", err)
	}

	var cached cachedBalance
	if err := json.Unmarshal(data, &cached); err != nil {
		// Treat undecodable entries as a miss
		return nil, nil
	}

	total, err := decimal.NewFromString(cached.Total)
	if err != nil {
		return nil, nil
	}
	applied, err := decimal.NewFromString(cached.AppliedAmount)
	if err != nil {
		return nil, nil
	}
	balance, err := decimal.NewFromString(cached.Balance)
	if err != nil {
		return nil, nil
	}

	return &billingapp.BalanceSnapshot{
		InvoiceID:     cached.InvoiceID,
		Total:         total,
		AppliedAmount: applied,
		Balance:       balance,
		Status:        cached.Status,
	}, nil
}

// Set stores a balance snapshot with the configured TTL
func (c *RedisBalanceCache) Set(ctx context.Context, snapshot billingapp.BalanceSnapshot) error {
	cached := cachedBalance{
		InvoiceID:     snapshot.InvoiceID,
		Total:         snapshot.Total.String(),
		AppliedAmount: snapshot.AppliedAmount.String(),
		Balance:       snapshot.Balance.String(),
		Status:        snapshot.Status,
		CachedAt:      time.Now(),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode balance cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(snapshot.InvoiceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write balance cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry after a ledger write
func (c *RedisBalanceCache) Invalidate(ctx context.Context, invoiceID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(invoiceID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate balance cache: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}
