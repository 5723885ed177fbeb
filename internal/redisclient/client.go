package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// pendingValue marks a claimed idempotency key whose request has not finished
const pendingValue = "pending"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:product-create:%s", key)
}

// Reserve claims an idempotency key for ttl. If the key was already claimed
// it returns the product id stored for it, or "" while that request is
// still in flight.
func (c *Client) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	k := idempotencyKey(key)

	ok, err := c.rdb.SetNX(ctx, k, pendingValue, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := c.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = c.rdb.SetNX(ctx, k, pendingValue, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		return "", ok, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingValue {
		return "", false, nil
	}
	return val, false, nil
}

// Complete records the product created for key
func (c *Client) Complete(ctx context.Context, key, productID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), productID, ttl).Err()
}

// Release frees key so the request can be retried
func (c *Client) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

// releaseLockScript deletes the lock only while it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// AcquireLock acquires a distributed lock and returns the token that owns it
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases a distributed lock if token still owns it. A lock
// that expired and was taken by someone else is left alone.
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, c.rdb, []string{lockKey(key)}, token).Err()
}
