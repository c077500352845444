package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func quantityKey(productID int64) string {
	return fmt.Sprintf("product:qty:%d", productID)
}

// SaveSession stores a session token with the user it identifies. The token
// expires after ttl.
func (c *Client) SaveSession(ctx context.Context, token string, userID int64, role string, ttl time.Duration) error {
	key := sessionKey(token)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "user_id", userID, "role", role)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession resolves a session token to (userID, role). A missing or
// expired token returns found=false with no error.
func (c *Client) GetSession(ctx context.Context, token string) (userID int64, role string, found bool, err error) {
	result, err := c.rdb.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return 0, "", false, err
	}
	if len(result) == 0 {
		return 0, "", false, nil
	}

	userID, err = strconv.ParseInt(result["user_id"], 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("corrupt session %s: %w", token, err)
	}
	return userID, result["role"], true, nil
}

// DeleteSession removes a session token
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

// SetQuantity caches a product's available quantity for read paths
func (c *Client) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	return c.rdb.Set(ctx, quantityKey(productID), quantity, 0).Err()
}

// GetQuantity reads a cached product quantity. A cache miss returns
// found=false with no error.
func (c *Client) GetQuantity(ctx context.Context, productID int64) (quantity int, found bool, err error) {
	val, err := c.rdb.Get(ctx, quantityKey(productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	quantity, err = strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached quantity for product %d: %w", productID, err)
	}
	return quantity, true, nil
}
