// Package store is the coordination substrate (spec.md §4.1, C1): typed key
// conventions over a key-value database (Redis) with transactions and sets.
// Every multi-key invariant in spec.md §3 is expressed here as a set of keys
// mutated together inside a watch/retry transaction; single-key reads and
// writes are plain, non-transactional calls.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guildsync/guildsync/domain"
)

// Client wraps a Redis connection with guildsync's key conventions.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing *redis.Client. Callers own the connection's
// lifecycle (Close).
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Raw exposes the underlying client for packages that need an operation this
// type doesn't wrap (e.g. a one-off SCAN for an operator tool).
func (c *Client) Raw() *redis.Client { return c.rdb }

// Get reads a single string key. Returns ("", false, nil) on miss.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	return v, true, nil
}

// Set writes a single string key unconditionally.
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	return nil
}

// Del removes any number of keys. Missing keys are not an error.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del %v: %w", keys, errors.Join(domain.ErrUpstream, err))
	}
	return nil
}

// SMembers returns every member of a set, or an empty slice if it's unset.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	return v, nil
}

// SUnion returns the union of several sets.
func (c *Client) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	v, err := c.rdb.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("sunion %v: %w", keys, errors.Join(domain.ErrUpstream, err))
	}
	return v, nil
}

// SAdd adds a member to a set.
func (c *Client) SAdd(ctx context.Context, key, member string) error {
	if err := c.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	return nil
}

// SRem removes a member from a set.
func (c *Client) SRem(ctx context.Context, key, member string) error {
	if err := c.rdb.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	return nil
}

// HGetFields reads several hash fields in one round trip. Missing fields
// come back as empty strings; the caller distinguishes miss-vs-empty where
// that matters (event time/name/link are never intentionally empty).
func (c *Client) HGetFields(ctx context.Context, key string, fields ...string) ([]string, error) {
	vals, err := c.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", key, errors.Join(domain.ErrUpstream, err))
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// MGet reads several string keys in one round trip. A missing key yields
// ("", false) at its index.
func (c *Client) MGet(ctx context.Context, keys ...string) ([]string, []bool, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("mget %v: %w", keys, errors.Join(domain.ErrUpstream, err))
	}
	outVals := make([]string, len(vals))
	outOK := make([]bool, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			outVals[i] = s
			outOK[i] = true
		}
	}
	return outVals, outOK, nil
}
