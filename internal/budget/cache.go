package budget

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/hearthledger/hearthledger/internal/shared"
)

// Cache memoizes computed period states behind versioned redis keys.
// The version is bumped on every write that can change derived state
// (assignment upserts, ledger changes, category metadata edits), so
// entries are keyed by content, never by "last computed value".
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the household's current budget state version,
// initialising when missing.
func (c *Cache) Version(ctx context.Context, householdID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := shared.BudgetVersionKey(householdID)
	ver, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates all memoized state for the household.
func (c *Cache) Bump(ctx context.Context, householdID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, shared.BudgetVersionKey(householdID)).Err()
}

// BuildKey composes a cache key from the household version and a content
// digest of the parts.
func (c *Cache) BuildKey(ctx context.Context, householdID uuid.UUID, parts ...string) (string, error) {
	ver, err := c.Version(ctx, householdID)
	if err != nil {
		return "", err
	}
	digest := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("budget:%s:%d:%s", householdID, ver, hex.EncodeToString(digest[:16])), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("budget: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	// Redis failures degrade to uncached; only loader and codec errors
	// fail the read.
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(payload, dest); unmarshalErr == nil {
			return nil
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	return json.Unmarshal(raw, dest)
}
