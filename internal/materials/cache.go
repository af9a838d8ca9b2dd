package materials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const catalogVersionKey = "materials:catalog:version"

// CatalogCache stores mapped catalogs per project in Redis behind a global
// version so Bump invalidates every project at once.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache instantiates the cache helper. A nil client disables caching.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *CatalogCache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, catalogVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, catalogVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, catalogVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *CatalogCache) key(ctx context.Context, projectID string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	if projectID == "" {
		projectID = "_all"
	}
	return strings.Join([]string{"materials", "catalog", projectID, strconv.FormatInt(ver, 10)}, ":"), nil
}

// Get returns the cached catalog; ok is false on a miss.
func (c *CatalogCache) Get(ctx context.Context, projectID string) ([]CatalogItem, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	key, err := c.key(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("materials: decode cached catalog: %w", err)
	}
	return items, true, nil
}

// Set stores the catalog under the current version.
func (c *CatalogCache) Set(ctx context.Context, projectID string, items []CatalogItem) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, projectID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached catalog. Readers resolve the version on each
// lookup, so other instances see the new version on their next read.
func (c *CatalogCache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, catalogVersionKey).Err()
}
