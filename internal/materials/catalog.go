package materials

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// CatalogStore caches mapped catalogs per project.
type CatalogStore interface {
	Get(ctx context.Context, projectID string) ([]CatalogItem, bool, error)
	Set(ctx context.Context, projectID string, items []CatalogItem) error
	Bump(ctx context.Context) error
}

// LookupObserver counts catalog cache results.
type LookupObserver interface {
	ObserveCatalogLookup(result string)
}

// Catalog lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Catalog fetches project catalogs, serving repeated lookups from the store
// and collapsing concurrent misses for the same project.
type Catalog struct {
	api     API
	store   CatalogStore
	group   singleflight.Group
	lookups LookupObserver
	logger  *slog.Logger
	now     func() time.Time
}

// NewCatalog constructs the catalog lookup. store may be nil.
func NewCatalog(api API, store CatalogStore, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{api: api, store: store, logger: logger, now: time.Now}
}

// ObserveLookups attaches a lookup counter.
func (c *Catalog) ObserveLookups(observer LookupObserver) {
	c.lookups = observer
}

func (c *Catalog) observe(result string) {
	if c.lookups != nil {
		c.lookups.ObserveCatalogLookup(result)
	}
}

// List returns the catalog scoped to projectID; filtering happens server side.
func (c *Catalog) List(ctx context.Context, projectID string) ([]CatalogItem, error) {
	projectID = strings.TrimSpace(projectID)
	if c.store != nil {
		items, ok, err := c.store.Get(ctx, projectID)
		if err != nil {
			c.logger.Warn("catalog cache read failed", slog.String("project_id", projectID), slog.Any("error", err))
		} else if ok {
			c.observe(LookupHit)
			return items, nil
		}
	}
	c.observe(LookupMiss)

	resultChan := c.group.DoChan(projectID, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), projectID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			c.observe(LookupError)
			return nil, res.Err
		}
		return res.Val.([]CatalogItem), nil
	}
}

// Refresh fetches the catalog bypassing the cache and stores the result.
func (c *Catalog) Refresh(ctx context.Context, projectID string) ([]CatalogItem, error) {
	return c.fetch(ctx, strings.TrimSpace(projectID))
}

// Invalidate drops every cached catalog.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Bump(ctx)
}

func (c *Catalog) fetch(ctx context.Context, projectID string) ([]CatalogItem, error) {
	query := url.Values{}
	if projectID != "" {
		query.Set("projectId", projectID)
	}
	started := c.now()
	raw, err := c.api.Get(ctx, "/materials/catalog", query)
	if err != nil {
		return nil, fmt.Errorf("materials: catalog: %w", err)
	}
	items, err := MapCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("materials: catalog: %w", err)
	}
	c.logger.Debug("catalog fetched",
		slog.String("project_id", projectID),
		slog.Int("items", len(items)),
		slog.Duration("elapsed", c.now().Sub(started)),
	)
	if c.store != nil {
		if err := c.store.Set(ctx, projectID, items); err != nil {
			c.logger.Warn("catalog cache write failed", slog.String("project_id", projectID), slog.Any("error", err))
		}
	}
	return items, nil
}

// CatalogIndex resolves catalog entries by id.
type CatalogIndex struct {
	byID map[string]CatalogItem
}

// NewCatalogIndex indexes items by id; entries without an id are skipped.
func NewCatalogIndex(items []CatalogItem) *CatalogIndex {
	idx := &CatalogIndex{byID: make(map[string]CatalogItem, len(items))}
	for _, item := range items {
		if item.ID != "" {
			idx.byID[item.ID] = item
		}
	}
	return idx
}

// Find returns the catalog entry for materialID.
func (i *CatalogIndex) Find(materialID string) (CatalogItem, bool) {
	item, ok := i.byID[strings.TrimSpace(materialID)]
	return item, ok
}

// ValidateCreate checks that every line names a material from the catalog.
func (i *CatalogIndex) ValidateCreate(input CreateInput) error {
	var unknown []string
	for _, line := range input.Items {
		if _, ok := i.Find(line.MaterialID); !ok {
			unknown = append(unknown, line.MaterialID)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMaterial, strings.Join(unknown, ", "))
	}
	return nil
}

// LabelItems returns a copy of detail whose lines have empty names and units
// filled from the catalog.
func (i *CatalogIndex) LabelItems(detail MaterialRequestDetail) MaterialRequestDetail {
	items := make([]MaterialRequestItem, len(detail.Items))
	copy(items, detail.Items)
	for n, item := range items {
		entry, ok := i.Find(item.MaterialID)
		if !ok {
			continue
		}
		if item.MaterialName == "" {
			items[n].MaterialName = entry.Name
		}
		if item.Unit == "" {
			items[n].Unit = entry.Unit
		}
	}
	detail.Items = items
	return detail
}
