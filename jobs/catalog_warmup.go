package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fieldops/fieldops/internal/jobs"
	"github.com/fieldops/fieldops/internal/materials"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogRefresher refreshes one project's catalog, bypassing the cache.
type CatalogRefresher interface {
	Refresh(ctx context.Context, projectID string) ([]materials.CatalogItem, error)
}

// CatalogWarmupJob pre-populates the catalog cache for active projects.
type CatalogWarmupJob struct {
	Catalog  CatalogRefresher
	Projects []string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Timeout  time.Duration
}

// NewCatalogWarmupJob wires dependencies for the warmup handler. projects is
// used when a task carries no project ids.
func NewCatalogWarmupJob(catalog CatalogRefresher, projects []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{
		Catalog:  catalog,
		Projects: projects,
		Logger:   logger,
		Metrics:  metrics,
		Timeout:  20 * time.Second,
	}
}

// Handle processes catalog warmup tasks. Every project is attempted; the
// failures are joined into the returned error so Asynq retries the task.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("catalog warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	projects := payload.ProjectIDs
	if len(projects) == 0 {
		projects = j.Projects
	}
	projects = slices.DeleteFunc(slices.Compact(slices.Sorted(slices.Values(projects))), func(id string) bool {
		return strings.TrimSpace(id) == ""
	})

	tracker := j.metrics().Track(TaskCatalogWarmup)
	logger := j.logger()
	if len(projects) == 0 {
		logger.Info("no projects configured for catalog warmup")
		return tracker.End(nil)
	}

	started := time.Now()
	var errs []error
	items := 0
	for _, projectID := range projects {
		n, err := j.warmProject(ctx, projectID)
		if err != nil {
			logger.Error("warm catalog", slog.String("project_id", projectID), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("project %s: %w", projectID, err))
			continue
		}
		items += n
	}
	j.metrics().AddItems(TaskCatalogWarmup, items)
	logger.Info("completed catalog warmup",
		slog.Int("projects", len(projects)),
		slog.Int("failed", len(errs)),
		slog.Int("items", items),
		slog.Duration("duration", time.Since(started)),
	)
	return tracker.End(errors.Join(errs...))
}

func (j *CatalogWarmupJob) warmProject(ctx context.Context, projectID string) (int, error) {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	items, err := j.Catalog.Refresh(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCatalogWarmup))
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
