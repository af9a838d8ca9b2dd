package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogWarmup refreshes cached project catalogs.
	TaskCatalogWarmup = "materials:catalog_warmup"
)

// CatalogWarmupPayload lists the projects whose catalogs are refreshed.
// An empty list falls back to the worker's configured projects.
type CatalogWarmupPayload struct {
	ProjectIDs []string `json:"projectIds"`
}

// NewCatalogWarmupTask constructs an Asynq task. Blank ids are dropped.
func NewCatalogWarmupTask(projectIDs []string) (*asynq.Task, error) {
	payload := CatalogWarmupPayload{ProjectIDs: make([]string, 0, len(projectIDs))}
	for _, id := range projectIDs {
		if id = strings.TrimSpace(id); id != "" {
			payload.ProjectIDs = append(payload.ProjectIDs, id)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}
