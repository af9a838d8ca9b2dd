package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fieldops/fieldops/internal/jobs"
	"github.com/fieldops/fieldops/internal/materials"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeRefresher) Refresh(_ context.Context, projectID string) ([]materials.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, projectID)
	if err := f.fail[projectID]; err != nil {
		return nil, err
	}
	return []materials.CatalogItem{{ID: projectID + "-m1"}, {ID: projectID + "-m2"}}, nil
}

func newWarmupJob(refresher CatalogRefresher, defaults []string) *CatalogWarmupJob {
	return NewCatalogWarmupJob(refresher, defaults, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestNewCatalogWarmupTaskDropsBlankIDs(t *testing.T) {
	task, err := NewCatalogWarmupTask([]string{"p1", "  ", " p2 "})
	require.NoError(t, err)
	assert.Equal(t, TaskCatalogWarmup, task.Type())
	assert.JSONEq(t, `{"projectIds":["p1","p2"]}`, string(task.Payload()))
}

func TestCatalogWarmupRefreshesPayloadProjects(t *testing.T) {
	refresher := &fakeRefresher{}
	task, err := NewCatalogWarmupTask([]string{"p2", "p1", "p2"})
	require.NoError(t, err)

	require.NoError(t, newWarmupJob(refresher, []string{"p9"}).Handle(context.Background(), task))
	assert.Equal(t, []string{"p1", "p2"}, refresher.calls)
}

func TestCatalogWarmupFallsBackToConfiguredProjects(t *testing.T) {
	refresher := &fakeRefresher{}
	task, err := NewCatalogWarmupTask(nil)
	require.NoError(t, err)

	require.NoError(t, newWarmupJob(refresher, []string{"p9"}).Handle(context.Background(), task))
	assert.Equal(t, []string{"p9"}, refresher.calls)
}

func TestCatalogWarmupWithoutProjectsIsNoop(t *testing.T) {
	refresher := &fakeRefresher{}
	task, err := NewCatalogWarmupTask(nil)
	require.NoError(t, err)

	require.NoError(t, newWarmupJob(refresher, nil).Handle(context.Background(), task))
	assert.Empty(t, refresher.calls)
}

func TestCatalogWarmupAttemptsEveryProject(t *testing.T) {
	boom := errors.New("upstream down")
	refresher := &fakeRefresher{fail: map[string]error{"p1": boom}}
	task, err := NewCatalogWarmupTask([]string{"p1", "p2"})
	require.NoError(t, err)

	err = newWarmupJob(refresher, nil).Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "project p1")
	assert.Equal(t, []string{"p1", "p2"}, refresher.calls)
}

func TestCatalogWarmupSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskCatalogWarmup, []byte("{"))

	err := newWarmupJob(&fakeRefresher{}, nil).Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCatalogWarmupRequiresCatalog(t *testing.T) {
	task, err := NewCatalogWarmupTask(nil)
	require.NoError(t, err)

	assert.Error(t, newWarmupJob(nil, nil).Handle(context.Background(), task))
}

func TestNewWorkerValidatesRegistrations(t *testing.T) {
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err := NewWorker(WorkerConfig{RedisOpts: opts})
	assert.Error(t, err)

	task, err := NewCatalogWarmupTask(nil)
	require.NoError(t, err)
	handler := TaskHandler{Type: TaskCatalogWarmup, Handler: newWarmupJob(&fakeRefresher{}, nil).Handle}

	_, err = NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{handler},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.Error(t, err)

	worker, err := NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{handler},
		Cron:      []CronRegistration{{Spec: "@every 30m", Task: task}},
	})
	require.NoError(t, err)
	assert.NotNil(t, worker)
}

func TestRedisOpt(t *testing.T) {
	opt, err := RedisOpt("redis://:secret@cache.internal:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 3, opt.DB)

	_, err = RedisOpt("")
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
		size      int
		archived  int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Size: 5, Pending: 3, Archived: 2}}, status: http.StatusOK, pending: 3, size: 5, archived: 2},
		{name: "inspector error", inspector: stubInspector{err: errors.New("redis down")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
			assert.Equal(t, tc.size, body.Size)
			assert.Equal(t, tc.archived, body.Archived)
		})
	}
}
