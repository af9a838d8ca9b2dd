package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fieldops/fieldops/internal/materials"
	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	"github.com/fieldops/fieldops/internal/shared"
)

type stubMaterials struct {
	scope   shared.Scope
	filter  materials.ListFilter
	approve materials.ApproveInput
	reject  materials.RejectInput
	deliver materials.DeliverInput
	id      string
	err     error
}

func (s *stubMaterials) List(_ context.Context, scope shared.Scope, filter materials.ListFilter) ([]materials.MaterialRequest, error) {
	s.scope, s.filter = scope, filter
	return []materials.MaterialRequest{{ID: "1", Status: materials.StatusPending, Priority: materials.PriorityHigh}}, s.err
}

func (s *stubMaterials) GetDetail(_ context.Context, id string) (materials.MaterialRequestDetail, error) {
	s.id = id
	return detailFixture(id), s.err
}

func (s *stubMaterials) Approve(_ context.Context, id string, input materials.ApproveInput) (materials.MaterialRequestDetail, error) {
	s.id, s.approve = id, input
	return detailFixture(id), s.err
}

func (s *stubMaterials) Reject(_ context.Context, id string, input materials.RejectInput) (materials.MaterialRequestDetail, error) {
	s.id, s.reject = id, input
	return detailFixture(id), s.err
}

func (s *stubMaterials) Deliver(_ context.Context, id string, input materials.DeliverInput) (materials.MaterialRequestDetail, error) {
	s.id, s.deliver = id, input
	return detailFixture(id), s.err
}

func detailFixture(id string) materials.MaterialRequestDetail {
	return materials.MaterialRequestDetail{
		MaterialRequest: materials.MaterialRequest{ID: id, Status: materials.StatusSent, Priority: materials.PriorityMedium},
		Items: []materials.MaterialRequestItem{
			{ID: "a", MaterialName: "Cemento", RequestedQty: 10, ApprovedQty: 8, DeliveredQty: 3},
		},
	}
}

type stubCatalog struct {
	project string
}

func (s *stubCatalog) List(_ context.Context, projectID string) ([]materials.CatalogItem, error) {
	s.project = projectID
	return []materials.CatalogItem{{ID: "m1", Name: "Cable", Unit: "metros"}}, nil
}

type stubQueue struct {
	projects []string
}

func (s *stubQueue) EnqueueCatalogWarmup(_ context.Context, projectIDs []string) (*asynq.TaskInfo, error) {
	s.projects = projectIDs
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

func (s *stubQueue) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: "default", Pending: 2}, nil
}

func newRunner(m *stubMaterials) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	return &Runner{Materials: m, Catalog: &stubCatalog{}, Queue: &stubQueue{}, Stdout: stdout, Stderr: stderr}, stdout, stderr
}

func TestListPassesScopeAndFilter(t *testing.T) {
	m := &stubMaterials{}
	runner, stdout, _ := newRunner(m)

	code := runner.Run(context.Background(), []string{"list", "-projects", "p1,p2", "-status", "pending"})
	require.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"p1", "p2"}, m.scope.ProjectIDs)
	assert.False(t, m.scope.Unrestricted)
	assert.Equal(t, "pending", m.filter.Status)

	var out struct {
		Items []materials.MaterialRequest `json:"items"`
		Total int                         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, materials.PriorityHigh, out.Items[0].Priority)
}

func TestReconcileYAMLUsesCanonicalKeys(t *testing.T) {
	m := &stubMaterials{}
	runner, stdout, _ := newRunner(m)

	code := runner.Run(context.Background(), []string{"reconcile", "42", "-o", "yaml"})
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "42", m.id)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "42", out["requestId"])
	assert.Equal(t, 5, out["pending"])
	assert.Equal(t, 38, out["progress"])
}

func TestApproveParsesOverrides(t *testing.T) {
	m := &stubMaterials{}
	runner, _, _ := newRunner(m)

	code := runner.Run(context.Background(), []string{"approve", "42", "-obs", "ok", "-item", "a=8", "-item", "b=0"})
	require.Equal(t, ExitOK, code)
	require.Len(t, m.approve.Items, 2)
	assert.Equal(t, "a", m.approve.Items[0].ItemID)
	assert.Equal(t, 8.0, *m.approve.Items[0].ApprovedQty)
	assert.Equal(t, 0.0, *m.approve.Items[1].ApprovedQty)
	assert.Equal(t, "ok", m.approve.Observations)
}

func TestDeliverParsesLots(t *testing.T) {
	m := &stubMaterials{}
	runner, _, _ := newRunner(m)

	code := runner.Run(context.Background(), []string{"deliver", "42", "-item", "a=2.5:L-7", "-image", "img/1.jpg"})
	require.Equal(t, ExitOK, code)
	assert.Equal(t, []materials.DeliveryEntry{{ItemID: "a", Quantity: 2.5, LotNumber: "L-7"}}, m.deliver.Deliveries)
	assert.Equal(t, []string{"img/1.jpg"}, m.deliver.Images)
}

func TestBadItemIsUsageError(t *testing.T) {
	m := &stubMaterials{}
	runner, _, stderr := newRunner(m)

	code := runner.Run(context.Background(), []string{"deliver", "42", "-item", "a=lots"})
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr.String(), "itemId=qty")
	assert.Empty(t, m.id)
}

func TestLocalValidationIsUsageError(t *testing.T) {
	m := &stubMaterials{err: materials.ErrRejectReasonRequired}
	runner, _, stderr := newRunner(m)

	code := runner.Run(context.Background(), []string{"reject", "42"})
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr.String(), "rejection reason is required")
}

func TestShortfallsArePrinted(t *testing.T) {
	apiErr := &fieldapi.Error{
		Method:     "POST",
		Path:       "/materials/requests/42/deliver",
		StatusCode: 422,
		Message:    "Stock insuficiente",
		Body: map[string]any{
			"insuficientes": []any{map[string]any{"nombre": "Cemento", "faltante": 5.0, "unidad": "bolsa"}},
		},
	}
	m := &stubMaterials{err: apiErr}
	runner, _, stderr := newRunner(m)

	code := runner.Run(context.Background(), []string{"deliver", "42", "-item", "a=1"})
	assert.Equal(t, ExitShortfalls, code)
	assert.Contains(t, stderr.String(), "  - Cemento: 5 bolsa")
}

func TestUpstreamErrorIsGenericFailure(t *testing.T) {
	m := &stubMaterials{err: errors.New("connection refused")}
	runner, _, _ := newRunner(m)

	assert.Equal(t, ExitError, runner.Run(context.Background(), []string{"detail", "42"}))
}

func TestCatalogAndQueueCommands(t *testing.T) {
	catalog := &stubCatalog{}
	queue := &stubQueue{}
	stdout := new(bytes.Buffer)
	runner := &Runner{Materials: &stubMaterials{}, Catalog: catalog, Queue: queue, Stdout: stdout, Stderr: new(bytes.Buffer)}

	require.Equal(t, ExitOK, runner.Run(context.Background(), []string{"catalog", "-project", "p1"}))
	assert.Equal(t, "p1", catalog.project)
	assert.Contains(t, stdout.String(), `"unit": "metros"`)

	stdout.Reset()
	require.Equal(t, ExitOK, runner.Run(context.Background(), []string{"warm-catalog", "-project", "p1,p2", "-project", "p2"}))
	assert.Equal(t, []string{"p1", "p2"}, queue.projects)
	assert.Contains(t, stdout.String(), `"taskId": "task-1"`)

	stdout.Reset()
	require.Equal(t, ExitOK, runner.Run(context.Background(), []string{"queue"}))
	assert.Contains(t, stdout.String(), `"pending": 2`)
}

func TestQueueCommandsWithoutQueue(t *testing.T) {
	runner := &Runner{Materials: &stubMaterials{}, Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}
	assert.Equal(t, ExitError, runner.Run(context.Background(), []string{"queue"}))
}

func TestUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"explode"}},
		{name: "unknown flag", args: []string{"list", "-bogus"}},
		{name: "bad format", args: []string{"detail", "1", "-o", "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner, _, _ := newRunner(&stubMaterials{})
			assert.Equal(t, ExitUsage, runner.Run(context.Background(), tc.args))
		})
	}
}

func TestParseItem(t *testing.T) {
	id, qty, lot, err := parseItem(" a = 3 : L1 ")
	require.NoError(t, err)
	assert.Equal(t, "a", id)
	assert.Equal(t, 3.0, qty)
	assert.Equal(t, "L1", lot)

	_, _, _, err = parseItem("=3")
	assert.ErrorIs(t, err, errBadItem)
}
