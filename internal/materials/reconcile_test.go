package materials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQtyBounds(t *testing.T) {
	items := []MaterialRequestItem{
		{RequestedQty: 100, ApprovedQty: 80, DeliveredQty: 60},
		{RequestedQty: 10, ApprovedQty: 10, DeliveredQty: 12},
		{RequestedQty: 5, ApprovedQty: 0, DeliveredQty: 0},
		{RequestedQty: 0.3, ApprovedQty: 0.3, DeliveredQty: 0.1},
	}
	for _, item := range items {
		pending := PendingQty(item)
		assert.GreaterOrEqual(t, pending, 0.0)
		assert.LessOrEqual(t, pending, item.ApprovedQty)
	}
	assert.Equal(t, 20.0, PendingQty(items[0]))
	assert.True(t, IsFullyDelivered(items[1]))
	assert.Equal(t, 0.2, PendingQty(items[3]))
}

func TestItemTotalsAvoidFloatDrift(t *testing.T) {
	requested, approved, delivered := ItemTotals([]MaterialRequestItem{
		{RequestedQty: 12.1, ApprovedQty: 0.1, DeliveredQty: 0.1},
		{RequestedQty: 0.2, ApprovedQty: 0.2, DeliveredQty: 0.2},
	})
	assert.Equal(t, 12.3, requested)
	assert.Equal(t, 0.3, approved)
	assert.Equal(t, 0.3, delivered)
}

func TestItemAnomalies(t *testing.T) {
	assert.Empty(t, ItemAnomalies(MaterialRequestItem{RequestedQty: 10, ApprovedQty: 8, DeliveredQty: 8}))
	assert.Equal(t,
		[]Anomaly{AnomalyApprovedExceedsRequested, AnomalyDeliveredExceedsApproved},
		ItemAnomalies(MaterialRequestItem{RequestedQty: 10, ApprovedQty: 12, DeliveredQty: 15}),
	)
}

func TestRequestDeliveryProgressMatchesMapper(t *testing.T) {
	payloads := []string{
		`{"items": [{"id": "i1", "requestedQty": 100, "approvedQty": 80, "deliveries": [{"quantity": 30}, {"quantity": 30}]}]}`,
		`{"totalAprobado": 50, "totalEntregado": 50}`,
		`{"cantidad": 40, "totalEntregado": 10}`,
		`{"items": [{"id": "a", "cantidad": 3, "cantidadAprobada": 0}]}`,
		`{"totalAprobado": 8, "items": [{"id": "a", "cantidad": 4, "cantidadEntregada": 2}, {"id": "b", "cantidad": 6}]}`,
		`{"totalApprovedQuantity": 100, "totalDeliveredQuantity": 100, "items": [{"id": "a", "requestedQty": 100, "approvedQty": 100, "deliveredQty": 40}]}`,
	}
	for _, raw := range payloads {
		detail := MapRequestDetail(decodeJSON(t, raw))
		assert.Equal(t, detail.DeliveryProgress, RequestDeliveryProgress(detail), raw)
		assert.Equal(t, detail.DeliveryProgress, Summarize(detail).Progress, raw)
	}

	explicitOnly := MapRequestDetail(decodeJSON(t, `{"avance": 64}`))
	assert.Equal(t, 64, RequestDeliveryProgress(explicitOnly))
}

func TestSummarize(t *testing.T) {
	detail := MapRequestDetail(decodeJSON(t, `{
		"id": "r1",
		"estado": "enviado",
		"items": [
			{"id": "i1", "materialName": "Cemento", "requestedQty": 100, "approvedQty": 80, "deliveredQty": 60},
			{"id": "i2", "materialName": "Arena", "requestedQty": 5, "approvedQty": 5, "deliveredQty": 5}
		]
	}`))

	rec := Summarize(detail)
	assert.Equal(t, "r1", rec.RequestID)
	assert.Equal(t, StatusSent, rec.Status)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, 20.0, rec.Items[0].Pending)
	assert.False(t, rec.Items[0].FullyDelivered)
	assert.True(t, rec.Items[1].FullyDelivered)
	assert.Equal(t, 85.0, rec.Approved)
	assert.Equal(t, 65.0, rec.Delivered)
	assert.Equal(t, 20.0, rec.Pending)
	assert.Equal(t, 76, rec.Progress)
	assert.False(t, rec.FullyDelivered)

	empty := Summarize(MapRequestDetail(decodeJSON(t, `{"totalAprobado": 4, "totalEntregado": 1}`)))
	assert.Empty(t, empty.Items)
	assert.Equal(t, 3.0, empty.Pending)
	assert.False(t, empty.FullyDelivered)
}

func TestSummarizeUsesExplicitTotals(t *testing.T) {
	detail := MapRequestDetail(decodeJSON(t, `{
		"id": "r2",
		"totalApprovedQuantity": 100,
		"totalDeliveredQuantity": 100,
		"items": [{"id": "a", "materialName": "Cemento", "requestedQty": 100, "approvedQty": 100, "deliveredQty": 40}]
	}`))
	require.Equal(t, 100, detail.DeliveryProgress)

	rec := Summarize(detail)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, 100.0, rec.Approved)
	assert.Equal(t, 100.0, rec.Delivered)
	assert.Equal(t, 0.0, rec.Pending)
	assert.True(t, rec.FullyDelivered)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, 60.0, rec.Items[0].Pending)
}

func TestSummarizeKeepsLinePendingWithoutOverrides(t *testing.T) {
	detail := MapRequestDetail(decodeJSON(t, `{
		"items": [
			{"id": "a", "requestedQty": 10, "approvedQty": 10, "deliveredQty": 12},
			{"id": "b", "requestedQty": 5, "approvedQty": 5, "deliveredQty": 1}
		]
	}`))

	rec := Summarize(detail)
	assert.Equal(t, 4.0, rec.Pending)
	assert.False(t, rec.FullyDelivered)
	assert.Equal(t, detail.DeliveryProgress, rec.Progress)
}
