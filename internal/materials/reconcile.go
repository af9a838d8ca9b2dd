package materials

import (
	"math"

	"github.com/shopspring/decimal"
)

// Anomaly flags a line whose quantities break the expected ordering
// delivered <= approved <= requested. Anomalies are informational only.
type Anomaly string

const (
	AnomalyApprovedExceedsRequested Anomaly = "approved_exceeds_requested"
	AnomalyDeliveredExceedsApproved Anomaly = "delivered_exceeds_approved"
)

// ItemReconciliation is the derived view of one line.
type ItemReconciliation struct {
	ItemID         string    `json:"itemId"`
	MaterialName   string    `json:"materialName"`
	Unit           string    `json:"unit,omitempty"`
	Requested      float64   `json:"requested"`
	Approved       float64   `json:"approved"`
	Delivered      float64   `json:"delivered"`
	Pending        float64   `json:"pending"`
	FullyDelivered bool      `json:"fullyDelivered"`
	Anomalies      []Anomaly `json:"anomalies,omitempty"`
}

// Reconciliation summarises a request's fulfillment state.
type Reconciliation struct {
	RequestID      string               `json:"requestId"`
	Status         Status               `json:"status"`
	Items          []ItemReconciliation `json:"items"`
	Requested      float64              `json:"requested"`
	Approved       float64              `json:"approved"`
	Delivered      float64              `json:"delivered"`
	Pending        float64              `json:"pending"`
	Progress       int                  `json:"progress"`
	FullyDelivered bool                 `json:"fullyDelivered"`
}

// PendingQty is the approved quantity not yet delivered, never negative.
func PendingQty(item MaterialRequestItem) float64 {
	pending := decimal.NewFromFloat(item.ApprovedQty).Sub(decimal.NewFromFloat(item.DeliveredQty))
	if pending.IsNegative() {
		return 0
	}
	f, _ := pending.Float64()
	return f
}

// IsFullyDelivered reports whether nothing remains pending for the line.
func IsFullyDelivered(item MaterialRequestItem) bool {
	return PendingQty(item) == 0
}

// ItemAnomalies lists the ordering violations present on the line.
func ItemAnomalies(item MaterialRequestItem) []Anomaly {
	var out []Anomaly
	if item.ApprovedQty > item.RequestedQty {
		out = append(out, AnomalyApprovedExceedsRequested)
	}
	if item.DeliveredQty > item.ApprovedQty {
		out = append(out, AnomalyDeliveredExceedsApproved)
	}
	return out
}

// ItemTotals sums requested, approved and delivered quantities across lines.
func ItemTotals(items []MaterialRequestItem) (requested, approved, delivered float64) {
	var r, a, d decimal.Decimal
	for _, item := range items {
		r = r.Add(decimal.NewFromFloat(item.RequestedQty))
		a = a.Add(decimal.NewFromFloat(item.ApprovedQty))
		d = d.Add(decimal.NewFromFloat(item.DeliveredQty))
	}
	requested, _ = r.Float64()
	approved, _ = a.Float64()
	delivered, _ = d.Float64()
	return requested, approved, delivered
}

// RequestDeliveryProgress recomputes the completion percentage from the
// detail's resolved totals, where explicit aggregates already win over line
// sums. Line sums back any total the detail leaves unset. When no positive
// base exists the mapped value is kept.
func RequestDeliveryProgress(detail MaterialRequestDetail) int {
	requested, approved, delivered := resolvedTotals(detail)
	if positive(approved) || positive(requested) {
		return progressFromTotals(delivered, approved, requested)
	}
	return detail.DeliveryProgress
}

// Summarize derives the per-line and request-level reconciliation. The
// request-level quantities come from the same resolved totals as
// RequestDeliveryProgress.
func Summarize(detail MaterialRequestDetail) Reconciliation {
	rec := Reconciliation{
		RequestID: detail.ID,
		Status:    detail.Status,
		Items:     make([]ItemReconciliation, 0, len(detail.Items)),
	}
	var linePending decimal.Decimal
	for _, item := range detail.Items {
		line := ItemReconciliation{
			ItemID:         item.ID,
			MaterialName:   item.MaterialName,
			Unit:           item.Unit,
			Requested:      item.RequestedQty,
			Approved:       item.ApprovedQty,
			Delivered:      item.DeliveredQty,
			Pending:        PendingQty(item),
			FullyDelivered: IsFullyDelivered(item),
			Anomalies:      ItemAnomalies(item),
		}
		linePending = linePending.Add(decimal.NewFromFloat(line.Pending))
		rec.Items = append(rec.Items, line)
	}

	requested, approved, delivered := resolvedTotals(detail)
	rec.Requested = deref(requested)
	rec.Approved = deref(approved)
	rec.Delivered = deref(delivered)

	_, sumApproved, sumDelivered := ItemTotals(detail.Items)
	if len(detail.Items) > 0 && rec.Approved == sumApproved && rec.Delivered == sumDelivered {
		// over-delivery on one line must not offset another line
		rec.Pending, _ = linePending.Float64()
	} else {
		pending := decimal.NewFromFloat(rec.Approved).Sub(decimal.NewFromFloat(rec.Delivered))
		if pending.IsPositive() {
			rec.Pending, _ = pending.Float64()
		}
	}

	rec.Progress = RequestDeliveryProgress(detail)
	rec.FullyDelivered = rec.Pending == 0 && (len(detail.Items) > 0 || rec.Approved > 0)
	return rec
}

// resolvedTotals returns the detail's aggregate quantities, falling back to
// line sums for any aggregate left unset.
func resolvedTotals(detail MaterialRequestDetail) (requested, approved, delivered *float64) {
	requested = detail.TotalRequestedQuantity
	approved = detail.TotalApprovedQuantity
	delivered = detail.TotalDeliveredQuantity
	if len(detail.Items) == 0 || (requested != nil && approved != nil && delivered != nil) {
		return requested, approved, delivered
	}
	sumRequested, sumApproved, sumDelivered := ItemTotals(detail.Items)
	if requested == nil {
		requested = &sumRequested
	}
	if approved == nil {
		approved = &sumApproved
	}
	if delivered == nil {
		delivered = &sumDelivered
	}
	return requested, approved, delivered
}

func deliveredSum(deliveries []MaterialDelivery) float64 {
	var total decimal.Decimal
	for _, d := range deliveries {
		if d.Quantity > 0 {
			total = total.Add(decimal.NewFromFloat(d.Quantity))
		}
	}
	f, _ := total.Float64()
	return f
}

// progressFromTotals applies the delivered/approved then delivered/requested
// fallback, returning 0 when neither base is positive.
func progressFromTotals(delivered, approved, requested *float64) int {
	d := deref(delivered)
	switch {
	case positive(approved):
		return clampPercent(100 * d / *approved)
	case positive(requested):
		return clampPercent(100 * d / *requested)
	default:
		return 0
	}
}

func clampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	rounded := math.Round(v)
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return int(rounded)
	}
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
