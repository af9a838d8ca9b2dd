package materials

import (
	"errors"
	"fmt"
	"time"
)

// Status is the canonical lifecycle state of a material request.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
)

// IsValid checks if the status is one of the canonical values.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusSent, StatusDelivered, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further action applies.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusRejected
}

// CanApprove reports whether the approve action should be offered. The
// server remains the authority; this only drives which actions are shown.
func (s Status) CanApprove() bool {
	return s == StatusDraft || s == StatusPending
}

// CanReject reports whether the reject action should be offered.
func (s Status) CanReject() bool {
	return s == StatusDraft || s == StatusPending || s == StatusApproved
}

// CanDeliver reports whether the deliver action should be offered.
func (s Status) CanDeliver() bool {
	return s == StatusApproved || s == StatusSent
}

// Priority is derived from an urgent flag or a priority label.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// CatalogItem is a purchasable material definition scoped to a project.
type CatalogItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	SKU         string `json:"sku,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
}

// MaterialDelivery is one fulfillment event against a request item.
type MaterialDelivery struct {
	ID            string     `json:"id"`
	RequestItemID string     `json:"requestItemId,omitempty"`
	Quantity      float64    `json:"quantity"`
	LotID         string     `json:"lotId,omitempty"`
	LotNumber     string     `json:"lotNumber,omitempty"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty"`
	DeliveredBy   string     `json:"deliveredBy,omitempty"`
	Observations  string     `json:"observations,omitempty"`
}

// MaterialRequestItem is one line of a request.
type MaterialRequestItem struct {
	ID           string             `json:"id"`
	MaterialID   string             `json:"materialId,omitempty"`
	MaterialName string             `json:"materialName"`
	Unit         string             `json:"unit,omitempty"`
	RequestedQty float64            `json:"requestedQty"`
	ApprovedQty  float64            `json:"approvedQty"`
	DeliveredQty float64            `json:"deliveredQty"`
	LotID        string             `json:"lotId,omitempty"`
	LotNumber    string             `json:"lotNumber,omitempty"`
	Deliveries   []MaterialDelivery `json:"deliveries"`
}

// MaterialRequest is the list-level aggregate.
type MaterialRequest struct {
	ID                     string     `json:"id"`
	Code                   string     `json:"code,omitempty"`
	ProjectID              string     `json:"projectId,omitempty"`
	ProjectName            string     `json:"projectName,omitempty"`
	RequesterName          string     `json:"requesterName,omitempty"`
	RequestDate            *time.Time `json:"requestDate,omitempty"`
	Status                 Status     `json:"status"`
	StatusLabel            string     `json:"statusLabel,omitempty"`
	Priority               Priority   `json:"priority"`
	Reason                 string     `json:"reason,omitempty"`
	Observations           string     `json:"observations,omitempty"`
	DeliveryProgress       int        `json:"deliveryProgress"`
	TotalItems             *int       `json:"totalItems,omitempty"`
	TotalRequestedQuantity *float64   `json:"totalRequestedQuantity,omitempty"`
	TotalApprovedQuantity  *float64   `json:"totalApprovedQuantity,omitempty"`
	TotalDeliveredQuantity *float64   `json:"totalDeliveredQuantity,omitempty"`
	MaterialName           string     `json:"materialName,omitempty"`
	Quantity               *float64   `json:"quantity,omitempty"`
	Unit                   string     `json:"unit,omitempty"`
}

// MaterialRequestDetail extends MaterialRequest with lines, the flat
// delivery history and audit timestamps.
type MaterialRequestDetail struct {
	MaterialRequest
	Items         []MaterialRequestItem `json:"items"`
	Deliveries    []MaterialDelivery    `json:"deliveries"`
	ApprovedAt    *time.Time            `json:"approvedAt,omitempty"`
	ReceivedAt    *time.Time            `json:"receivedAt,omitempty"`
	RejectedAt    *time.Time            `json:"rejectedAt,omitempty"`
	UpdatedAt     *time.Time            `json:"updatedAt,omitempty"`
	WarehouseName string                `json:"warehouseName,omitempty"`
}

var (
	// ErrValidation marks local precondition failures. No request is sent.
	ErrValidation = errors.New("materials: invalid input")
	// ErrMissingID occurs when an operation needs a request id.
	ErrMissingID = fmt.Errorf("%w: request id required", ErrValidation)
	// ErrRejectReasonRequired occurs when a rejection has no observations.
	ErrRejectReasonRequired = fmt.Errorf("%w: rejection reason is required", ErrValidation)
	// ErrNoValidQuantities occurs when no delivery entry has a positive quantity.
	ErrNoValidQuantities = fmt.Errorf("%w: no valid quantities to deliver", ErrValidation)
	// ErrInvalidApprovedQty occurs when an approval override is negative or not finite.
	ErrInvalidApprovedQty = fmt.Errorf("%w: approved quantity must be a finite number >= 0", ErrValidation)
	// ErrEmptyItems occurs when a new request has no lines.
	ErrEmptyItems = fmt.Errorf("%w: at least one item is required", ErrValidation)
	// ErrMissingProject occurs when a new request has no project.
	ErrMissingProject = fmt.Errorf("%w: project id required", ErrValidation)
	// ErrUnknownMaterial occurs when a new request names a material outside the catalog.
	ErrUnknownMaterial = fmt.Errorf("%w: material not in project catalog", ErrValidation)
	// ErrMalformedPayload indicates a response that is not a JSON object or list.
	ErrMalformedPayload = errors.New("materials: malformed payload")
)
