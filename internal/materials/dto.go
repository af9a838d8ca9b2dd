package materials

import "time"

// ListFilter narrows List. Empty fields are not sent.
type ListFilter struct {
	ProjectID string
	Status    string
}

// ApproveItem overrides the approved quantity of one line.
type ApproveItem struct {
	ItemID      string   `json:"itemId" validate:"required"`
	ApprovedQty *float64 `json:"approvedQty,omitempty"`
}

// ApproveInput carries the optional observation and per-line overrides.
type ApproveInput struct {
	Observations string        `json:"observations,omitempty"`
	Items        []ApproveItem `json:"items,omitempty" validate:"dive"`
}

// RejectInput carries the mandatory rejection reason.
type RejectInput struct {
	Observations string `json:"observations"`
}

// DeliveryEntry is one delivered quantity, optionally tied to a line and lot.
type DeliveryEntry struct {
	ItemID       string  `json:"itemId,omitempty"`
	Quantity     float64 `json:"quantity"`
	LotID        string  `json:"lotId,omitempty"`
	LotNumber    string  `json:"lotNumber,omitempty"`
	Observations string  `json:"observations,omitempty"`
}

// DeliverInput registers one delivery event. Images are references to
// already uploaded files.
type DeliverInput struct {
	Deliveries   []DeliveryEntry `json:"deliveries" validate:"required"`
	Observations string          `json:"observations,omitempty"`
	Images       []string        `json:"images,omitempty"`
}

// CreateItem is one requested material.
type CreateItem struct {
	MaterialID string  `json:"materialId" validate:"required"`
	Qty        float64 `json:"qty" validate:"gt=0"`
}

// CreateInput submits a new request.
type CreateInput struct {
	ProjectID    string       `json:"projectId" validate:"required"`
	Items        []CreateItem `json:"items" validate:"required,min=1,dive"`
	Urgent       bool         `json:"urgent,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Observations string       `json:"observations,omitempty"`
	DeliveryDate *time.Time   `json:"deliveryDate,omitempty"`
}

type createBody struct {
	ProjectID    string       `json:"projectId"`
	Items        []CreateItem `json:"items"`
	Urgent       bool         `json:"urgent,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Observations string       `json:"observations,omitempty"`
	DeliveryDate string       `json:"deliveryDate,omitempty"`
}

type approveBody struct {
	Observations string        `json:"observations,omitempty"`
	Items        []ApproveItem `json:"items,omitempty"`
}

type rejectBody struct {
	Observations string `json:"observations"`
}

type deliverBody struct {
	Deliveries   []DeliveryEntry `json:"deliveries"`
	Observations string          `json:"observations,omitempty"`
	Images       []string        `json:"images,omitempty"`
}
