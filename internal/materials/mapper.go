package materials

import (
	"math"
	"time"

	p "github.com/fieldops/fieldops/internal/platform/payload"
)

// MapCatalogItem converts one raw catalog payload. Missing fields stay empty.
func MapCatalogItem(raw any) CatalogItem {
	obj, _ := p.AsObject(raw)
	item := CatalogItem{
		ID:          str(obj, catalogID),
		Name:        str(obj, catalogName),
		Unit:        str(obj, catalogUnit),
		SKU:         str(obj, catalogSKU),
		Code:        str(obj, catalogCode),
		Description: str(obj, catalogDescription),
		Brand:       str(obj, catalogBrand),
		Model:       str(obj, catalogModel),
	}
	if item.Name == "" {
		item.Name = item.Description
	}
	return item
}

// MapDelivery converts one raw delivery payload.
func MapDelivery(raw any) MaterialDelivery {
	obj, _ := p.AsObject(raw)
	qty, _ := p.Number(obj, deliveryQuantity...)
	return MaterialDelivery{
		ID:            str(obj, deliveryID),
		RequestItemID: str(obj, deliveryItemID),
		Quantity:      qty,
		LotID:         str(obj, lotID),
		LotNumber:     str(obj, lotNumber),
		DeliveredAt:   timestamp(obj, deliveryAt),
		DeliveredBy:   str(obj, deliveryBy),
		Observations:  str(obj, deliveryObservations),
	}
}

// MapItem converts one raw request line. Quantities default to zero and
// approvedQty defaults to requestedQty until the backend approves.
func MapItem(raw any) MaterialRequestItem {
	obj, _ := p.AsObject(raw)
	return mapItem(obj, nil)
}

func mapItem(obj p.Object, flat []MaterialDelivery) MaterialRequestItem {
	item := MaterialRequestItem{
		ID:           str(obj, itemID),
		MaterialID:   str(obj, itemMaterialID),
		MaterialName: str(obj, itemMaterialName),
		Unit:         str(obj, itemUnit),
		LotID:        str(obj, lotID),
		LotNumber:    str(obj, lotNumber),
		Deliveries:   mapDeliveries(obj, itemDeliveries),
	}
	if len(item.Deliveries) == 0 && item.ID != "" {
		for _, d := range flat {
			if d.RequestItemID == item.ID {
				item.Deliveries = append(item.Deliveries, d)
			}
		}
	}
	for i := range item.Deliveries {
		if item.Deliveries[i].RequestItemID == "" {
			item.Deliveries[i].RequestItemID = item.ID
		}
	}

	item.RequestedQty = nonNegative(p.Number(obj, itemRequested...))
	if approved, ok := p.Number(obj, itemApproved...); ok {
		item.ApprovedQty = math.Max(approved, 0)
	} else {
		item.ApprovedQty = item.RequestedQty
	}
	if delivered, ok := p.Number(obj, itemDelivered...); ok {
		item.DeliveredQty = math.Max(delivered, 0)
	} else {
		item.DeliveredQty = deliveredSum(item.Deliveries)
	}
	return item
}

// MapRequest converts one raw request payload into the list-level aggregate.
func MapRequest(raw any) MaterialRequest {
	return MapRequestDetail(raw).MaterialRequest
}

// MapRequestDetail converts one raw request payload including its lines,
// flat delivery history and audit timestamps. Items and Deliveries are
// always non-nil.
func MapRequestDetail(raw any) MaterialRequestDetail {
	obj, _ := p.AsObject(p.Unwrap(raw))

	flat := mapDeliveries(obj, requestDeliveries)
	_, hasFlat := p.List(obj, requestDeliveries...)

	rawItems, _ := p.List(obj, requestItems...)
	items := make([]MaterialRequestItem, 0, len(rawItems))
	for _, entry := range rawItems {
		if itemObj, ok := p.AsObject(entry); ok {
			items = append(items, mapItem(itemObj, flat))
		}
	}
	if !hasFlat {
		for _, item := range items {
			flat = append(flat, item.Deliveries...)
		}
	}

	detail := MaterialRequestDetail{
		MaterialRequest: mapHeader(obj, items),
		Items:           items,
		Deliveries:      flat,
		ApprovedAt:      timestamp(obj, requestApprovedAt),
		ReceivedAt:      timestamp(obj, requestReceivedAt),
		RejectedAt:      timestamp(obj, requestRejectedAt),
		UpdatedAt:       timestamp(obj, requestUpdatedAt),
		WarehouseName:   str(obj, requestWarehouse),
	}
	return detail
}

// MapRequests maps a list response. Entries that are not objects are skipped.
func MapRequests(raw any) ([]MaterialRequest, error) {
	list, ok := p.AsList(raw)
	if !ok {
		return nil, ErrMalformedPayload
	}
	out := make([]MaterialRequest, 0, len(list))
	for _, entry := range list {
		if _, ok := p.AsObject(entry); ok {
			out = append(out, MapRequest(entry))
		}
	}
	return out, nil
}

// MapCatalog maps a catalog list response.
func MapCatalog(raw any) ([]CatalogItem, error) {
	list, ok := p.AsList(raw)
	if !ok {
		return nil, ErrMalformedPayload
	}
	out := make([]CatalogItem, 0, len(list))
	for _, entry := range list {
		if _, ok := p.AsObject(entry); ok {
			out = append(out, MapCatalogItem(entry))
		}
	}
	return out, nil
}

func mapHeader(obj p.Object, items []MaterialRequestItem) MaterialRequest {
	req := MaterialRequest{
		ID:            str(obj, requestID),
		Code:          str(obj, requestCode),
		ProjectID:     str(obj, requestProjectID),
		ProjectName:   str(obj, requestProjectName),
		RequesterName: str(obj, requestRequester),
		RequestDate:   timestamp(obj, requestDate),
		Reason:        str(obj, requestReason),
		Observations:  str(obj, requestObservations),
		MaterialName:  str(obj, requestMaterialName),
		Unit:          str(obj, requestUnit),
		Priority:      mapPriority(obj),
	}
	req.Status, req.StatusLabel = mapStatus(obj)
	if qty, ok := p.Number(obj, requestQuantity...); ok {
		req.Quantity = &qty
	}

	if len(items) > 0 {
		first := items[0]
		if req.MaterialName == "" {
			req.MaterialName = first.MaterialName
		}
		if req.Unit == "" {
			req.Unit = first.Unit
		}
		if req.Quantity == nil {
			qty := first.RequestedQty
			req.Quantity = &qty
		}
	}

	applyTotals(obj, &req, items)

	if explicit, ok := p.Number(obj, requestProgress...); ok {
		req.DeliveryProgress = clampPercent(explicit)
	} else {
		req.DeliveryProgress = progressFromTotals(req.TotalDeliveredQuantity, req.TotalApprovedQuantity, req.TotalRequestedQuantity)
	}
	return req
}

// applyTotals fills the aggregate fields. Each explicit aggregate wins over
// the value summed from items.
func applyTotals(obj p.Object, req *MaterialRequest, items []MaterialRequestItem) {
	if len(items) > 0 {
		count := len(items)
		requested, approved, delivered := ItemTotals(items)
		req.TotalItems = &count
		req.TotalRequestedQuantity = &requested
		req.TotalApprovedQuantity = &approved
		req.TotalDeliveredQuantity = &delivered
	} else {
		if req.Quantity != nil {
			qty := *req.Quantity
			req.TotalRequestedQuantity = &qty
		}
		if req.MaterialName != "" || req.Quantity != nil {
			one := 1
			req.TotalItems = &one
		}
	}

	if n, ok := p.Number(obj, requestTotalItems...); ok && n >= 0 {
		count := int(math.Round(n))
		req.TotalItems = &count
	}
	if v, ok := p.Number(obj, requestTotalRequested...); ok {
		v = math.Max(v, 0)
		req.TotalRequestedQuantity = &v
	}
	if v, ok := p.Number(obj, requestTotalApproved...); ok {
		v = math.Max(v, 0)
		req.TotalApprovedQuantity = &v
	}
	if v, ok := p.Number(obj, requestTotalDelivered...); ok {
		v = math.Max(v, 0)
		req.TotalDeliveredQuantity = &v
	}
}

func mapStatus(obj p.Object) (Status, string) {
	code, ok := p.String(obj, requestStatusCode...)
	var label string
	if !ok {
		if nested, found := p.FirstObject(obj, requestStatusCode...); found {
			code, _ = p.String(nested, p.Key(statusCodes...))
			label, _ = p.String(nested, p.Key(statusLabels...))
		}
	}
	if explicit, found := p.String(obj, requestStatusLabel...); found {
		label = explicit
	}
	return ParseStatus(code), label
}

func mapPriority(obj p.Object) Priority {
	if raw, ok := p.String(obj, requestPriority...); ok {
		if priority, known := ParsePriority(raw); known {
			return priority
		}
	}
	if urgent, ok := p.Bool(obj, requestUrgent...); ok && urgent {
		return PriorityHigh
	}
	return PriorityMedium
}

func mapDeliveries(obj p.Object, accessors []p.Accessor) []MaterialDelivery {
	list, _ := p.List(obj, accessors...)
	out := make([]MaterialDelivery, 0, len(list))
	for _, entry := range list {
		if _, ok := p.AsObject(entry); ok {
			out = append(out, MapDelivery(entry))
		}
	}
	return out
}

func str(obj p.Object, accessors []p.Accessor) string {
	s, _ := p.String(obj, accessors...)
	return s
}

func timestamp(obj p.Object, accessors []p.Accessor) *time.Time {
	t, ok := p.Time(obj, accessors...)
	if !ok {
		return nil
	}
	return &t
}

func nonNegative(v float64, ok bool) float64 {
	if !ok || v < 0 {
		return 0
	}
	return v
}
