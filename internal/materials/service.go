package materials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	p "github.com/fieldops/fieldops/internal/platform/payload"
	"github.com/fieldops/fieldops/internal/shared"
)

const requestsPath = "/materials/requests"

// API is the remote field API. Responses are untyped JSON.
type API interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
}

// Journal records completed actions.
type Journal interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ActionObserver receives timing for every lifecycle action.
type ActionObserver interface {
	ObserveAction(action, outcome string, elapsed time.Duration)
}

// Action outcomes reported to the observer and journal.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "unprocessable"
	OutcomeError    = "error"
)

// Service orchestrates the material request lifecycle against the remote
// API. Every mutating action returns the server's updated request; status
// is never advanced locally.
type Service struct {
	api      API
	journal  Journal
	observer ActionObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the lifecycle service. journal and observer may be nil.
func NewService(api API, journal Journal, observer ActionObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, journal: journal, observer: observer, logger: logger, now: time.Now}
}

// List fetches requests visible to scope. Without an explicit project filter
// results are narrowed to the scope's assigned projects. Server order is kept.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]MaterialRequest, error) {
	query := url.Values{}
	projectID := strings.TrimSpace(filter.ProjectID)
	if projectID != "" {
		query.Set("projectId", projectID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query.Set("status", status)
	}
	raw, err := s.api.Get(ctx, requestsPath, query)
	if err != nil {
		return nil, fmt.Errorf("materials: list: %w", err)
	}
	requests, err := MapRequests(raw)
	if err != nil {
		return nil, fmt.Errorf("materials: list: %w", err)
	}
	if projectID != "" || scope.Unrestricted {
		return requests, nil
	}
	visible := make([]MaterialRequest, 0, len(requests))
	for _, req := range requests {
		if scope.Allows(req.ProjectID) {
			visible = append(visible, req)
		}
	}
	if dropped := len(requests) - len(visible); dropped > 0 {
		s.logger.Debug("requests outside scope dropped", slog.String("user_id", scope.UserID), slog.Int("dropped", dropped))
	}
	return visible, nil
}

// GetDetail fetches one request with its lines and delivery history.
func (s *Service) GetDetail(ctx context.Context, id string) (MaterialRequestDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MaterialRequestDetail{}, ErrMissingID
	}
	raw, err := s.api.Get(ctx, requestPath(id), nil)
	if err != nil {
		return MaterialRequestDetail{}, fmt.Errorf("materials: detail %s: %w", id, err)
	}
	return detailFrom(raw, "detail")
}

// GetDetails fetches several requests concurrently, at most limit at a time.
// Results follow the order of ids; the first failure cancels the rest.
func (s *Service) GetDetails(ctx context.Context, ids []string, limit int) ([]MaterialRequestDetail, error) {
	out := make([]MaterialRequestDetail, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			detail, err := s.GetDetail(ctx, id)
			if err != nil {
				return err
			}
			out[i] = detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create submits a new request and returns the id assigned by the server.
func (s *Service) Create(ctx context.Context, input CreateInput) (id string, err error) {
	started := s.now()
	defer func() {
		s.finish(ctx, "create", id, started, map[string]any{"project_id": input.ProjectID, "items": len(input.Items)}, err)
	}()

	body, err := buildCreateBody(input)
	if err != nil {
		return "", err
	}
	raw, err := s.api.Post(ctx, requestsPath, body)
	if err != nil {
		return "", fmt.Errorf("materials: create: %w", err)
	}
	obj, ok := p.AsObject(p.Unwrap(raw))
	if !ok {
		return "", fmt.Errorf("materials: create: %w", ErrMalformedPayload)
	}
	created, ok := p.String(obj, requestID...)
	if !ok {
		return "", fmt.Errorf("materials: create: missing id: %w", ErrMalformedPayload)
	}
	return created, nil
}

// Approve accepts a request, optionally overriding approved quantities per
// line. Only override sanity is checked locally; the server enforces state.
func (s *Service) Approve(ctx context.Context, id string, input ApproveInput) (detail MaterialRequestDetail, err error) {
	id = strings.TrimSpace(id)
	started := s.now()
	defer func() {
		s.finish(ctx, "approve", id, started, map[string]any{"overrides": len(input.Items)}, err)
	}()

	if id == "" {
		return MaterialRequestDetail{}, ErrMissingID
	}
	body := approveBody{Observations: strings.TrimSpace(input.Observations)}
	for _, item := range input.Items {
		itemID := strings.TrimSpace(item.ItemID)
		if itemID == "" {
			return MaterialRequestDetail{}, fmt.Errorf("%w: approval override without item id", ErrValidation)
		}
		if item.ApprovedQty != nil && (!finite(*item.ApprovedQty) || *item.ApprovedQty < 0) {
			return MaterialRequestDetail{}, fmt.Errorf("%w (item %s)", ErrInvalidApprovedQty, itemID)
		}
		body.Items = append(body.Items, ApproveItem{ItemID: itemID, ApprovedQty: item.ApprovedQty})
	}
	raw, err := s.api.Post(ctx, requestPath(id)+"/approve", body)
	if err != nil {
		return MaterialRequestDetail{}, fmt.Errorf("materials: approve %s: %w", id, err)
	}
	return detailFrom(raw, "approve")
}

// Reject declines a request. A reason is mandatory.
func (s *Service) Reject(ctx context.Context, id string, input RejectInput) (detail MaterialRequestDetail, err error) {
	id = strings.TrimSpace(id)
	reason := strings.TrimSpace(input.Observations)
	started := s.now()
	defer func() {
		s.finish(ctx, "reject", id, started, map[string]any{"reason": reason}, err)
	}()

	if id == "" {
		return MaterialRequestDetail{}, ErrMissingID
	}
	if reason == "" {
		return MaterialRequestDetail{}, ErrRejectReasonRequired
	}
	raw, err := s.api.Post(ctx, requestPath(id)+"/reject", rejectBody{Observations: reason})
	if err != nil {
		return MaterialRequestDetail{}, fmt.Errorf("materials: reject %s: %w", id, err)
	}
	return detailFrom(raw, "reject")
}

// Deliver registers delivered quantities. Entries whose quantity is not a
// finite positive number are dropped; if none remain nothing is sent.
func (s *Service) Deliver(ctx context.Context, id string, input DeliverInput) (detail MaterialRequestDetail, err error) {
	id = strings.TrimSpace(id)
	body := deliverBody{Observations: strings.TrimSpace(input.Observations)}
	for _, entry := range input.Deliveries {
		if !finite(entry.Quantity) || entry.Quantity <= 0 {
			continue
		}
		entry.ItemID = strings.TrimSpace(entry.ItemID)
		entry.LotID = strings.TrimSpace(entry.LotID)
		entry.LotNumber = strings.TrimSpace(entry.LotNumber)
		entry.Observations = strings.TrimSpace(entry.Observations)
		body.Deliveries = append(body.Deliveries, entry)
	}
	for _, ref := range input.Images {
		if ref = strings.TrimSpace(ref); ref != "" {
			body.Images = append(body.Images, ref)
		}
	}
	started := s.now()
	defer func() {
		s.finish(ctx, "deliver", id, started, map[string]any{"deliveries": len(body.Deliveries), "images": len(body.Images)}, err)
	}()

	if id == "" {
		return MaterialRequestDetail{}, ErrMissingID
	}
	if len(body.Deliveries) == 0 {
		return MaterialRequestDetail{}, ErrNoValidQuantities
	}
	raw, err := s.api.Post(ctx, requestPath(id)+"/deliver", body)
	if err != nil {
		return MaterialRequestDetail{}, fmt.Errorf("materials: deliver %s: %w", id, err)
	}
	return detailFrom(raw, "deliver")
}

func buildCreateBody(input CreateInput) (createBody, error) {
	body := createBody{
		ProjectID:    strings.TrimSpace(input.ProjectID),
		Urgent:       input.Urgent,
		Reason:       strings.TrimSpace(input.Reason),
		Observations: strings.TrimSpace(input.Observations),
	}
	if body.ProjectID == "" {
		return createBody{}, ErrMissingProject
	}
	if len(input.Items) == 0 {
		return createBody{}, ErrEmptyItems
	}
	for i, item := range input.Items {
		materialID := strings.TrimSpace(item.MaterialID)
		if materialID == "" {
			return createBody{}, fmt.Errorf("%w: item %d has no material", ErrValidation, i+1)
		}
		if !finite(item.Qty) || item.Qty <= 0 {
			return createBody{}, fmt.Errorf("%w: item %d quantity must be greater than zero", ErrValidation, i+1)
		}
		body.Items = append(body.Items, CreateItem{MaterialID: materialID, Qty: item.Qty})
	}
	if input.DeliveryDate != nil && !input.DeliveryDate.IsZero() {
		body.DeliveryDate = input.DeliveryDate.UTC().Format(time.DateOnly)
	}
	return body, nil
}

func (s *Service) finish(ctx context.Context, action, id string, started time.Time, meta map[string]any, err error) {
	outcome := outcomeOf(err)
	elapsed := s.now().Sub(started)
	if s.observer != nil {
		s.observer.ObserveAction(action, outcome, elapsed)
	}
	attrs := []any{
		slog.String("action", action),
		slog.String("request_id", id),
		slog.String("outcome", outcome),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger.Warn("material action failed", append(attrs, slog.Any("error", err))...)
	} else {
		s.logger.Info("material action", attrs...)
	}
	if s.journal == nil || outcome == OutcomeInvalid || id == "" {
		return
	}
	scope, _ := shared.ScopeFromContext(ctx)
	if err != nil {
		meta["error"] = err.Error()
	}
	entry := shared.AuditLog{
		Actor:    scope.UserID,
		Action:   action,
		Entity:   "material_request",
		EntityID: id,
		Outcome:  outcome,
		Meta:     meta,
		At:       s.now(),
	}
	if jerr := s.journal.Record(ctx, entry); jerr != nil {
		s.logger.Error("journal material action", slog.String("action", action), slog.String("request_id", id), slog.Any("error", jerr))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeInvalid
	case fieldapi.StatusOf(err) == http.StatusUnprocessableEntity:
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

func detailFrom(raw any, op string) (MaterialRequestDetail, error) {
	if _, ok := p.AsObject(p.Unwrap(raw)); !ok {
		return MaterialRequestDetail{}, fmt.Errorf("materials: %s: %w", op, ErrMalformedPayload)
	}
	return MapRequestDetail(raw), nil
}

func requestPath(id string) string {
	return requestsPath + "/" + url.PathEscape(id)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
