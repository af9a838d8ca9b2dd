package materials

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	"github.com/fieldops/fieldops/internal/platform/httpx"
	"github.com/fieldops/fieldops/internal/shared"
)

// IdempotencyHeader carries the client's retry token on mutating calls.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyGuard claims Idempotency-Key values for mutating calls.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes the lifecycle service as canonical JSON endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	catalog     *Catalog
	idempotency IdempotencyGuard
	validator   *validator.Validate
}

// NewHandler builds Handler instance. catalog may be nil.
func NewHandler(logger *slog.Logger, service *Service, catalog *Catalog) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, catalog: catalog, validator: validator.New()}
}

// UseIdempotency rejects replayed Idempotency-Key values on create, approve,
// reject and deliver.
func (h *Handler) UseIdempotency(guard IdempotencyGuard) {
	h.idempotency = guard
}

// MountRoutes registers material routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/material-requests", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleDetail)
			r.Get("/reconciliation", h.handleReconciliation)
			r.Post("/approve", h.handleApprove)
			r.Post("/reject", h.handleReject)
			r.Post("/deliver", h.handleDeliver)
		})
	})
	r.Get("/catalog", h.handleCatalog)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	filter := ListFilter{
		ProjectID: r.URL.Query().Get("projectId"),
		Status:    r.URL.Query().Get("status"),
	}
	requests, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": requests, "total": len(requests)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if !h.decode(w, r, &input) {
		return
	}
	release, ok := h.claim(w, r, "create")
	if !ok {
		return
	}
	if h.catalog != nil {
		items, err := h.catalog.List(r.Context(), input.ProjectID)
		if err == nil {
			err = NewCatalogIndex(items).ValidateCreate(input)
		}
		if err != nil {
			release(err)
			h.fail(w, r, err)
			return
		}
	}
	id, err := h.service.Create(r.Context(), input)
	release(err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.label(r, detail))
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Summarize(h.label(r, detail)))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var input ApproveInput
	if !h.decode(w, r, &input) {
		return
	}
	release, ok := h.claim(w, r, "approve")
	if !ok {
		return
	}
	detail, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), input)
	release(err)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var input RejectInput
	if !h.decode(w, r, &input) {
		return
	}
	release, ok := h.claim(w, r, "reject")
	if !ok {
		return
	}
	detail, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"), input)
	release(err)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	var input DeliverInput
	if !h.decode(w, r, &input) {
		return
	}
	release, ok := h.claim(w, r, "deliver")
	if !ok {
		return
	}
	detail, err := h.service.Deliver(r.Context(), chi.URLParam(r, "id"), input)
	release(err)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "catalog lookup disabled")
		return
	}
	items, err := h.catalog.List(r.Context(), r.URL.Query().Get("projectId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, detail MaterialRequestDetail, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// label fills missing line names and units from the project catalog. Lookup
// failures leave the detail untouched.
func (h *Handler) label(r *http.Request, detail MaterialRequestDetail) MaterialRequestDetail {
	if h.catalog == nil || detail.ProjectID == "" {
		return detail
	}
	missing := false
	for _, item := range detail.Items {
		if item.MaterialID != "" && (item.MaterialName == "" || item.Unit == "") {
			missing = true
			break
		}
	}
	if !missing {
		return detail
	}
	items, err := h.catalog.List(r.Context(), detail.ProjectID)
	if err != nil {
		h.logger.Warn("label request items", slog.String("request_id", detail.ID), slog.Any("error", err))
		return detail
	}
	return NewCatalogIndex(items).LabelItems(detail)
}

// claim reserves the Idempotency-Key for action on the addressed request.
// A replayed key answers 409. release drops the key again when the action
// failed so the client may retry; guard outages fail open.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, action string) (release func(error), ok bool) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if h.idempotency == nil || key == "" {
		return func(error) {}, true
	}
	module := "materials:" + action
	if id := chi.URLParam(r, "id"); id != "" {
		module += ":" + id
	}
	if err := h.idempotency.CheckAndInsert(r.Context(), key, module); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Duplicate Request", "a request with this Idempotency-Key was already processed")
			return nil, false
		}
		h.logger.Warn("idempotency check failed", slog.String("action", action), slog.Any("error", err))
		return func(error) {}, true
	}
	return func(err error) {
		if err == nil {
			return
		}
		if delErr := h.idempotency.Delete(context.WithoutCancel(r.Context()), key, module); delErr != nil {
			h.logger.Warn("idempotency release failed", slog.String("action", action), slog.Any("error", delErr))
		}
	}, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problem := httpx.ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Errors: map[string]string{}}
			for _, fieldErr := range fieldErrs {
				problem.Errors[fieldErr.Namespace()] = fieldErr.Error()
			}
			httpx.WriteProblem(w, problem)
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *fieldapi.Error
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", strings.TrimPrefix(err.Error(), "materials: "))
	case errors.Is(err, ErrMalformedPayload):
		h.logger.Error("malformed upstream payload", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", "unexpected response shape")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity:
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:      "Unprocessable Entity",
			Status:     http.StatusUnprocessableEntity,
			Detail:     apiErr.Message,
			Shortfalls: ValidationDetails(err),
		})
	default:
		if apiErr == nil {
			h.logger.Error("material request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
