package materials

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	"github.com/fieldops/fieldops/internal/platform/httpx"
	"github.com/fieldops/fieldops/internal/shared"
)

func newTestRouter(api *stubAPI, scope shared.Scope) http.Handler {
	svc := NewService(api, nil, nil, nil)
	handler := NewHandler(nil, svc, NewCatalog(api, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithScope(req.Context(), scope)))
		})
	})
	r.Route("/api/v1", handler.MountRoutes)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerListAppliesScope(t *testing.T) {
	api := &stubAPI{getFn: func(string, url.Values) (any, error) {
		return map[string]any{"data": []any{
			map[string]any{"id": "a", "proyectoId": "p1", "estado": "pendiente"},
			map[string]any{"id": "b", "proyectoId": "p2"},
		}}, nil
	}}
	rec := serve(newTestRouter(api, shared.Scope{ProjectIDs: []string{"p1"}}), http.MethodGet, "/api/v1/material-requests", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []MaterialRequest `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "a", out.Items[0].ID)
	assert.Equal(t, StatusPending, out.Items[0].Status)
}

func TestHandlerRejectWithoutReason(t *testing.T) {
	api := &stubAPI{}
	rec := serve(newTestRouter(api, shared.Scope{Unrestricted: true}), http.MethodPost, "/api/v1/material-requests/r1/reject", `{"observations": "  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rejection reason is required")
	assert.Zero(t, api.callCount())
}

func TestHandlerDeliverShortfalls(t *testing.T) {
	api := &stubAPI{postFn: func(string, any) (any, error) {
		return nil, &fieldapi.Error{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    "Stock insuficiente",
			Body: map[string]any{"insuficientes": []any{
				map[string]any{"material": "Cemento", "faltante": 5.0, "unidad": "bolsas"},
			}},
		}
	}}
	rec := serve(newTestRouter(api, shared.Scope{Unrestricted: true}), http.MethodPost, "/api/v1/material-requests/r1/deliver", `{"deliveries": [{"itemId": "i1", "quantity": 5}]}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Stock insuficiente", problem.Detail)
	assert.Equal(t, []string{"Cemento: 5 bolsas"}, problem.Shortfalls)
}

func TestHandlerDetailAndReconciliation(t *testing.T) {
	api := &stubAPI{getFn: func(path string, _ url.Values) (any, error) {
		if path == "/materials/catalog" {
			return catalogPayload(), nil
		}
		return map[string]any{
			"id":         "r1",
			"proyectoId": "p1",
			"items": []any{map[string]any{
				"id": "i1", "materialId": "m1", "cantidad": 100.0, "cantidadAprobada": 80.0, "cantidadEntregada": 60.0,
			}},
		}, nil
	}}
	router := newTestRouter(api, shared.Scope{Unrestricted: true})

	rec := serve(router, http.MethodGet, "/api/v1/material-requests/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail MaterialRequestDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 75, detail.DeliveryProgress)
	assert.Equal(t, "Cable", detail.Items[0].MaterialName)
	assert.Equal(t, "metros", detail.Items[0].Unit)

	rec = serve(router, http.MethodGet, "/api/v1/material-requests/r1/reconciliation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary Reconciliation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 20.0, summary.Pending)
	assert.Equal(t, 75, summary.Progress)
}

func TestHandlerCreateChecksCatalog(t *testing.T) {
	api := &stubAPI{
		getFn:  func(string, url.Values) (any, error) { return catalogPayload(), nil },
		postFn: func(string, any) (any, error) { return map[string]any{"id": "new-1"}, nil },
	}
	router := newTestRouter(api, shared.Scope{Unrestricted: true})

	rec := serve(router, http.MethodPost, "/api/v1/material-requests", `{"projectId": "p1", "items": [{"materialId": "zz", "qty": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "zz")

	rec = serve(router, http.MethodPost, "/api/v1/material-requests", `{"projectId": "p1", "items": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "CreateInput.Items")

	rec = serve(router, http.MethodPost, "/api/v1/material-requests", `{"projectId": "p1", "items": [{"materialId": "m1", "qty": 2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id": "new-1"}`, rec.Body.String())
}

func TestHandlerUpstreamNotFound(t *testing.T) {
	api := &stubAPI{getFn: func(string, url.Values) (any, error) {
		return nil, &fieldapi.Error{StatusCode: http.StatusNotFound, Message: "no existe"}
	}}
	rec := serve(newTestRouter(api, shared.Scope{Unrestricted: true}), http.MethodGet, "/api/v1/material-requests/zz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no existe")
}

func TestHandlerIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fail := true
	api := &stubAPI{postFn: func(string, any) (any, error) {
		if fail {
			return nil, &fieldapi.Error{StatusCode: http.StatusInternalServerError, Message: "boom"}
		}
		return map[string]any{"id": "r1", "estado": "enviado"}, nil
	}}
	handler := NewHandler(nil, NewService(api, nil, nil, nil), nil)
	handler.UseIdempotency(shared.NewIdempotencyStore(client, time.Hour))
	r := chi.NewRouter()
	r.Route("/api/v1", handler.MountRoutes)

	deliver := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/material-requests/r1/deliver", strings.NewReader(`{"deliveries": [{"itemId": "i1", "quantity": 2}]}`))
		req.Header.Set(IdempotencyHeader, "k1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadGateway, deliver().Code)
	assert.False(t, mr.Exists("idempotency:materials:deliver:r1:k1"))

	fail = false
	assert.Equal(t, http.StatusOK, deliver().Code)
	assert.True(t, mr.Exists("idempotency:materials:deliver:r1:k1"))

	rec := deliver()
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Idempotency-Key")
	assert.Equal(t, 2, api.callCount())
}
