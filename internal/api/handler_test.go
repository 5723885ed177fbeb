package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-alert-service/internal/service"
	"stock-alert-service/internal/store"
	"stock-alert-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data"`
	Alert       json.RawMessage `json:"alert"`
	AlertAction string          `json:"alert_action"`
	Message     string          `json:"message"`
	Error       string          `json:"error"`
}

type productBody struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

type alertBody struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Status     string `json:"status"`
	IsResolved bool   `json:"is_resolved"`
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router *gin.Engine
	store  *store.MemoryStore
}

func newTestServer(t *testing.T, deps map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	util.SetLogger(zap.NewNop())
	t.Cleanup(func() { util.SetLogger(nil) })

	s := store.NewMemoryStore(50 * time.Millisecond)
	engine := service.NewAlertEngine(s, nil, nil, time.Hour)
	router := gin.New()
	NewHandler(engine, 2, deps).SetupRoutes(router)
	return &testServer{router: router, store: s}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (ts *testServer) createProduct(t *testing.T, sku string, quantity, min int) productBody {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/api/v1/products", gin.H{
		"name": "Product " + sku, "sku": sku, "quantity": quantity, "min_stock_level": min,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p productBody
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	p := ts.createProduct(t, "HTTP-1", 20, 10)
	assert.Equal(t, 20, p.Quantity)

	w, env := ts.do(t, http.MethodPatch, "/api/v1/products/"+p.ID+"/stock", gin.H{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", env.AlertAction)
	alert := decode[alertBody](t, env.Alert)
	assert.Equal(t, "ACTIVE", alert.Status)

	w, env = ts.do(t, http.MethodGet, "/api/v1/alerts/unresolved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	unresolved := decode[[]alertBody](t, env.Data)
	require.Len(t, unresolved, 1)
	assert.Equal(t, alert.ID, unresolved[0].ID)
	assert.False(t, unresolved[0].IsResolved)

	w, env = ts.do(t, http.MethodGet, "/api/v1/products/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]productBody](t, env.Data), 1)

	w, env = ts.do(t, http.MethodPatch, "/api/v1/products/"+p.ID+"/threshold", gin.H{"min_stock_level": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolve", env.AlertAction)

	w, env = ts.do(t, http.MethodGet, "/api/v1/alerts/product/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]alertBody](t, env.Data)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsResolved)

	w, env = ts.do(t, http.MethodPut, "/api/v1/products/"+p.ID, gin.H{"name": "Renamed", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", env.AlertAction)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]alertBody](t, env.Data))

	w, env = ts.do(t, http.MethodGet, "/api/v1/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Product not found", env.Error)
}

func TestStatusMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createProduct(t, "MAP-1", 5, 1)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing name", http.MethodPost, "/api/v1/products", gin.H{"sku": "X"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/products", "{", http.StatusBadRequest},
		{"negative stock", http.MethodPatch, "/api/v1/products/" + p.ID + "/stock", gin.H{"quantity": -1}, http.StatusBadRequest},
		{"missing quantity", http.MethodPatch, "/api/v1/products/" + p.ID + "/stock", gin.H{}, http.StatusBadRequest},
		{"unknown product", http.MethodPatch, "/api/v1/products/nope/stock", gin.H{"quantity": 1}, http.StatusNotFound},
		{"unknown alert", http.MethodPatch, "/api/v1/alerts/nope/resolve", nil, http.StatusNotFound},
		{"duplicate sku", http.MethodPost, "/api/v1/products", gin.H{"name": "Dup", "sku": "MAP-1"}, http.StatusConflict},
		{"unknown route", http.MethodGet, "/api/v1/nothing", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := ts.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestConflictReturnsRetryAfter(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createProduct(t, "LOCK-1", 50, 10)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ts.store.InTx(context.Background(), func(tx store.Tx) error {
			if _, err := tx.LockProduct(context.Background(), p.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	w, env := ts.do(t, http.MethodPatch, "/api/v1/products/"+p.ID+"/stock", gin.H{"quantity": 1})
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.False(t, env.Success)

	w, _ = ts.do(t, http.MethodPatch, "/api/v1/products/"+p.ID+"/stock", gin.H{"quantity": 1})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestManualResolveAndDeleteAlert(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createProduct(t, "MR-1", 0, 5)

	_, env := ts.do(t, http.MethodGet, "/api/v1/alerts/product/"+p.ID, nil)
	alerts := decode[[]alertBody](t, env.Data)
	require.Len(t, alerts, 1)

	w, env := ts.do(t, http.MethodPatch, "/api/v1/alerts/"+alerts[0].ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RESOLVED", decode[alertBody](t, env.Data).Status)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/alerts/"+alerts[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/alerts/"+alerts[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = ts.do(t, http.MethodPost, "/api/v1/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[service.ReconcileReport](t, env.Data)
	assert.Equal(t, 1, report.Opened)

	w, env = ts.do(t, http.MethodPost, "/api/v1/admin/reconcile?product_id="+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", env.AlertAction)
}

func TestReadiness(t *testing.T) {
	ts := newTestServer(t, map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
	})
	w, _ := ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ts = newTestServer(t, map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	w, _ = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w, _ = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
