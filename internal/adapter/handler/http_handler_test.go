package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/adapter/storage"
	"github.com/rl1809/marketplace/internal/core/service"
)

func newTestMarket(t *testing.T, capacity int) *service.MarketService {
	t.Helper()
	exchange, err := service.NewExchange(capacity)
	require.NoError(t, err)
	svc := service.NewMarketService(exchange, storage.NewMemoryCache(), zap.NewNop(), 16)

	go func() {
		for range svc.GetReceiptQueue() {
		}
	}()
	t.Cleanup(svc.Close)
	return svc
}

type decoded struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, decoded) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

const cocoaBody = `{"product": {"type": "Tea", "name": "Cocoa", "price": 3}}`

func TestHTTP_PublishAddCheckout(t *testing.T) {
	h := NewHTTPHandler(newTestMarket(t, 1)).Routes()

	code, resp := do(t, h, http.MethodPost, "/api/producers", "")
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"producer_id": 0}`, string(resp.Data))

	code, resp = do(t, h, http.MethodPost, "/api/producers/0/publish", cocoaBody)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	code, resp = do(t, h, http.MethodPost, "/api/producers/0/publish", cocoaBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "producer at capacity", resp.Message)

	code, resp = do(t, h, http.MethodPost, "/api/carts", "")
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"cart_id": 0}`, string(resp.Data))

	code, _ = do(t, h, http.MethodPost, "/api/carts/0/add", cocoaBody)
	assert.Equal(t, http.StatusOK, code)

	code, resp = do(t, h, http.MethodPost, "/api/carts/0/add", cocoaBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "product unavailable", resp.Message)

	code, resp = do(t, h, http.MethodPost, "/api/carts/0/checkout", "")
	require.Equal(t, http.StatusOK, code)

	var receipt struct {
		CartID int `json:"cart_id"`
		Items  []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &receipt))
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "Cocoa", receipt.Items[0].Name)

	code, resp = do(t, h, http.MethodPost, "/api/carts/0/checkout", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown cart", resp.Message)
}

func TestHTTP_RemoveAndStock(t *testing.T) {
	h := NewHTTPHandler(newTestMarket(t, 2)).Routes()

	do(t, h, http.MethodPost, "/api/producers", "")
	do(t, h, http.MethodPost, "/api/producers/0/publish", cocoaBody)
	do(t, h, http.MethodPost, "/api/carts", "")
	do(t, h, http.MethodPost, "/api/carts/0/add", cocoaBody)

	code, resp := do(t, h, http.MethodPost, "/api/carts/0/remove", cocoaBody)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	code, resp = do(t, h, http.MethodPost, "/api/carts/0/remove", cocoaBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "product not in cart", resp.Message)

	code, resp = do(t, h, http.MethodGet, "/api/stock?type=Tea&name=Cocoa&price=3", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"product": {"type": "Tea", "name": "Cocoa", "price": 3},
		"available": 1,
		"cached": 1,
		"offers": [{"producer_id": 0, "units": 1}]
	}`, string(resp.Data))
}

func TestHTTP_ProducerAndCartViews(t *testing.T) {
	h := NewHTTPHandler(newTestMarket(t, 3)).Routes()

	do(t, h, http.MethodPost, "/api/producers", "")
	do(t, h, http.MethodPost, "/api/producers/0/publish", cocoaBody)
	do(t, h, http.MethodPost, "/api/producers/0/publish", cocoaBody)
	do(t, h, http.MethodPost, "/api/carts", "")
	do(t, h, http.MethodPost, "/api/carts/0/add", cocoaBody)

	code, resp := do(t, h, http.MethodGet, "/api/producers/0", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"producer_id": 0, "outstanding": 2, "capacity": 3}`, string(resp.Data))

	code, resp = do(t, h, http.MethodGet, "/api/carts/0", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"cart_id": 0,
		"lines": [{"product": {"type": "Tea", "name": "Cocoa", "price": 3}, "producer_id": 0, "units": 1}]
	}`, string(resp.Data))

	code, _ = do(t, h, http.MethodGet, "/api/producers/9", "")
	assert.Equal(t, http.StatusNotFound, code)

	do(t, h, http.MethodPost, "/api/carts/0/checkout", "")
	code, resp = do(t, h, http.MethodGet, "/api/carts/0", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown cart", resp.Message)
}

func TestHTTP_BadRequests(t *testing.T) {
	h := NewHTTPHandler(newTestMarket(t, 1)).Routes()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"non numeric id", "/api/producers/abc/publish", cocoaBody, http.StatusBadRequest},
		{"invalid body", "/api/producers/0/publish", "{", http.StatusBadRequest},
		{"missing product", "/api/carts/0/add", `{}`, http.StatusBadRequest},
		{"unknown producer", "/api/producers/7/publish", cocoaBody, http.StatusNotFound},
		{"unknown cart", "/api/carts/7/add", cocoaBody, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, resp.Success)
		})
	}

	code, _ := do(t, h, http.MethodGet, "/api/stock?name=Cocoa", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHTTP_Health(t *testing.T) {
	h := NewHTTPHandler(newTestMarket(t, 1)).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
