package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
)

type HTTPHandler struct {
	market *service.MarketService
}

type ProductHTTPRequest struct {
	Product domain.Product `json:"product"`
}

type HTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ProducerHTTPResponse struct {
	ProducerID  int `json:"producer_id"`
	Outstanding int `json:"outstanding"`
	Capacity    int `json:"capacity"`
}

type CartHTTPResponse struct {
	CartID int               `json:"cart_id"`
	Lines  []domain.CartLine `json:"lines"`
}

type StockHTTPResponse struct {
	Product   domain.Product `json:"product"`
	Available int            `json:"available"`
	Cached    int            `json:"cached"`
	Offers    []domain.Offer `json:"offers"`
}

func NewHTTPHandler(market *service.MarketService) *HTTPHandler {
	return &HTTPHandler{market: market}
}

// Routes returns a mux with every marketplace endpoint registered.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/producers", h.Register)
	mux.HandleFunc("GET /api/producers/{id}", h.Producer)
	mux.HandleFunc("POST /api/producers/{id}/publish", h.Publish)
	mux.HandleFunc("POST /api/carts", h.OpenCart)
	mux.HandleFunc("GET /api/carts/{id}", h.Cart)
	mux.HandleFunc("POST /api/carts/{id}/add", h.AddToCart)
	mux.HandleFunc("POST /api/carts/{id}/remove", h.RemoveFromCart)
	mux.HandleFunc("POST /api/carts/{id}/checkout", h.Checkout)
	mux.HandleFunc("GET /api/stock", h.Stock)
	return mux
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := h.market.Register(r.Context())
	writeJSON(w, http.StatusCreated, HTTPResponse{
		Success: true,
		Data:    map[string]int{"producer_id": id},
	})
}

func (h *HTTPHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, product, ok := parseProductRequest(w, r)
	if !ok {
		return
	}

	published, err := h.market.Publish(r.Context(), id, product)
	if err != nil {
		writeError(w, err)
		return
	}
	if !published {
		writeJSON(w, http.StatusConflict, HTTPResponse{Success: false, Message: "producer at capacity"})
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "published"})
}

func (h *HTTPHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	id := h.market.OpenCart(r.Context())
	writeJSON(w, http.StatusCreated, HTTPResponse{
		Success: true,
		Data:    map[string]int{"cart_id": id},
	})
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, product, ok := parseProductRequest(w, r)
	if !ok {
		return
	}

	added, err := h.market.AddToCart(r.Context(), id, product)
	if err != nil {
		writeError(w, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusConflict, HTTPResponse{Success: false, Message: "product unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "added"})
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, product, ok := parseProductRequest(w, r)
	if !ok {
		return
	}

	if err := h.market.RemoveFromCart(r.Context(), id, product); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "removed"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	receipt, err := h.market.Checkout(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: receipt})
}

// Producer reports how much of the producer's capacity is in circulation.
func (h *HTTPHandler) Producer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	exchange := h.market.Exchange()
	outstanding, err := exchange.Outstanding(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: ProducerHTTPResponse{
		ProducerID:  id,
		Outstanding: outstanding,
		Capacity:    exchange.Capacity(),
	}})
}

func (h *HTTPHandler) Cart(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	lines, err := h.market.Exchange().CartContents(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: CartHTTPResponse{CartID: id, Lines: lines}})
}

func (h *HTTPHandler) Stock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price, err := strconv.Atoi(q.Get("price"))
	if err != nil || q.Get("name") == "" {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Success: false, Message: "name and numeric price are required"})
		return
	}
	product := domain.Product{Type: q.Get("type"), Name: q.Get("name"), Price: price}

	cached, err := h.market.Stock(r.Context(), product)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, HTTPResponse{Success: false, Message: "stock cache unavailable"})
		return
	}

	exchange := h.market.Exchange()
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: StockHTTPResponse{
		Product:   product,
		Available: exchange.Available(product),
		Cached:    cached,
		Offers:    exchange.Stock(product),
	}})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Success: false, Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func parseProductRequest(w http.ResponseWriter, r *http.Request) (int, domain.Product, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return 0, domain.Product{}, false
	}

	var req ProductHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Success: false, Message: "invalid request body"})
		return 0, domain.Product{}, false
	}
	if req.Product.Name == "" {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Success: false, Message: "missing product name"})
		return 0, domain.Product{}, false
	}
	return id, req.Product, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrUnknownProducer):
		status = http.StatusNotFound
		message = "unknown producer"
	case errors.Is(err, service.ErrUnknownCart):
		status = http.StatusNotFound
		message = "unknown cart"
	case errors.Is(err, service.ErrNotInCart):
		status = http.StatusBadRequest
		message = "product not in cart"
	}

	writeJSON(w, status, HTTPResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
