package storage

import (
	"context"
	"sync"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// MemoryCache is the in-process stock mirror used when no Redis is configured.
type MemoryCache struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{stock: make(map[string]int)}
}

func (m *MemoryCache) DecrementStock(ctx context.Context, productKey string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productKey] -= quantity
	return nil
}

func (m *MemoryCache) IncrementStock(ctx context.Context, productKey string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productKey] += quantity
	return nil
}

func (m *MemoryCache) GetStock(ctx context.Context, productKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productKey], nil
}

// MemoryReceiptStore keeps receipts for the life of the process.
type MemoryReceiptStore struct {
	mu       sync.Mutex
	receipts map[string]domain.Receipt
}

func NewMemoryReceiptStore() *MemoryReceiptStore {
	return &MemoryReceiptStore{receipts: make(map[string]domain.Receipt)}
}

func (m *MemoryReceiptStore) SaveReceipt(ctx context.Context, receipt domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[receipt.ID] = receipt
	return nil
}

func (m *MemoryReceiptStore) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Len returns the number of stored receipts.
func (m *MemoryReceiptStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receipts)
}
