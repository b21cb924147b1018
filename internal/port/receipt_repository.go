package port

import (
	"context"

	"github.com/rl1809/marketplace/internal/core/domain"
)

type ReceiptRepository interface {
	// SaveReceipt persists a receipt and its lines in one transaction
	SaveReceipt(ctx context.Context, receipt domain.Receipt) error

	// GetReceipt returns nil when no receipt has the given id
	GetReceipt(ctx context.Context, id string) (*domain.Receipt, error)
}
