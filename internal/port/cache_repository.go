package port

import "context"

// CacheRepository mirrors the number of unclaimed units per product for
// readers outside the exchange.
//
// Updates are unconditional deltas so they commute: the mirror settles on the
// exchange's count once every pending update has landed, whatever order they
// arrive in. A reader may briefly see a negative count.
type CacheRepository interface {
	// DecrementStock removes claimed units from the mirror
	DecrementStock(ctx context.Context, productKey string, quantity int) error

	// IncrementStock adds units listed on the exchange
	IncrementStock(ctx context.Context, productKey string, quantity int) error

	// GetStock returns 0 for products the cache has never seen
	GetStock(ctx context.Context, productKey string) (int, error)
}
