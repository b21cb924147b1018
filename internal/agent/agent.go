// Package agent runs the producer and consumer loops that drive an exchange.
package agent

import (
	"context"
	"time"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// Supplier is the producer-facing side of the market.
type Supplier interface {
	Register(ctx context.Context) int
	Publish(ctx context.Context, producerID int, p domain.Product) (bool, error)
}

// Storefront is the consumer-facing side of the market.
type Storefront interface {
	OpenCart(ctx context.Context) int
	AddToCart(ctx context.Context, cartID int, p domain.Product) (bool, error)
	RemoveFromCart(ctx context.Context, cartID int, p domain.Product) error
	Checkout(ctx context.Context, cartID int) (domain.Receipt, error)
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
