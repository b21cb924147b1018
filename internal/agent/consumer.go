package agent

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/core/domain"
)

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

type Operation struct {
	Type     string
	Product  domain.Product
	Quantity int
}

// Consumer replays scripted carts against the market and reports every
// purchased item to Out.
type Consumer struct {
	Name      string
	Carts     [][]Operation
	RetryWait time.Duration
	Market    Storefront
	Out       io.Writer
	Logger    *zap.Logger
}

var buyer = color.New(color.FgCyan, color.Bold).SprintFunc()

// Run returns ctx.Err() if ctx ends while waiting for stock.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.Logger.With(zap.String("consumer", c.Name))

	for _, ops := range c.Carts {
		cartID := c.Market.OpenCart(ctx)

		for _, op := range ops {
			switch op.Type {
			case OpAdd:
				if err := c.add(ctx, cartID, op); err != nil {
					return err
				}
			case OpRemove:
				c.remove(ctx, cartID, op, log)
			default:
				log.Warn("skipping unknown operation", zap.String("type", op.Type))
			}
		}

		receipt, err := c.Market.Checkout(ctx, cartID)
		if err != nil {
			return fmt.Errorf("consumer %s: checkout cart %d: %w", c.Name, cartID, err)
		}
		for _, item := range receipt.Items {
			fmt.Fprintf(c.Out, "%s bought %s\n", buyer(c.Name), item)
		}
	}
	return nil
}

func (c *Consumer) add(ctx context.Context, cartID int, op Operation) error {
	for added := 0; added < op.Quantity; {
		ok, err := c.Market.AddToCart(ctx, cartID, op.Product)
		if err != nil {
			return fmt.Errorf("consumer %s: add to cart %d: %w", c.Name, cartID, err)
		}
		if ok {
			added++
			continue
		}
		if !sleep(ctx, c.RetryWait) {
			return ctx.Err()
		}
	}
	return nil
}

func (c *Consumer) remove(ctx context.Context, cartID int, op Operation, log *zap.Logger) {
	for i := 0; i < op.Quantity; i++ {
		if err := c.Market.RemoveFromCart(ctx, cartID, op.Product); err != nil {
			log.Warn("remove from cart ignored", zap.Int("cart_id", cartID), zap.Stringer("product", op.Product), zap.Error(err))
		}
	}
}
