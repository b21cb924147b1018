package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// ProductionStep is one entry of a producer's production list.
type ProductionStep struct {
	Product        domain.Product
	Quantity       int
	ProductionTime time.Duration
}

// Producer registers once and then cycles through its steps until ctx is
// done, retrying rejected publishes every RepublishWait.
type Producer struct {
	Name          string
	Steps         []ProductionStep
	RepublishWait time.Duration
	Market        Supplier
	Logger        *zap.Logger
}

// Run returns nil when ctx ends and an error if the market rejects the
// producer itself.
func (p *Producer) Run(ctx context.Context) error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("producer %s: nothing to produce", p.Name)
	}

	id := p.Market.Register(ctx)
	log := p.Logger.With(zap.String("producer", p.Name), zap.Int("producer_id", id))
	log.Info("producer started")

	for {
		for _, step := range p.Steps {
			for made := 0; made < step.Quantity; {
				ok, err := p.Market.Publish(ctx, id, step.Product)
				if err != nil {
					return fmt.Errorf("producer %s: publish: %w", p.Name, err)
				}

				wait := p.RepublishWait
				if ok {
					made++
					wait = step.ProductionTime
				}
				if !sleep(ctx, wait) {
					log.Info("producer stopped")
					return nil
				}
			}
		}
	}
}
