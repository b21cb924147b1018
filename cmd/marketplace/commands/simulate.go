package commands

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/agent"
	"github.com/rl1809/marketplace/internal/config"
	"github.com/rl1809/marketplace/internal/core/service"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configured producers and consumers against a fresh exchange",
	Long: `Simulate starts every producer and consumer from the config file. Producers
run until the last consumer has checked out all of its carts. Each purchased
item is printed as "<consumer> bought <product>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return runSimulation(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulation(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	if len(cfg.Consumers) == 0 {
		return errors.New("no consumers configured")
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	exchange, err := service.NewExchange(cfg.Capacity)
	if err != nil {
		return err
	}
	market := service.NewMarketService(exchange, b.cache, logger, cfg.Receipts.QueueSize)
	workers := service.StartReceiptWorkers(cfg.Receipts.Workers, market.GetReceiptQueue(), b.receipts, logger)

	producerCtx, stopProducers := context.WithCancel(ctx)
	defer stopProducers()

	var producers sync.WaitGroup
	for _, spec := range cfg.Producers {
		p := &agent.Producer{
			Name:          spec.Name,
			Steps:         spec.Steps(),
			RepublishWait: cfg.RepublishWait,
			Market:        market,
			Logger:        logger,
		}
		producers.Add(1)
		go func() {
			defer producers.Done()
			if err := p.Run(producerCtx); err != nil {
				logger.Error("producer failed", zap.String("producer", p.Name), zap.Error(err))
			}
		}()
	}

	// Fprintf calls from different consumers must not interleave
	sink := &lockedWriter{w: out}

	var (
		consumers sync.WaitGroup
		errMu     sync.Mutex
		errs      []error
	)
	for _, spec := range cfg.Consumers {
		c := &agent.Consumer{
			Name:      spec.Name,
			Carts:     spec.Operations(),
			RetryWait: cfg.RetryWait,
			Market:    market,
			Out:       sink,
			Logger:    logger,
		}
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			if err := c.Run(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}()
	}

	consumers.Wait()
	stopProducers()
	producers.Wait()

	market.Close()
	workers.Wait()

	return errors.Join(errs...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
