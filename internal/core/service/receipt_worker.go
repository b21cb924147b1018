package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
)

const saveTimeout = 5 * time.Second

// StartReceiptWorkers drains queue into repo with count workers. The returned
// WaitGroup completes once the queue is closed and drained.
func StartReceiptWorkers(count int, queue <-chan domain.Receipt, repo port.ReceiptRepository, logger *zap.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, queue, repo, logger)
		}(i)
	}
	return &wg
}

func workerLoop(id int, queue <-chan domain.Receipt, repo port.ReceiptRepository, logger *zap.Logger) {
	for receipt := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)

		if err := repo.SaveReceipt(ctx, receipt); err != nil {
			logger.Error("failed to save receipt",
				zap.Int("worker", id),
				zap.String("receipt_id", receipt.ID),
				zap.Error(err),
			)
		} else {
			logger.Debug("saved receipt", zap.Int("worker", id), zap.String("receipt_id", receipt.ID))
		}

		cancel()
	}
}
