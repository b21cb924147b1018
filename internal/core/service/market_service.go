package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
)

// MarketService is the entry point agents and transports use. It runs every
// call through the Exchange, keeps the stock cache in step with successful
// inventory changes and queues a receipt for each checkout.
//
// Cache failures are logged and never fail the exchange operation.
type MarketService struct {
	exchange     *Exchange
	cache        port.CacheRepository
	logger       *zap.Logger
	receiptQueue chan domain.Receipt
}

func NewMarketService(exchange *Exchange, cache port.CacheRepository, logger *zap.Logger, queueSize int) *MarketService {
	return &MarketService{
		exchange:     exchange,
		cache:        cache,
		logger:       logger,
		receiptQueue: make(chan domain.Receipt, queueSize),
	}
}

func (s *MarketService) Exchange() *Exchange {
	return s.exchange
}

func (s *MarketService) Register(ctx context.Context) int {
	id := s.exchange.Register()
	s.logger.Info("register producer", zap.Int("producer_id", id))
	return id
}

func (s *MarketService) Publish(ctx context.Context, producerID int, p domain.Product) (bool, error) {
	ok, err := s.exchange.Publish(producerID, p)
	if err != nil {
		s.logger.Warn("publish rejected", zap.Int("producer_id", producerID), zap.Stringer("product", p), zap.Error(err))
		return false, err
	}

	s.logger.Debug("publish", zap.Int("producer_id", producerID), zap.Stringer("product", p), zap.Bool("ok", ok))
	if ok {
		s.mirrorIncrement(ctx, p)
	}
	return ok, nil
}

func (s *MarketService) OpenCart(ctx context.Context) int {
	id := s.exchange.OpenCart()
	s.logger.Info("open cart", zap.Int("cart_id", id))
	return id
}

func (s *MarketService) AddToCart(ctx context.Context, cartID int, p domain.Product) (bool, error) {
	ok, err := s.exchange.AddToCart(cartID, p)
	if err != nil {
		s.logger.Warn("add to cart rejected", zap.Int("cart_id", cartID), zap.Stringer("product", p), zap.Error(err))
		return false, err
	}

	s.logger.Debug("add to cart", zap.Int("cart_id", cartID), zap.Stringer("product", p), zap.Bool("ok", ok))
	if ok {
		if err := s.cache.DecrementStock(ctx, p.Key(), 1); err != nil {
			s.logger.Error("stock cache decrement failed", zap.String("product", p.Key()), zap.Error(err))
		}
	}
	return ok, nil
}

func (s *MarketService) RemoveFromCart(ctx context.Context, cartID int, p domain.Product) error {
	if err := s.exchange.RemoveFromCart(cartID, p); err != nil {
		s.logger.Warn("remove from cart rejected", zap.Int("cart_id", cartID), zap.Stringer("product", p), zap.Error(err))
		return err
	}

	s.logger.Debug("remove from cart", zap.Int("cart_id", cartID), zap.Stringer("product", p))
	s.mirrorIncrement(ctx, p)
	return nil
}

// Checkout settles the cart and queues its receipt for persistence. The
// receipt is returned even if ctx ends before it could be queued.
func (s *MarketService) Checkout(ctx context.Context, cartID int) (domain.Receipt, error) {
	lines, err := s.exchange.settle(cartID)
	if err != nil {
		s.logger.Warn("checkout rejected", zap.Int("cart_id", cartID), zap.Error(err))
		return domain.Receipt{}, err
	}

	receipt := domain.Receipt{
		ID:        uuid.NewString(),
		CartID:    cartID,
		Lines:     lines,
		Items:     domain.Flatten(lines),
		CreatedAt: time.Now(),
	}
	s.logger.Info("checkout",
		zap.Int("cart_id", cartID),
		zap.String("receipt_id", receipt.ID),
		zap.Int("items", len(receipt.Items)),
	)

	select {
	case s.receiptQueue <- receipt:
	case <-ctx.Done():
		s.logger.Error("receipt not queued", zap.String("receipt_id", receipt.ID), zap.Error(ctx.Err()))
	}
	return receipt, nil
}

// Stock reports the unclaimed units of p as seen by the cache. A claim whose
// update lands before the matching publish reads as zero.
func (s *MarketService) Stock(ctx context.Context, p domain.Product) (int, error) {
	n, err := s.cache.GetStock(ctx, p.Key())
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

func (s *MarketService) GetReceiptQueue() <-chan domain.Receipt {
	return s.receiptQueue
}

func (s *MarketService) Close() {
	close(s.receiptQueue)
}

func (s *MarketService) mirrorIncrement(ctx context.Context, p domain.Product) {
	if err := s.cache.IncrementStock(ctx, p.Key(), 1); err != nil {
		s.logger.Error("stock cache increment failed", zap.String("product", p.Key()), zap.Error(err))
	}
}
