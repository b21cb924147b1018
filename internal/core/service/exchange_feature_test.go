package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/rl1809/marketplace/internal/core/domain"
)

type exchangeTestContext struct {
	exchange   *Exchange
	producers  map[string]int
	cartID     int
	lastOK     bool
	allOK      bool
	checkedOut []domain.Product
}

func (c *exchangeTestContext) reset() {
	c.exchange = nil
	c.producers = make(map[string]int)
	c.cartID = -1
	c.lastOK = false
	c.allOK = false
	c.checkedOut = nil
}

func product(name string) domain.Product {
	return domain.Product{Type: "Tea", Name: name, Price: 1}
}

func (c *exchangeTestContext) anExchangeWithCapacity(capacity int) error {
	e, err := NewExchange(capacity)
	if err != nil {
		return err
	}
	c.exchange = e
	return nil
}

func (c *exchangeTestContext) producerIsRegistered(name string) error {
	c.producers[name] = c.exchange.Register()
	return nil
}

func (c *exchangeTestContext) producerPublishesTimes(name, productName string, times int) error {
	id, ok := c.producers[name]
	if !ok {
		return fmt.Errorf("producer %q not registered", name)
	}

	c.allOK = true
	for i := 0; i < times; i++ {
		ok, err := c.exchange.Publish(id, product(productName))
		if err != nil {
			return err
		}
		c.lastOK = ok
		c.allOK = c.allOK && ok
	}
	return nil
}

func (c *exchangeTestContext) aCartIsOpened() error {
	c.cartID = c.exchange.OpenCart()
	return nil
}

func (c *exchangeTestContext) theCartAddsTimes(productName string, times int) error {
	for i := 0; i < times; i++ {
		ok, err := c.exchange.AddToCart(c.cartID, product(productName))
		if err != nil {
			return err
		}
		c.lastOK = ok
	}
	return nil
}

func (c *exchangeTestContext) theCartRemoves(productName string) error {
	return c.exchange.RemoveFromCart(c.cartID, product(productName))
}

func (c *exchangeTestContext) theCartChecksOut() error {
	items, err := c.exchange.Checkout(c.cartID)
	if err != nil {
		return err
	}
	c.checkedOut = items
	return nil
}

func (c *exchangeTestContext) everyPublishSucceeded() error {
	if !c.allOK {
		return fmt.Errorf("expected every publish to succeed")
	}
	return nil
}

func (c *exchangeTestContext) theLastPublishWasRejected() error {
	if c.lastOK {
		return fmt.Errorf("expected the last publish to be rejected")
	}
	return nil
}

func (c *exchangeTestContext) theLastAddWasRejected() error {
	if c.lastOK {
		return fmt.Errorf("expected the last add to be rejected")
	}
	return nil
}

func (c *exchangeTestContext) producerHasOutstanding(name string, want int) error {
	got, err := c.exchange.Outstanding(c.producers[name])
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected producer %q outstanding %d, got %d", name, want, got)
	}
	return nil
}

func (c *exchangeTestContext) theCheckoutReturned(list string) error {
	names := make([]string, len(c.checkedOut))
	for i, p := range c.checkedOut {
		names[i] = p.Name
	}
	if got := strings.Join(names, ", "); got != list {
		return fmt.Errorf("expected checkout %q, got %q", list, got)
	}
	return nil
}

func (c *exchangeTestContext) hasUnitsAvailable(productName string, want int) error {
	if got := c.exchange.Available(product(productName)); got != want {
		return fmt.Errorf("expected %d %s available, got %d", want, productName, got)
	}
	return nil
}

func (c *exchangeTestContext) hasUnitsAvailableFromProducer(productName string, want int, name string) error {
	stock := c.exchange.Stock(product(productName))
	if len(stock) != 1 {
		return fmt.Errorf("expected one offer for %s, got %v", productName, stock)
	}
	if stock[0].ProducerID != c.producers[name] || stock[0].Units != want {
		return fmt.Errorf("expected %d units from producer %q, got %v", want, name, stock[0])
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &exchangeTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an exchange with capacity (\d+)$`, tc.anExchangeWithCapacity)
	ctx.Step(`^producer "([^"]*)" is registered$`, tc.producerIsRegistered)

	// When steps
	ctx.Step(`^producer "([^"]*)" publishes "([^"]*)" (\d+) times$`, tc.producerPublishesTimes)
	ctx.Step(`^a cart is opened$`, tc.aCartIsOpened)
	ctx.Step(`^the cart adds "([^"]*)" (\d+) times$`, tc.theCartAddsTimes)
	ctx.Step(`^the cart removes "([^"]*)"$`, tc.theCartRemoves)
	ctx.Step(`^the cart checks out$`, tc.theCartChecksOut)

	// Then steps
	ctx.Step(`^every publish succeeded$`, tc.everyPublishSucceeded)
	ctx.Step(`^the last publish was rejected$`, tc.theLastPublishWasRejected)
	ctx.Step(`^the last add was rejected$`, tc.theLastAddWasRejected)
	ctx.Step(`^producer "([^"]*)" has (\d+) outstanding$`, tc.producerHasOutstanding)
	ctx.Step(`^the checkout returned "([^"]*)"$`, tc.theCheckoutReturned)
	ctx.Step(`^"([^"]*)" has (\d+) units available$`, tc.hasUnitsAvailable)
	ctx.Step(`^"([^"]*)" has (\d+) units available from producer "([^"]*)"$`, tc.hasUnitsAvailableFromProducer)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../../features/exchange.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
