package service

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rl1809/marketplace/internal/core/domain"
)

var (
	ErrInvalidCapacity = errors.New("capacity must be positive")
	ErrUnknownProducer = errors.New("unknown producer")
	ErrUnknownCart     = errors.New("unknown cart")
	ErrNotInCart       = errors.New("product not in cart")
)

// Exchange is the shared marketplace between producers and consumers.
//
// A unit counts against its producer's capacity from the moment it is
// published until the cart holding it is checked out. Returning a unit from
// a cart to the inventory does not release capacity.
//
// Lock order is cart, then exchange state. The carts table lock is never held
// while acquiring either of them.
type Exchange struct {
	capacity int

	// mu guards inventory and outstanding.
	mu          sync.Mutex
	inventory   map[domain.Product][]domain.Offer
	outstanding map[int]int

	cartsMu sync.Mutex
	carts   map[int]*cart

	producerSeq atomic.Int64
	cartSeq     atomic.Int64
}

type cart struct {
	mu     sync.Mutex
	closed bool
	// products in the order they were first added
	order []domain.Product
	lines map[domain.Product][]domain.Offer
}

func NewExchange(capacity int) (*Exchange, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	return &Exchange{
		capacity:    capacity,
		inventory:   make(map[domain.Product][]domain.Offer),
		outstanding: make(map[int]int),
		carts:       make(map[int]*cart),
	}, nil
}

func (e *Exchange) Capacity() int {
	return e.capacity
}

// Register allocates a new producer id with nothing outstanding.
func (e *Exchange) Register() int {
	id := int(e.producerSeq.Add(1) - 1)

	e.mu.Lock()
	e.outstanding[id] = 0
	e.mu.Unlock()

	return id
}

// Publish lists one unit of p under producerID. It returns false without
// changing anything when the producer is already at capacity.
func (e *Exchange) Publish(producerID int, p domain.Product) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.outstanding[producerID]
	if !ok {
		return false, ErrUnknownProducer
	}
	if n >= e.capacity {
		return false, nil
	}

	e.outstanding[producerID] = n + 1
	e.list(producerID, p)
	return true, nil
}

// OpenCart allocates a new, empty cart.
func (e *Exchange) OpenCart() int {
	id := int(e.cartSeq.Add(1) - 1)

	e.cartsMu.Lock()
	e.carts[id] = &cart{lines: make(map[domain.Product][]domain.Offer)}
	e.cartsMu.Unlock()

	return id
}

// AddToCart claims one unit of p for the cart. It returns false without
// changing anything when no producer currently offers p.
//
// Units are drawn from the producer listed first for p. A producer whose
// offer runs out and is later listed again goes to the back.
func (e *Exchange) AddToCart(cartID int, p domain.Product) (bool, error) {
	c, err := e.cart(cartID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrUnknownCart
	}

	e.mu.Lock()
	producerID, ok := e.claim(p)
	e.mu.Unlock()
	if !ok {
		return false, nil
	}

	c.add(p, producerID)
	return true, nil
}

// RemoveFromCart returns one unit of p from the cart to the inventory, taken
// from the producer the cart first drew p from. The producer's outstanding
// count is left unchanged.
func (e *Exchange) RemoveFromCart(cartID int, p domain.Product) error {
	c, err := e.cart(cartID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrUnknownCart
	}

	producerID, ok := c.remove(p)
	if !ok {
		return ErrNotInCart
	}

	e.mu.Lock()
	e.list(producerID, p)
	e.mu.Unlock()

	return nil
}

// Checkout flattens the cart into one product per unit, releases the
// producers' capacity for every unit and destroys the cart.
func (e *Exchange) Checkout(cartID int) ([]domain.Product, error) {
	lines, err := e.settle(cartID)
	if err != nil {
		return nil, err
	}
	return domain.Flatten(lines), nil
}

// settle closes the cart and returns its lines in checkout order.
func (e *Exchange) settle(cartID int) ([]domain.CartLine, error) {
	c, err := e.cart(cartID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrUnknownCart
	}
	lines := c.snapshot()
	c.closed = true

	e.mu.Lock()
	for _, l := range lines {
		e.outstanding[l.ProducerID] -= l.Units
	}
	e.mu.Unlock()
	c.mu.Unlock()

	e.cartsMu.Lock()
	delete(e.carts, cartID)
	e.cartsMu.Unlock()

	return lines, nil
}

// Outstanding reports the units of a producer that have been published and
// not yet sold.
func (e *Exchange) Outstanding(producerID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.outstanding[producerID]
	if !ok {
		return 0, ErrUnknownProducer
	}
	return n, nil
}

// Stock returns the current offers for p in draw order.
func (e *Exchange) Stock(p domain.Product) []domain.Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.inventory[p])
}

// Available returns the number of unclaimed units of p.
func (e *Exchange) Available(p domain.Product) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var n int
	for _, o := range e.inventory[p] {
		n += o.Units
	}
	return n
}

// CartContents returns the cart's lines in checkout order.
func (e *Exchange) CartContents(cartID int) ([]domain.CartLine, error) {
	c, err := e.cart(cartID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrUnknownCart
	}
	return c.snapshot(), nil
}

func (e *Exchange) cart(cartID int) (*cart, error) {
	e.cartsMu.Lock()
	defer e.cartsMu.Unlock()

	c, ok := e.carts[cartID]
	if !ok {
		return nil, ErrUnknownCart
	}
	return c, nil
}

// list adds one unit of p under producerID. Caller holds e.mu.
func (e *Exchange) list(producerID int, p domain.Product) {
	offers := e.inventory[p]
	for i := range offers {
		if offers[i].ProducerID == producerID {
			offers[i].Units++
			return
		}
	}
	e.inventory[p] = append(offers, domain.Offer{ProducerID: producerID, Units: 1})
}

// claim takes one unit of p from the first listed producer. Caller holds e.mu.
func (e *Exchange) claim(p domain.Product) (int, bool) {
	offers := e.inventory[p]
	if len(offers) == 0 {
		return 0, false
	}

	producerID := offers[0].ProducerID
	offers[0].Units--
	if offers[0].Units == 0 {
		offers = slices.Delete(offers, 0, 1)
	}

	if len(offers) == 0 {
		delete(e.inventory, p)
	} else {
		e.inventory[p] = offers
	}
	return producerID, true
}

func (c *cart) add(p domain.Product, producerID int) {
	lines, ok := c.lines[p]
	if !ok {
		c.order = append(c.order, p)
	}

	for i := range lines {
		if lines[i].ProducerID == producerID {
			lines[i].Units++
			return
		}
	}
	c.lines[p] = append(lines, domain.Offer{ProducerID: producerID, Units: 1})
}

func (c *cart) remove(p domain.Product) (int, bool) {
	lines, ok := c.lines[p]
	if !ok {
		return 0, false
	}

	producerID := lines[0].ProducerID
	lines[0].Units--
	if lines[0].Units == 0 {
		lines = slices.Delete(lines, 0, 1)
	}

	if len(lines) == 0 {
		delete(c.lines, p)
		c.order = slices.DeleteFunc(c.order, func(q domain.Product) bool { return q == p })
	} else {
		c.lines[p] = lines
	}
	return producerID, true
}

func (c *cart) snapshot() []domain.CartLine {
	var out []domain.CartLine
	for _, p := range c.order {
		for _, l := range c.lines[p] {
			out = append(out, domain.CartLine{Product: p, ProducerID: l.ProducerID, Units: l.Units})
		}
	}
	return out
}
