package domain

import "time"

// CartLine records how many units of a product a cart holds from one producer.
type CartLine struct {
	Product    Product `json:"product"`
	ProducerID int     `json:"producer_id"`
	Units      int     `json:"units"`
}

// Receipt is the settled form of a checked out cart.
type Receipt struct {
	ID        string     `json:"id"`
	CartID    int        `json:"cart_id"`
	Lines     []CartLine `json:"lines"`
	Items     []Product  `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// Flatten expands lines into one product per unit, keeping line order.
func Flatten(lines []CartLine) []Product {
	var total int
	for _, l := range lines {
		total += l.Units
	}

	items := make([]Product, 0, total)
	for _, l := range lines {
		for i := 0; i < l.Units; i++ {
			items = append(items, l.Product)
		}
	}
	return items
}
