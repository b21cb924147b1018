package domain

import "fmt"

// Product identifies a kind of unit traded on the exchange. Two products are
// the same product when all fields are equal.
type Product struct {
	Type  string `json:"type" yaml:"type"`
	Name  string `json:"name" yaml:"name"`
	Price int    `json:"price" yaml:"price"`
}

// Key is the stable string form used by caches and stores.
func (p Product) Key() string {
	return fmt.Sprintf("%s:%s:%d", p.Type, p.Name, p.Price)
}

func (p Product) String() string {
	return fmt.Sprintf("%s(name=%s, price=%d)", p.Type, p.Name, p.Price)
}
