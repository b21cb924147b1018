package domain

// Offer is the number of units one producer has listed for a product and
// that no cart has claimed yet.
type Offer struct {
	ProducerID int `json:"producer_id"`
	Units      int `json:"units"`
}
