package domain

import "strings"

const BroadcastOrigin = "beckn"

// CatalogItem a listed product or service with display metadata.
// Price is a pre-formatted display string, no currency parsing is done.
type CatalogItem struct {
	ID          string  `json:"id" yaml:"id" csv:"id"`
	Title       string  `json:"title" yaml:"title" csv:"title"`
	Description string  `json:"description" yaml:"description" csv:"description"`
	Category    string  `json:"category" yaml:"category" csv:"category"`
	Provider    string  `json:"provider" yaml:"provider" csv:"provider"`
	Location    string  `json:"location" yaml:"location" csv:"location"`
	Price       string  `json:"price" yaml:"price" csv:"price"`
	Rating      float64 `json:"rating" yaml:"rating" csv:"rating"`
	Image       string  `json:"image" yaml:"image" csv:"image"`
	IsService   bool    `json:"isService" yaml:"isService" csv:"is_service"`
}

// IsZero reports whether the item is the empty placeholder
func (c CatalogItem) IsZero() bool {
	return c == CatalogItem{}
}

// Origin returns the marketplace an id was minted by, e.g. "jomoto" for "jomoto-1"
func (c CatalogItem) Origin() string {
	if strings.HasPrefix(c.ID, BroadcastOrigin+"-") {
		return BroadcastOrigin
	}
	if idx := strings.Index(c.ID, "-"); idx > 0 {
		return c.ID[:idx]
	}
	return ""
}

// PriceLabel price with the service suffix
func (c CatalogItem) PriceLabel() string {
	if c.IsService {
		return c.Price + " per service"
	}
	return c.Price
}
