package cart

// CartItem is one line of a user's cart, joined with the product fields the
// storefront needs. Stock figures are advisory here; checkout re-checks them.
type CartItem struct {
	ProductID     int     `json:"productId"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
	Quantity      int     `json:"quantity"`
	InStock       bool    `json:"inStock"`
}
