package product

// Product is a catalog entry. Stock is shown here for display and cart
// validation only; the checkout transaction is the sole writer of stock.
type Product struct {
	ID            int     `json:"productId"`
	Name          string  `json:"name"`
	CategoryID    int     `json:"categoryId"`
	Price         float64 `json:"price"`
	Description   string  `json:"description,omitempty"`
	StockQuantity int     `json:"stockQuantity"`
	IsActive      bool    `json:"isActive"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	UpdatedAt     string  `json:"updatedAt,omitempty"`
}
