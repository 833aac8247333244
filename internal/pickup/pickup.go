package pickup

// Location is a physical store a customer can collect an order from.
type Location struct {
	ID       int    `json:"locationId"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	IsActive bool   `json:"isActive"`
}
