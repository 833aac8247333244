package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order statuses. set-status accepts any member; the transition graph is not
// enforced so operators can repair stuck orders.
const (
	StatusPending        = "Pending"
	StatusPaid           = "Paid"
	StatusProcessing     = "Processing"
	StatusShipped        = "Shipped"
	StatusReadyForPickup = "ReadyForPickup"
	StatusDelivered      = "Delivered"
	StatusCompleted      = "Completed"
	StatusCancelled      = "Cancelled"
)

const (
	DeliveryShipping = "Shipping"
	DeliveryPickup   = "Pickup"
)

var validStatuses = map[string]bool{
	StatusPending:        true,
	StatusPaid:           true,
	StatusProcessing:     true,
	StatusShipped:        true,
	StatusReadyForPickup: true,
	StatusDelivered:      true,
	StatusCompleted:      true,
	StatusCancelled:      true,
}

// ValidStatus reports whether s is a member of the order status set.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// Shipping is the address payload required for Shipping deliveries.
type Shipping struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// OrderItem is a line frozen at checkout time. Price and name are snapshots;
// later catalog edits must not change them.
type OrderItem struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is immutable after checkout except for its status.
type Order struct {
	ID               int         `json:"orderId"`
	UserID           int         `json:"userId"`
	OrderNumber      string      `json:"orderNumber"`
	Items            []OrderItem `json:"items"`
	TotalPrice       float64     `json:"totalPrice"`
	Status           string      `json:"orderStatus"`
	DeliveryMethod   string      `json:"deliveryMethod"`
	Shipping         *Shipping   `json:"shipping,omitempty"`
	PickupLocationID *int        `json:"pickupLocationId,omitempty"`
	CreatedAt        string      `json:"createdAt"`
	UpdatedAt        string      `json:"updatedAt"`
}

// NewOrderNumber builds a human-readable, roughly monotonic order token.
// The uuid suffix keeps concurrent checkouts from colliding on a timestamp.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
