package payment

const MethodMpesa = "Mpesa"

// Payment statuses. Everything except Pending is terminal: a late or duplicate
// callback must never overwrite a terminal state.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
	StatusRefunded  = "Refunded"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusCompleted: true,
	StatusFailed:    true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

// ValidStatus reports whether s is a member of the payment status set.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// IsTerminal reports whether a payment in this status may no longer be moved
// by the reconciliation path.
func IsTerminal(s string) bool {
	return validStatuses[s] && s != StatusPending
}

// Payment is one attempt to collect money for an order. The amount is a
// snapshot of the order total at initiation time.
type Payment struct {
	ID                int     `json:"paymentId"`
	OrderID           int     `json:"orderId"`
	UserID            int     `json:"userId"`
	Method            string  `json:"method"`
	Amount            float64 `json:"amount"`
	Status            string  `json:"status"`
	CheckoutRequestID string  `json:"checkoutRequestId"`
	MerchantRequestID string  `json:"merchantRequestId"`
	TransactionID     string  `json:"transactionId,omitempty"`
	PaidAt            string  `json:"paidAt,omitempty"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}
