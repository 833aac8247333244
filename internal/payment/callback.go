package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedCallback = errors.New("malformed gateway callback")

// callbackEnvelope mirrors the gateway's webhook body:
// {"Body": {"stkCallback": {...}}}. The shape is validated on entry and
// anything that does not carry a correlation id fails closed.
type callbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback is the reconciliation payload for one push-payment attempt.
type STKCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        int              `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Items []MetadataItem `json:"Item"`
}

// MetadataItem is one keyed entry of the metadata list. Values are numbers or
// strings depending on the key.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Succeeded reports whether the gateway confirmed the payment.
func (cb STKCallback) Succeeded() bool {
	return cb.ResultCode == 0
}

// ReceiptNumber extracts the provider's receipt id from the metadata list.
func (cb STKCallback) ReceiptNumber() string {
	for _, item := range cb.CallbackMetadata.Items {
		if item.Name == "MpesaReceiptNumber" {
			switch v := item.Value.(type) {
			case string:
				return v
			case float64:
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

// ParseCallback decodes and validates a raw webhook body.
func ParseCallback(body []byte) (STKCallback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return STKCallback{}, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	cb := env.Body.STKCallback
	if cb.CheckoutRequestID == "" {
		return STKCallback{}, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	return cb, nil
}
