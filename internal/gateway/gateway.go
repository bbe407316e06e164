package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrSignatureMismatch is returned when a client signature or webhook
// signature fails verification. No order state may change after it.
var ErrSignatureMismatch = errors.New("signature mismatch")

// GatewayError wraps any upstream failure (non-2xx, timeout, malformed
// payload). Callers treat it as "session not created / truth unknown" and
// mark the order failed.
type GatewayError struct {
	Gateway    string
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Gateway, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Session is the normalized result of creating a payable order with a
// gateway. SessionID is what the hosted checkout UI needs; for Razorpay it
// equals the gateway order id, for Cashfree it is the payment_session_id.
type Session struct {
	GatewayOrderID string `json:"gateway_order_id"`
	SessionID      string `json:"session_id"`
	KeyID          string `json:"key_id,omitempty"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// VerifyRequest carries the client-supplied claim of a completed payment.
type VerifyRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// VerifyResult is the gateway's ground truth for that claim.
type VerifyResult struct {
	Paid      bool
	PaymentID string
}

// Attempt is one payment try against a gateway order. A single gateway
// order can accumulate several attempts; one SUCCESS is enough.
type Attempt struct {
	ID     string
	Status string
	Method string
}

type WebhookHeader struct {
	Signature string
	Timestamp string
}

type WebhookEvent struct {
	Type           string
	GatewayOrderID string
	PaymentID      string
	Success        bool
}

// Gateway abstracts a payment provider: create a payable session for an
// amount in paise, and determine ground truth of payment success without
// trusting client-supplied claims.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, amountPaise int64, receipt string, cust Customer) (*Session, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (VerifyResult, error)
	// VerifyWebhook authenticates a raw webhook body against the
	// webhook-specific secret. This is separate from client signature
	// verification and must stay that way.
	VerifyWebhook(body []byte, header WebhookHeader) error
	ParseWebhook(body []byte) (*WebhookEvent, error)
}
