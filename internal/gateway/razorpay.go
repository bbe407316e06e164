package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

const razorpayName = "razorpay"

type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Client        *razorpay.Client
}

func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	return &Razorpay{
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		Client:        razorpay.NewClient(keyID, keySecret),
	}
}

func (r *Razorpay) Name() string { return razorpayName }

func (r *Razorpay) CreateSession(ctx context.Context, amountPaise int64, receipt string, cust Customer) (*Session, error) {
	if amountPaise <= 0 {
		return nil, &GatewayError{Gateway: razorpayName, Op: "create_order", Err: fmt.Errorf("amount must be positive, got %d", amountPaise)}
	}

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"email": cust.Email,
			"phone": cust.Phone,
		},
	}
	body, err := r.Client.Order.Create(data, nil)
	if err != nil {
		return nil, &GatewayError{Gateway: razorpayName, Op: "create_order", Err: err}
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, &GatewayError{Gateway: razorpayName, Op: "create_order", Err: fmt.Errorf("malformed response: missing order id")}
	}

	return &Session{
		GatewayOrderID: orderID,
		SessionID:      orderID,
		KeyID:          r.KeyID,
		Amount:         amountPaise,
		Currency:       "INR",
	}, nil
}

// VerifyPayment checks the checkout-handler signature:
// HMAC-SHA256(keySecret, orderID|paymentID) hex-encoded.
func (r *Razorpay) VerifyPayment(_ context.Context, req VerifyRequest) (VerifyResult, error) {
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return VerifyResult{}, nil
	}
	expected := hmacHex([]byte(r.KeySecret), []byte(req.GatewayOrderID+"|"+req.PaymentID))
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return VerifyResult{}, nil
	}
	return VerifyResult{Paid: true, PaymentID: req.PaymentID}, nil
}

func (r *Razorpay) VerifyWebhook(body []byte, header WebhookHeader) error {
	expected := hmacHex([]byte(r.WebhookSecret), body)
	if !hmac.Equal([]byte(expected), []byte(header.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (r *Razorpay) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
			Order struct {
				Entity struct {
					ID string `json:"id"`
				} `json:"entity"`
			} `json:"order"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("razorpay: webhook decode failed: %w", err)
	}

	ev := &WebhookEvent{
		Type:           payload.Event,
		GatewayOrderID: payload.Payload.Payment.Entity.OrderID,
		PaymentID:      payload.Payload.Payment.Entity.ID,
	}
	if ev.GatewayOrderID == "" {
		ev.GatewayOrderID = payload.Payload.Order.Entity.ID
	}
	switch payload.Event {
	case "payment.captured", "order.paid":
		ev.Success = true
	}
	return ev, nil
}

func hmacHex(secret, msg []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
