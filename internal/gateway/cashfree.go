package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	cashfreeName       = "cashfree"
	cashfreeAPIVersion = "2023-08-01"

	// Any attempt with this status means the gateway order was paid,
	// regardless of later failed attempts.
	AttemptStatusSuccess = "SUCCESS"
)

// Cashfree talks to the Cashfree PG REST API directly; there is no official
// Go SDK. BaseURL points at sandbox or production.
type Cashfree struct {
	AppID         string
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	HTTP          *http.Client
}

func NewCashfree(appID, secretKey, webhookSecret, baseURL string) *Cashfree {
	return &Cashfree{
		AppID:         appID,
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		BaseURL:       baseURL,
		HTTP:          &http.Client{Timeout: 15 * time.Second},
	}
}

func (cf *Cashfree) Name() string { return cashfreeName }

func (cf *Cashfree) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, cf.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", cf.AppID)
	req.Header.Set("x-client-secret", cf.SecretKey)
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (cf *Cashfree) CreateSession(ctx context.Context, amountPaise int64, receipt string, cust Customer) (*Session, error) {
	if amountPaise <= 0 {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: fmt.Errorf("amount must be positive, got %d", amountPaise)}
	}

	payload := map[string]interface{}{
		"order_id":       receipt,
		"order_amount":   float64(amountPaise) / 100,
		"order_currency": "INR",
		"customer_details": map[string]interface{}{
			"customer_id":    cust.ID,
			"customer_name":  cust.Name,
			"customer_email": cust.Email,
			"customer_phone": cust.Phone,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: err}
	}

	req, err := cf.newRequest(ctx, http.MethodPost, "/pg/orders", bytes.NewReader(data))
	if err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: err}
	}
	resp, err := cf.HTTP.Do(req)
	if err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{
			Gateway:    cashfreeName,
			Op:         "create_order",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", body),
		}
	}

	var created struct {
		OrderID          string `json:"order_id"`
		PaymentSessionID string `json:"payment_session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: fmt.Errorf("malformed response: %w", err)}
	}
	if created.OrderID == "" || created.PaymentSessionID == "" {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "create_order", Err: fmt.Errorf("malformed response: missing order_id or payment_session_id")}
	}

	return &Session{
		GatewayOrderID: created.OrderID,
		SessionID:      created.PaymentSessionID,
		Amount:         amountPaise,
		Currency:       "INR",
	}, nil
}

// fetchAttempts lists every payment attempt recorded against a gateway
// order. Cashfree keeps all attempts; the latest one failing says nothing
// about an earlier success.
func (cf *Cashfree) fetchAttempts(ctx context.Context, gatewayOrderID string) ([]Attempt, error) {
	req, err := cf.newRequest(ctx, http.MethodGet, "/pg/orders/"+gatewayOrderID+"/payments", nil)
	if err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "fetch_payments", Err: err}
	}
	resp, err := cf.HTTP.Do(req)
	if err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "fetch_payments", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{
			Gateway:    cashfreeName,
			Op:         "fetch_payments",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", body),
		}
	}

	var raw []struct {
		CfPaymentID   json.Number `json:"cf_payment_id"`
		PaymentStatus string      `json:"payment_status"`
		PaymentGroup  string      `json:"payment_group"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &GatewayError{Gateway: cashfreeName, Op: "fetch_payments", Err: fmt.Errorf("malformed response: %w", err)}
	}

	attempts := make([]Attempt, 0, len(raw))
	for _, a := range raw {
		attempts = append(attempts, Attempt{
			ID:     a.CfPaymentID.String(),
			Status: a.PaymentStatus,
			Method: a.PaymentGroup,
		})
	}
	return attempts, nil
}

// VerifyPayment ignores client-supplied status and asks the gateway for all
// attempts; one SUCCESS attempt makes the order paid.
func (cf *Cashfree) VerifyPayment(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	attempts, err := cf.fetchAttempts(ctx, req.GatewayOrderID)
	if err != nil {
		return VerifyResult{}, err
	}
	for _, a := range attempts {
		if a.Status == AttemptStatusSuccess {
			return VerifyResult{Paid: true, PaymentID: a.ID}, nil
		}
	}
	return VerifyResult{}, nil
}

// VerifyWebhook checks base64(HMAC-SHA256(secret, timestamp+body)) against
// the x-webhook-signature header.
func (cf *Cashfree) VerifyWebhook(body []byte, header WebhookHeader) error {
	mac := hmac.New(sha256.New, []byte(cf.WebhookSecret))
	mac.Write([]byte(header.Timestamp))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(header.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (cf *Cashfree) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
			Payment struct {
				CfPaymentID   json.Number `json:"cf_payment_id"`
				PaymentStatus string      `json:"payment_status"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("cashfree: webhook decode failed: %w", err)
	}

	return &WebhookEvent{
		Type:           payload.Type,
		GatewayOrderID: payload.Data.Order.OrderID,
		PaymentID:      payload.Data.Payment.CfPaymentID.String(),
		Success:        payload.Type == "PAYMENT_SUCCESS_WEBHOOK" && payload.Data.Payment.PaymentStatus == AttemptStatusSuccess,
	}, nil
}
