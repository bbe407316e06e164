package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/gateway"
	"github.com/giftnest/shop/internal/models"
	"github.com/giftnest/shop/internal/service/checkout"
)

const (
	testKeySecret     = "keysecret"
	testWebhookSecret = "whsecret"
)

func newPaymentHandler(t *testing.T) (*PaymentHandler, *gorm.DB) {
	db := initTestDB(t)
	svc := &checkout.Service{
		DB: db,
		Gateways: map[string]gateway.Gateway{
			"razorpay": gateway.NewRazorpay("rzp_test_key", testKeySecret, testWebhookSecret),
		},
		DeliveryCharge: 80,
	}
	return &PaymentHandler{Checkout: svc}, db
}

func seedInitiatedOrder(t *testing.T, db *gorm.DB, gatewayOrderID string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:             "ord-" + gatewayOrderID,
		UserID:         1,
		Gateway:        "razorpay",
		Street:         "12 MG Road",
		City:           "Bengaluru",
		State:          "Karnataka",
		Pincode:        "560001",
		Country:        "India",
		ItemsTotal:     200,
		DeliveryCharge: 80,
		TotalAmount:    280,
		PaymentMethod:  models.PaymentMethodOnline,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusInitiated,
		GatewayOrderID: gatewayOrderID,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrderCOD(t *testing.T) {
	h, _ := newPaymentHandler(t)

	body := `{
		"items": [{"productId": 1, "quantity": 2, "price": 100, "name": "Choco Hamper"}],
		"shippingAddress": {"street": "12 MG Road", "city": "Bengaluru", "state": "Karnataka", "pincode": "560001", "country": "India"},
		"paymentMethod": "cod",
		"deliveryCharge": 80,
		"Contact_number": "9876543210",
		"user_email": "buyer@example.com"
	}`
	c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/create-order", body, 1)
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.NotEmpty(t, resp["orderId"])
}

func TestCreateOrderValidationError(t *testing.T) {
	h, _ := newPaymentHandler(t)

	c, _ := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/create-order",
		`{"items": [], "paymentMethod": "cod"}`, 1)
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	err := h.CreateOrder(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestCreateOrderUnauthorized(t *testing.T) {
	h, _ := newPaymentHandler(t)

	c, _ := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/create-order", `{}`, 0)
	err := h.CreateOrder(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestVerifyPaymentSuccess(t *testing.T) {
	h, db := newPaymentHandler(t)
	order := seedInitiatedOrder(t, db, "order_A1")

	sig := signBody(testKeySecret, []byte("order_A1|pay_1"))
	body := fmt.Sprintf(`{"razorpay_order_id":"order_A1","razorpay_payment_id":"pay_1","razorpay_signature":"%s"}`, sig)

	c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/verify-payment", body, 1)
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	require.NoError(t, h.VerifyPayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.Equal(t, "SUCCESS", resp["paymentStatus"])
	require.Equal(t, order.ID, resp["orderId"])

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}

func TestVerifyPaymentBadSignatureReportsFailed(t *testing.T) {
	h, db := newPaymentHandler(t)
	order := seedInitiatedOrder(t, db, "order_A2")

	body := `{"razorpay_order_id":"order_A2","razorpay_payment_id":"pay_1","razorpay_signature":"forged"}`
	c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/verify-payment", body, 1)
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	require.NoError(t, h.VerifyPayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
	require.Equal(t, "FAILED", resp["paymentStatus"])

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
}

func TestVerifyPaymentUnknownOrder(t *testing.T) {
	h, _ := newPaymentHandler(t)

	body := `{"razorpay_order_id":"order_missing","razorpay_payment_id":"pay_1","razorpay_signature":"x"}`
	c, _ := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/verify-payment", body, 1)
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	err := h.VerifyPayment(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func webhookBody(gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {"id": "%s", "order_id": "%s", "status": "captured"}}}
	}`, paymentID, gatewayOrderID))
}

func TestWebhookMarksPaid(t *testing.T) {
	h, db := newPaymentHandler(t)
	order := seedInitiatedOrder(t, db, "order_W1")

	body := webhookBody("order_W1", "pay_hook")
	c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/webhook", string(body), 0)
	c.Request().Header.Set("X-Razorpay-Signature", signBody(testWebhookSecret, body))
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	require.NoError(t, h.Webhook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	require.Equal(t, "pay_hook", stored.PaymentID)
}

func TestWebhookDuplicateDeliveryStillOK(t *testing.T) {
	h, db := newPaymentHandler(t)
	seedInitiatedOrder(t, db, "order_W2")

	body := webhookBody("order_W2", "pay_hook")
	for i := 0; i < 2; i++ {
		c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/webhook", string(body), 0)
		c.Request().Header.Set("X-Razorpay-Signature", signBody(testWebhookSecret, body))
		c.SetParamNames("gateway")
		c.SetParamValues("razorpay")
		require.NoError(t, h.Webhook(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	h, db := newPaymentHandler(t)
	order := seedInitiatedOrder(t, db, "order_W3")

	body := webhookBody("order_W3", "pay_forged")
	c, _ := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/webhook", string(body), 0)
	c.Request().Header.Set("X-Razorpay-Signature", "deadbeef")
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	err := h.Webhook(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.PaymentStatusInitiated, stored.PaymentStatus)
}

func TestWebhookUnknownOrderAcked(t *testing.T) {
	h, _ := newPaymentHandler(t)

	body := webhookBody("order_nobody", "pay_x")
	c, rec := newContext(t, http.MethodPost, "/api/v1/pay/razorpay/webhook", string(body), 0)
	c.Request().Header.Set("X-Razorpay-Signature", signBody(testWebhookSecret, body))
	c.SetParamNames("gateway")
	c.SetParamValues("razorpay")
	require.NoError(t, h.Webhook(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
