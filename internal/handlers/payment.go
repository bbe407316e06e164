package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giftnest/shop/internal/gateway"
	"github.com/giftnest/shop/internal/logging"
	"github.com/giftnest/shop/internal/models"
	"github.com/giftnest/shop/internal/service/checkout"
)

type PaymentHandler struct {
	Checkout *checkout.Service
}

type createOrderRequest struct {
	Items           []checkout.Item          `json:"items"`
	ShippingAddress checkout.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                   `json:"paymentMethod"`
	ItemsTotal      float64                  `json:"itemsTotal"`
	DeliveryCharge  float64                  `json:"deliveryCharge"`
	TotalAmount     float64                  `json:"totalAmount"`
	ContactNumber   string                   `json:"Contact_number"`
	Email           string                   `json:"user_email"`
	Notes           string                   `json:"notes"`
	IsCustomHamper  bool                     `json:"isCustomHamper"`
}

// CreateOrder places an order through the named gateway. COD completes
// synchronously; online returns the gateway session for the hosted
// checkout. A gateway failure still answers with the internal order id so
// the client can retry or contact support against it.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_order")

	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	result, err := h.Checkout.PlaceOrder(ctx, userID, checkout.PlaceOrderRequest{
		Gateway:         c.Param("gateway"),
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsTotal:      req.ItemsTotal,
		DeliveryCharge:  req.DeliveryCharge,
		TotalAmount:     req.TotalAmount,
		ContactNumber:   req.ContactNumber,
		Email:           req.Email,
		Notes:           req.Notes,
		IsCustomHamper:  req.IsCustomHamper,
	})
	if err != nil {
		if errors.Is(err, checkout.ErrValidation) {
			l.Warn("create_order_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if result != nil && result.Order != nil {
			// Session creation failed after the order was persisted.
			l.Error("create_order_gateway_error", "orderID", result.Order.ID, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"orderId": result.Order.ID,
				"message": "payment session could not be created",
			})
		}
		l.Error("create_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	order := result.Order
	if order.PaymentMethod == models.PaymentMethodCOD {
		l.Info("create_order_success", "orderID", order.ID, "method", "cod")
		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"orderId": order.ID,
			"order":   order,
		})
	}

	l.Info("create_order_success", "orderID", order.ID, "method", "online", "gateway", order.Gateway)
	return c.JSON(http.StatusCreated, echo.Map{
		"success":          true,
		"internalOrderId":  order.ID,
		"gatewayOrderId":   result.Session.GatewayOrderID,
		"paymentSessionId": result.Session.SessionID,
		"key":              result.Session.KeyID,
		"amount":           result.Session.Amount,
		"currency":         result.Session.Currency,
	})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	InternalOrderID   string `json:"internalOrderId"`
}

// VerifyPayment is the client-callback reconciliation endpoint. A FAILED
// answer tells the client to keep the cart for retry; transport errors get
// a 500 so the client shows "status unknown, contact support".
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify_payment")

	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("verify_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	verify := checkout.VerifyRequest{
		GatewayOrderID:  req.RazorpayOrderID,
		PaymentID:       req.RazorpayPaymentID,
		Signature:       req.RazorpaySignature,
		InternalOrderID: req.InternalOrderID,
	}
	if verify.GatewayOrderID == "" {
		verify.GatewayOrderID = req.OrderID
	}
	if verify.PaymentID == "" {
		verify.PaymentID = req.PaymentID
	}

	outcome, err := h.Checkout.VerifyPayment(ctx, c.Param("gateway"), verify)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrValidation):
			l.Warn("verify_payment_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, checkout.ErrOrderNotFound):
			l.Warn("verify_payment_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		default:
			l.Error("verify_payment_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "payment status unknown, contact support",
			})
		}
	}

	status := "FAILED"
	if outcome.Paid {
		status = "SUCCESS"
	}
	l.Info("verify_payment_done", "orderID", outcome.OrderID, "paymentStatus", status)
	return c.JSON(http.StatusOK, echo.Map{
		"success":       outcome.Paid,
		"paymentStatus": status,
		"orderId":       outcome.OrderID,
	})
}

// Webhook receives gateway callbacks. Only a bad signature earns a non-200;
// everything after authentication is acknowledged so the gateway does not
// retry forever.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")
	gatewayName := c.Param("gateway")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	header := gateway.WebhookHeader{}
	if gatewayName == "razorpay" {
		header.Signature = c.Request().Header.Get("X-Razorpay-Signature")
	} else {
		header.Signature = c.Request().Header.Get("x-webhook-signature")
		header.Timestamp = c.Request().Header.Get("x-webhook-timestamp")
	}

	if err := h.Checkout.HandleWebhook(ctx, gatewayName, body, header); err != nil {
		if errors.Is(err, gateway.ErrSignatureMismatch) {
			l.Warn("webhook_rejected", "gateway", gatewayName, "reason", "signature mismatch")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		if errors.Is(err, checkout.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		// Past the signature check everything is acknowledged with 200,
		// a non-2xx only triggers the gateway's retry storm. The next
		// delivery or the client callback will reconcile.
		l.Error("webhook_error", "gateway", gatewayName, "error", err)
		return c.JSON(http.StatusOK, echo.Map{"success": false})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
