package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/events"
	"github.com/giftnest/shop/internal/gateway"
	"github.com/giftnest/shop/internal/logging"
	"github.com/giftnest/shop/internal/models"
)

const lockTTL = 30 * time.Second

type VerifyRequest struct {
	GatewayOrderID  string
	PaymentID       string
	Signature       string
	InternalOrderID string
}

type VerifyOutcome struct {
	OrderID string
	Paid    bool
}

// VerifyPayment is the client-callback reconciliation path. It derives
// ground truth from the gateway and applies it at most once. Re-running it
// for an already paid order reports success without touching state.
func (s *Service) VerifyPayment(ctx context.Context, gatewayName string, req VerifyRequest) (*VerifyOutcome, error) {
	g, ok := s.Gateways[gatewayName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrValidation, gatewayName)
	}

	order, err := s.findOrder(ctx, req.GatewayOrderID, req.InternalOrderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return &VerifyOutcome{OrderID: order.ID, Paid: true}, nil
	}

	s.lock(ctx, order.ID)
	defer s.unlock(ctx, order.ID)

	gatewayOrderID := order.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = req.GatewayOrderID
	}
	result, err := g.VerifyPayment(ctx, gateway.VerifyRequest{
		GatewayOrderID: gatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		// Truth unknown: leave the order alone, the caller reports
		// "contact support" rather than guessing either way.
		return nil, err
	}

	if result.Paid {
		if err := s.markPaid(ctx, order, result.PaymentID); err != nil {
			return nil, err
		}
		return &VerifyOutcome{OrderID: order.ID, Paid: true}, nil
	}

	if err := s.markFailed(ctx, order.ID); err != nil {
		return nil, err
	}
	// A concurrent webhook may have landed a success between our gateway
	// query and the failed write; the conditional update above refuses to
	// overwrite paid, so report the refreshed state.
	var current models.Order
	if err := s.DB.WithContext(ctx).Select("payment_status").First(&current, "id = ?", order.ID).Error; err == nil &&
		current.PaymentStatus == models.PaymentStatusPaid {
		return &VerifyOutcome{OrderID: order.ID, Paid: true}, nil
	}
	return &VerifyOutcome{OrderID: order.ID, Paid: false}, nil
}

// HandleWebhook is the gateway-driven reconciliation path. Delivery is
// at-least-once, so everything past the signature check must be a safe
// no-op on repeat. A non-nil return other than ErrSignatureMismatch is an
// internal error; business-level misses (unknown order, irrelevant event)
// return nil so the gateway stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, gatewayName string, body []byte, header gateway.WebhookHeader) error {
	g, ok := s.Gateways[gatewayName]
	if !ok {
		return fmt.Errorf("%w: unknown gateway %q", ErrValidation, gatewayName)
	}

	if err := g.VerifyWebhook(body, header); err != nil {
		return err
	}

	ev, err := g.ParseWebhook(body)
	if err != nil {
		logging.FromContext(ctx).Warn("webhook_unparseable", "gateway", gatewayName, "error", err)
		return nil
	}
	if !ev.Success || ev.GatewayOrderID == "" {
		return nil
	}

	var order models.Order
	err = s.DB.WithContext(ctx).Where("gateway_order_id = ?", ev.GatewayOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logging.FromContext(ctx).Warn("webhook_unknown_order", "gateway", gatewayName, "gateway_order_id", ev.GatewayOrderID)
		return nil
	}
	if err != nil {
		return err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}

	s.lock(ctx, order.ID)
	defer s.unlock(ctx, order.ID)

	return s.markPaid(ctx, &order, ev.PaymentID)
}

// markPaid transitions initiated/pending/failed -> paid/processing exactly
// once. The WHERE clause makes paid sticky: a row already paid is never
// rewritten, and the confirmation event fires only when this call did the
// transition.
func (s *Service) markPaid(ctx context.Context, order *models.Order, paymentID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", order.ID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.OrderStatusProcessing,
			"payment_id":     paymentID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	s.clearCart(ctx, order)

	s.publish(ctx, events.TopicPaymentEvents, order.ID, map[string]interface{}{
		"type":      "payment_confirmed",
		"orderID":   order.ID,
		"userID":    order.UserID,
		"paymentID": paymentID,
		"amount":    order.TotalAmount,
		"gateway":   order.Gateway,
	})
	return nil
}

func (s *Service) markFailed(ctx context.Context, orderID string) error {
	return s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"status":         models.OrderStatusFailed,
		}).Error
}

// clearCart empties the collection the order was built from. Failed or
// unknown payments leave the cart untouched for retry.
func (s *Service) clearCart(ctx context.Context, order *models.Order) {
	var err error
	if order.IsCustomHamper {
		err = s.DB.WithContext(ctx).Where("user_id = ?", order.UserID).Delete(&models.HamperItem{}).Error
	} else {
		err = s.DB.WithContext(ctx).Where("user_id = ?", order.UserID).Delete(&models.CartItem{}).Error
	}
	if err != nil {
		logging.FromContext(ctx).Error("cart_clear_failed", "orderID", order.ID, "error", err)
	}
}

func (s *Service) findOrder(ctx context.Context, gatewayOrderID, internalOrderID string) (*models.Order, error) {
	var order models.Order
	if gatewayOrderID != "" {
		err := s.DB.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if internalOrderID != "" {
		err := s.DB.WithContext(ctx).Where("id = ?", internalOrderID).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrOrderNotFound
}

func (s *Service) lock(ctx context.Context, orderID string) {
	if s.Locks == nil {
		return
	}
	// Best effort: a held or unreachable lock doesn't block reconciliation,
	// the conditional updates stay correct without it.
	if _, err := s.Locks.AcquireLock(ctx, orderID, lockTTL); err != nil {
		logging.FromContext(ctx).Warn("payment_lock_unavailable", "orderID", orderID, "error", err)
	}
}

func (s *Service) unlock(ctx context.Context, orderID string) {
	if s.Locks == nil {
		return
	}
	s.Locks.ReleaseLock(ctx, orderID)
}
