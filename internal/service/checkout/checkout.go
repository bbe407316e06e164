package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/events"
	"github.com/giftnest/shop/internal/gateway"
	"github.com/giftnest/shop/internal/logging"
	"github.com/giftnest/shop/internal/models"
)

var (
	ErrValidation    = errors.New("validation") // 400
	ErrOrderNotFound = errors.New("order not found") // 404
)

// Publisher is satisfied by events.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// Locker is satisfied by rdx.Store. Nil-able: the conditional UPDATE in
// the reconciler is the correctness backstop, the lock only narrows the
// webhook/callback race window.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string)
}

type Service struct {
	DB             *gorm.DB
	Gateways       map[string]gateway.Gateway
	Producer       Publisher
	Locks          Locker
	DeliveryCharge float64
}

type Item struct {
	ProductID uint    `json:"productId"`
	Quantity  uint    `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

type PlaceOrderRequest struct {
	Gateway         string
	Items           []Item
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsTotal      float64
	DeliveryCharge  float64
	TotalAmount     float64
	ContactNumber   string
	Email           string
	Notes           string
	IsCustomHamper  bool
}

// PlaceOrderResult always carries the persisted order, even when the
// gateway call failed, so the caller can surface the internal order id.
type PlaceOrderResult struct {
	Order   *models.Order
	Session *gateway.Session
}

// PlaceOrder validates the request, persists the order snapshot before any
// gateway contact, and for online payments creates the gateway session.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	online := req.PaymentMethod == models.PaymentMethodOnline

	var g gateway.Gateway
	if online {
		var ok bool
		if g, ok = s.Gateways[req.Gateway]; !ok {
			return nil, fmt.Errorf("%w: unknown gateway %q", ErrValidation, req.Gateway)
		}
	}

	if req.ContactNumber == "" || req.Email == "" {
		var user models.User
		if err := s.DB.WithContext(ctx).First(&user, userID).Error; err == nil {
			if req.ContactNumber == "" {
				req.ContactNumber = user.Phone
			}
			if req.Email == "" {
				req.Email = user.Email
			}
		}
	}
	if online && (req.ContactNumber == "" || req.Email == "") {
		return nil, fmt.Errorf("%w: contact number and email required for online payment", ErrValidation)
	}

	itemsTotal := req.ItemsTotal
	if itemsTotal <= 0 {
		for _, it := range req.Items {
			itemsTotal += float64(it.Quantity) * it.Price
		}
	}
	deliveryCharge := req.DeliveryCharge
	if deliveryCharge <= 0 {
		deliveryCharge = s.DeliveryCharge
	}
	// The total is always re-derived; a client-supplied TotalAmount is
	// never trusted on its own.
	totalAmount := itemsTotal + deliveryCharge

	paymentStatus := models.PaymentStatusPending
	if online {
		paymentStatus = models.PaymentStatusInitiated
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Gateway:        req.Gateway,
		Street:         req.ShippingAddress.Street,
		City:           req.ShippingAddress.City,
		State:          req.ShippingAddress.State,
		Pincode:        req.ShippingAddress.Pincode,
		Country:        req.ShippingAddress.Country,
		ItemsTotal:     itemsTotal,
		DeliveryCharge: deliveryCharge,
		TotalAmount:    totalAmount,
		PaymentMethod:  req.PaymentMethod,
		Status:         models.OrderStatusPending,
		PaymentStatus:  paymentStatus,
		ContactNumber:  req.ContactNumber,
		Email:          req.Email,
		Notes:          req.Notes,
		IsCustomHamper: req.IsCustomHamper,
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}

	if err := s.DB.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if !online {
		s.publish(ctx, events.TopicOrderEvents, order.ID, map[string]interface{}{
			"type":     "order_placed",
			"orderID":  order.ID,
			"userID":   order.UserID,
			"total":    order.TotalAmount,
			"method":   order.PaymentMethod,
		})
		return &PlaceOrderResult{Order: order}, nil
	}

	amountPaise := int64(math.Round(totalAmount * 100))
	session, err := g.CreateSession(ctx, amountPaise, order.ID, gateway.Customer{
		ID:    fmt.Sprint(userID),
		Email: order.Email,
		Phone: order.ContactNumber,
	})
	if err != nil {
		// The failed order record stays behind for support reconciliation.
		s.DB.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", order.ID, models.PaymentStatusPaid).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusFailed,
				"payment_status": models.PaymentStatusFailed,
			})
		order.Status = models.OrderStatusFailed
		order.PaymentStatus = models.PaymentStatusFailed
		return &PlaceOrderResult{Order: order}, err
	}

	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND gateway_order_id = ''", order.ID).
		Update("gateway_order_id", session.GatewayOrderID).Error; err != nil {
		return nil, fmt.Errorf("persist gateway order id: %w", err)
	}
	order.GatewayOrderID = session.GatewayOrderID

	return &PlaceOrderResult{Order: order, Session: session}, nil
}

func (s *Service) validate(req *PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}
	for i := range req.Items {
		if req.Items[i].ProductID == 0 {
			return fmt.Errorf("%w: productId required", ErrValidation)
		}
		if req.Items[i].Quantity < 1 {
			return fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
		}
		if req.Items[i].Price < 0 {
			return fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
	}
	a := req.ShippingAddress
	if a.Street == "" || a.City == "" || a.State == "" || a.Pincode == "" || a.Country == "" {
		return fmt.Errorf("%w: incomplete shipping address", ErrValidation)
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCOD, models.PaymentMethodOnline:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.PaymentMethod)
	}
	return nil
}

// ListOrders returns a user's order history newest first, with the item
// snapshots preloaded.
func (s *Service) ListOrders(ctx context.Context, userID uint, offset, limit int) ([]models.Order, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Service) GetOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) publish(ctx context.Context, topic, key string, event map[string]interface{}) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "error", err)
	}
}
