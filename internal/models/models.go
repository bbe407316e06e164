package models

import (
	"time"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"

	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusFailed     = "failed"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusPending   = "pending"
	PaymentStatusInitiated = "initiated"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
)

// Order is the persisted purchase snapshot. Items, address and contact are
// copied at creation time so history stays stable when the catalog changes.
type Order struct {
	ID             string      `gorm:"primaryKey;size:64"   json:"id"`
	UserID         uint        `gorm:"index;not null"       json:"user_id"`
	Gateway        string      `gorm:"size:16"              json:"gateway"`
	Items          []OrderItem `gorm:"foreignKey:OrderID;references:ID" json:"items"`
	Street         string      `gorm:"not null"             json:"street"`
	City           string      `gorm:"not null"             json:"city"`
	State          string      `gorm:"not null"             json:"state"`
	Pincode        string      `gorm:"not null"             json:"pincode"`
	Country        string      `gorm:"not null"             json:"country"`
	ItemsTotal     float64     `gorm:"not null"             json:"items_total"`
	DeliveryCharge float64     `gorm:"not null"             json:"delivery_charge"`
	TotalAmount    float64     `gorm:"not null"             json:"total_amount"`
	PaymentMethod  string      `gorm:"size:8;not null"      json:"payment_method"`
	Status         string      `gorm:"size:16;index;not null" json:"status"`
	PaymentStatus  string      `gorm:"size:16;not null"     json:"payment_status"`
	GatewayOrderID string      `gorm:"size:64;index"        json:"gateway_order_id"`
	PaymentID      string      `gorm:"size:64"              json:"payment_id"`
	ContactNumber  string      `gorm:"size:20"              json:"contact_number"`
	Email          string      `gorm:"size:128"             json:"email"`
	Notes          string      `json:"notes"`
	IsCustomHamper bool        `gorm:"default:false"        json:"is_custom_hamper"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"                  json:"id"`
	OrderID   string  `gorm:"size:64;index;not null"      json:"order_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"  json:"quantity"`
	UnitPrice float64 `gorm:"not null;check:unit_price>=0" json:"unit_price"`
}

type User struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username      string `gorm:"unique;not null"          json:"username"`
	Email         string `gorm:"index"                    json:"email"`
	Phone         string `gorm:"size:20"                  json:"phone"`
	PasswordHash  string `gorm:"not null"                 json:"-"`
	Role          string `gorm:"not null"                 json:"role"`
	PhoneVerified bool   `gorm:"default:false"            json:"phone_verified"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"size:16"             json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string  `gorm:"not null"                  json:"name"`
	Description string  `gorm:"not null"                  json:"description"`
	Price       float64 `gorm:"not null"                  json:"price"`
	Image       string  `json:"image"`
	CategoryID  uint    `gorm:"index"                     json:"category_id"`
	Count       uint    `json:"count"`
}

type Category struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name  string `gorm:"unique;not null"          json:"name"`
	Image string `json:"image"`
}

type Banner struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title  string `json:"title"`
	Image  string `gorm:"not null"                 json:"image"`
	Link   string `json:"link"`
	Active bool   `gorm:"default:true"             json:"active"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// HamperItem mirrors CartItem for curated gift hampers. An order with
// IsCustomHamper set clears this collection instead of the cart.
type HamperItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

type WishlistItem struct {
	ID        uint `gorm:"primaryKey"     json:"id"`
	UserID    uint `gorm:"index;not null" json:"user_id"`
	ProductID uint `gorm:"not null"       json:"product_id"`
}
