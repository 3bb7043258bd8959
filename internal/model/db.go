package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

type Product struct {
	ID          string          `gorm:"primaryKey;size:64;not null"` // product sku
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID          string          `gorm:"primaryKey;size:36;not null"`
	OwnerToken  string          `gorm:"size:128;index;not null"` // authenticated user or anonymous session
	Status      OrderStatus     `gorm:"size:16;index;not null"`  // pending, paid
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// set once when the checkout session is opened; NULL until then
	ProviderSessionID *string `gorm:"size:255;uniqueIndex"`
	// set once by the pending -> paid transition
	ProviderPaymentID string `gorm:"size:255"`

	Items     []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) SessionID() string {
	if o.ProviderSessionID == nil {
		return ""
	}
	return *o.ProviderSessionID
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → orders.id
	OrderID string `gorm:"size:36;index;not null"`
	// FK → products.id
	ProductID string `gorm:"size:64;index;not null"`
	// name and description as shown to the buyer when the order was placed
	ProductName        string          `gorm:"size:255;not null"`
	ProductDescription string          `gorm:"type:text"`
	Quantity           int             `gorm:"not null"`
	Price              decimal.Decimal `gorm:"type:decimal(10,2);not null"` // unit price frozen at order time

	CreatedAt time.Time
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return LineSubtotal(i.Price, i.Quantity)
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

const FulfillmentOrderPaid = "order.paid"

// FulfillmentEvent is an outbox record written in the same transaction as the
// state change it describes.
type FulfillmentEvent struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"size:36;uniqueIndex;not null"`
	OrderID   string `gorm:"size:36;index;not null"`
	Type      string `gorm:"size:64;not null"`
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	SentAt    *time.Time `gorm:"index"`
}
