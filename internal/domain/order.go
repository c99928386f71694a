package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the lifecycle status of an imported order
type OrderStatus string

const (
	OrderStatusImported   OrderStatus = "imported"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// IsValid checks if the status is a known lifecycle status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusImported, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// orderTransitions holds the allowed one-directional transitions.
// delivered, cancelled and returned are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusImported:   {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned},
}

// CanTransition reports whether from -> to is an allowed transition
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CustomerInfo holds normalized customer data from a marketplace order
type CustomerInfo struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`
}

// OrderTotals is the financial breakdown of an order
type OrderTotals struct {
	Subtotal   float64 `bson:"subtotal" json:"subtotal"`
	Commission float64 `bson:"commission" json:"commission"`
	Shipping   float64 `bson:"shipping" json:"shipping"`
	Payout     float64 `bson:"payout" json:"payout"`
}

// OrderLineItem is a normalized order line stored locally
type OrderLineItem struct {
	ProductID string  `bson:"productId,omitempty" json:"productId,omitempty"`
	SKU       string  `bson:"sku" json:"sku"`
	Name      string  `bson:"name" json:"name"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
}

// Order is an order imported from a marketplace. The pair
// (sellerId, externalOrderId) is unique; orders are never deleted, only
// status-transitioned.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID        string             `bson:"sellerId" json:"sellerId"`
	Marketplace     Marketplace        `bson:"marketplace" json:"marketplace"`
	ExternalOrderID string             `bson:"externalOrderId" json:"externalOrderId"`

	Status    OrderStatus     `bson:"status" json:"status"`
	Customer  CustomerInfo    `bson:"customer" json:"customer"`
	LineItems []OrderLineItem `bson:"lineItems" json:"lineItems"`
	Totals    OrderTotals     `bson:"totals" json:"totals"`

	ExternalCreatedAt time.Time `bson:"externalCreatedAt" json:"externalCreatedAt"`
	ImportedAt        time.Time `bson:"importedAt" json:"importedAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewOrder creates an Order in the imported state from a normalized
// marketplace order
func NewOrder(sellerID string, marketplace Marketplace, ext ExternalOrder) *Order {
	now := time.Now().UTC()

	lineItems := make([]OrderLineItem, len(ext.LineItems))
	for i, li := range ext.LineItems {
		lineItems[i] = OrderLineItem{
			SKU:      li.SKU,
			Name:     li.Name,
			Quantity: li.Quantity,
			Price:    li.Price,
		}
	}

	return &Order{
		ID:                primitive.NewObjectID(),
		SellerID:          sellerID,
		Marketplace:       marketplace,
		ExternalOrderID:   ext.ExternalOrderID,
		Status:            OrderStatusImported,
		Customer:          ext.Customer,
		LineItems:         lineItems,
		Totals:            ext.Totals,
		ExternalCreatedAt: ext.CreatedAt,
		ImportedAt:        now,
		UpdatedAt:         now,
	}
}

// TransitionTo moves the order to a new status. Invalid transitions fail
// with a validation MarketplaceError and leave the order untouched.
func (o *Order) TransitionTo(status OrderStatus) error {
	if !status.IsValid() {
		return NewMarketplaceError(o.Marketplace, ErrKindValidation,
			fmt.Sprintf("unknown order status %q", status))
	}
	if !CanTransition(o.Status, status) {
		return NewMarketplaceError(o.Marketplace, ErrKindValidation,
			fmt.Sprintf("invalid status transition %s -> %s", o.Status, status))
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the order reached a terminal status
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}
