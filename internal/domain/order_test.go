package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExternalOrder(id string) ExternalOrder {
	return ExternalOrder{
		ExternalOrderID: id,
		CreatedAt:       time.Now().UTC().Add(-time.Hour),
		Status:          "awaiting_packaging",
		Customer:        CustomerInfo{Name: "Ivan Petrov", Phone: "+7 900 000-00-00"},
		LineItems: []ExternalLineItem{
			{SKU: "SKU-1", Name: "Item one", Quantity: 2, Price: 499.0},
			{SKU: "SKU-2", Name: "Item two", Quantity: 1, Price: 1290.0},
		},
		Totals: OrderTotals{Subtotal: 2288.0, Commission: 228.8, Shipping: 99.0, Payout: 1960.2},
	}
}

func TestNewOrder(t *testing.T) {
	order := NewOrder("seller-1", MarketplaceOzon, testExternalOrder("EXT-1"))

	require.Equal(t, OrderStatusImported, order.Status)
	require.Equal(t, "seller-1", order.SellerID)
	require.Equal(t, "EXT-1", order.ExternalOrderID)
	require.Len(t, order.LineItems, 2)
	assert.Equal(t, 2, order.LineItems[0].Quantity)
	assert.Equal(t, 2288.0, order.Totals.Subtotal)
	assert.False(t, order.ImportedAt.IsZero())
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"imported to processing", OrderStatusImported, OrderStatusProcessing, true},
		{"imported to cancelled", OrderStatusImported, OrderStatusCancelled, true},
		{"processing to shipped", OrderStatusProcessing, OrderStatusShipped, true},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"shipped to returned", OrderStatusShipped, OrderStatusReturned, true},
		{"imported to shipped skips processing", OrderStatusImported, OrderStatusShipped, false},
		{"delivered back to processing", OrderStatusDelivered, OrderStatusProcessing, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusProcessing, false},
		{"returned is terminal", OrderStatusReturned, OrderStatusShipped, false},
		{"shipped back to processing", OrderStatusShipped, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := NewOrder("seller-1", MarketplaceWB, testExternalOrder("EXT-2"))
			order.Status = tt.from

			err := order.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)
			} else {
				require.Error(t, err)
				assert.True(t, IsErrorKind(err, ErrKindValidation))
				assert.Equal(t, tt.from, order.Status, "rejected transition must not mutate")
			}
		})
	}
}

func TestOrderTransitionUnknownStatus(t *testing.T) {
	order := NewOrder("seller-1", MarketplaceYandex, testExternalOrder("EXT-3"))

	err := order.TransitionTo(OrderStatus("archived"))
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, ErrKindValidation))
	assert.Equal(t, OrderStatusImported, order.Status)
}

func TestOrderIsTerminal(t *testing.T) {
	order := NewOrder("seller-1", MarketplaceOzon, testExternalOrder("EXT-4"))
	assert.False(t, order.IsTerminal())

	order.Status = OrderStatusDelivered
	assert.True(t, order.IsTerminal())

	order.Status = OrderStatusCancelled
	assert.True(t, order.IsTerminal())
}
