package domain

import (
	"context"
	"time"
)

// Credentials holds the per-marketplace API credentials for a single call.
// The factory binds them into a fresh adapter; they are never stored here.
type Credentials struct {
	ClientID   string
	APIKey     string
	CampaignID string // Yandex Market only
}

// ProductListing is a normalized product record pulled from a marketplace
type ProductListing struct {
	SKU             string                 `json:"sku"`
	Name            string                 `json:"name"`
	CategoryID      string                 `json:"categoryId"`
	Characteristics map[string]string      `json:"characteristics,omitempty"`
	Raw             map[string]interface{} `json:"raw,omitempty"`
}

// ProductData is the payload for creating a marketplace listing
type ProductData struct {
	SKU             string            `json:"sku"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Price           float64           `json:"price"`
	CategoryID      string            `json:"categoryId"`
	Characteristics map[string]string `json:"characteristics,omitempty"`
}

// ExternalOrder is a normalized order pulled from a marketplace
type ExternalOrder struct {
	ExternalOrderID string             `json:"externalOrderId"`
	CreatedAt       time.Time          `json:"createdAt"`
	Status          string             `json:"status"`
	Customer        CustomerInfo       `json:"customer"`
	LineItems       []ExternalLineItem `json:"lineItems"`
	Totals          OrderTotals        `json:"totals"`
}

// ExternalLineItem is a normalized order line from a marketplace
type ExternalLineItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// StockItem is a single sku/quantity pair pushed to a marketplace
type StockItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// StockPushError describes a per-item failure in a bulk stock push
type StockPushError struct {
	SKU     string `json:"sku"`
	Message string `json:"message"`
}

// StockPushResult is the outcome of a bulk stock push. Partial failures are
// reported here, never raised; the synchronizer decides how to proceed.
type StockPushResult struct {
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Errors  []StockPushError `json:"errors,omitempty"`
}

// PriceItem is a single sku/price pair pushed to a marketplace
type PriceItem struct {
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
}

// PricePushResult is the outcome of a bulk price push
type PricePushResult struct {
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []StockPushError `json:"errors,omitempty"`
}

// Category is a node of a marketplace category tree
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ParentID string     `json:"parentId,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// Characteristic describes one attribute a marketplace category expects
type Characteristic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required"`
}

// RemoteStockLevel is a marketplace-reported stock level for a pull sync
type RemoteStockLevel struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// MarketplaceAdapter normalizes one marketplace's API behind a common
// capability set. Implementations are credential-bound, stateless and
// cheap to construct; callers obtain them from the Factory per call.
type MarketplaceAdapter interface {
	// Name returns the marketplace identifier this adapter serves
	Name() Marketplace

	// GetProducts pulls the full product listing, paginating until the
	// marketplace signals no more results
	GetProducts(ctx context.Context) ([]ProductListing, error)

	// GetOrders pulls orders created within [from, to]
	GetOrders(ctx context.Context, from, to time.Time) ([]ExternalOrder, error)

	// CreateProduct creates a listing; fails with a validation
	// MarketplaceError if the marketplace category id is absent
	CreateProduct(ctx context.Context, data ProductData) error

	// UpdateStock bulk-pushes quantities for one marketplace warehouse.
	// Per-item failures land in the result, not in the error.
	UpdateStock(ctx context.Context, marketplaceWarehouseID string, items []StockItem) (*StockPushResult, error)

	// UpdatePrices bulk-pushes price changes
	UpdatePrices(ctx context.Context, items []PriceItem) (*PricePushResult, error)

	// GetStocks reads marketplace-side stock levels for an explicit pull sync
	GetStocks(ctx context.Context, marketplaceWarehouseID string, skus []string) ([]RemoteStockLevel, error)

	// GetCategories retrieves the marketplace category tree
	GetCategories(ctx context.Context) ([]Category, error)

	// SearchCategories retrieves category nodes matching a query
	SearchCategories(ctx context.Context, query string) ([]Category, error)

	// GetCategoryCharacteristics retrieves the attribute definitions of a
	// category, with required attributes flagged
	GetCategoryCharacteristics(ctx context.Context, categoryID string) ([]Characteristic, error)

	// MaxStockBatch returns the marketplace's maximum stock batch size
	MaxStockBatch() int
}

// AdapterBuilder constructs a credential-bound adapter
type AdapterBuilder func(creds Credentials) MarketplaceAdapter

// Factory creates marketplace adapters. It holds no adapter instances:
// every Connector call builds a fresh, credential-bound one.
type Factory struct {
	builders map[Marketplace]AdapterBuilder
}

// NewFactory creates an empty adapter factory
func NewFactory() *Factory {
	return &Factory{builders: make(map[Marketplace]AdapterBuilder)}
}

// Register registers a builder for a marketplace
func (f *Factory) Register(marketplace Marketplace, builder AdapterBuilder) {
	f.builders[marketplace] = builder
}

// Connector returns a fresh adapter bound to the given credentials.
// Unknown marketplaces fail with a validation MarketplaceError.
func (f *Factory) Connector(marketplace Marketplace, creds Credentials) (MarketplaceAdapter, error) {
	builder, ok := f.builders[marketplace]
	if !ok {
		return nil, NewMarketplaceError(marketplace, ErrKindValidation,
			"unknown marketplace: "+string(marketplace))
	}
	return builder(creds), nil
}
