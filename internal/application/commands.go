package application

import (
	"time"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

// SyncStockCommand pushes local stock quantities for one warehouse to a
// marketplace
type SyncStockCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	WarehouseID string
}

// PullStockCommand overwrites local quantities with marketplace-reported
// levels for one warehouse
type PullStockCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	WarehouseID string
}

// SyncPricesCommand pushes listing prices to a marketplace
type SyncPricesCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
}

// ImportOrdersCommand pulls marketplace orders created within [From, To]
type ImportOrdersCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	From        time.Time
	To          time.Time
}

// UpdateOrderStatusCommand transitions a stored order to a new status
type UpdateOrderStatusCommand struct {
	SellerID        string
	ExternalOrderID string
	Status          domain.OrderStatus
}

// ValidateProductCommand checks a product against the required
// characteristics of its mapped marketplace category
type ValidateProductCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	SKU         string
	Category    string
}

// CreateListingCommand creates a marketplace listing for a local product
type CreateListingCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	SKU         string
	Category    string
}

// ReconcileBonusesCommand aggregates Ozon bonus activity over a date range
type ReconcileBonusesCommand struct {
	SellerID string
	From     time.Time
	To       time.Time
}

// SaveCredentialCommand stores or rotates a seller's marketplace credential
type SaveCredentialCommand struct {
	SellerID    string
	Marketplace domain.Marketplace
	ClientID    string
	APIKey      string
	CampaignID  string
}

// SaveMappingCommand creates or updates an internal category and its
// per-marketplace mappings
type SaveMappingCommand struct {
	SellerID     string
	Name         string
	Attributes   []string
	Marketplaces map[domain.Marketplace]domain.MarketplaceCategoryMapping
}
