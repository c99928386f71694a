package domain

import (
	"context"
	"time"
)

// ProductRepository defines persistence for products
type ProductRepository interface {
	// Save upserts a product by (sellerId, sku)
	Save(ctx context.Context, product *Product) error

	// FindBySKU retrieves a product by seller and SKU
	FindBySKU(ctx context.Context, sellerID, sku string) (*Product, error)

	// FindBySeller retrieves non-deleted products for a seller
	FindBySeller(ctx context.Context, sellerID string, pagination Pagination) ([]*Product, error)

	// SoftDelete marks a product deleted
	SoftDelete(ctx context.Context, sellerID, sku string) error

	// HardDelete removes the document; explicit operator action only
	HardDelete(ctx context.Context, sellerID, sku string) error
}

// OrderRepository defines persistence for imported orders
type OrderRepository interface {
	// InsertIfAbsent stores the order unless one already exists for
	// (sellerId, externalOrderId). The duplicate outcome is a typed
	// result, never an error.
	InsertIfAbsent(ctx context.Context, order *Order) (inserted bool, err error)

	// FindByExternalID retrieves an order by its natural key
	FindByExternalID(ctx context.Context, sellerID, externalOrderID string) (*Order, error)

	// FindBySeller retrieves orders for a seller
	FindBySeller(ctx context.Context, sellerID string, pagination Pagination) ([]*Order, error)

	// UpdateStatus persists a status transition guarded by the expected
	// current status. Returns ErrOrderNotFound when the guard fails.
	UpdateStatus(ctx context.Context, sellerID, externalOrderID string, from, to OrderStatus) error

	// CountBySeller returns the stored order count for a seller
	CountBySeller(ctx context.Context, sellerID string) (int64, error)
}

// StockRepository defines persistence for stock records
type StockRepository interface {
	// Save upserts a stock record by (productId, warehouseId)
	Save(ctx context.Context, record *StockRecord) error

	// FindByWarehouse retrieves stock records for a warehouse
	FindByWarehouse(ctx context.Context, sellerID, warehouseID string) ([]*StockRecord, error)

	// MarkSynced writes the per-marketplace mirror for one record
	MarkSynced(ctx context.Context, sellerID, sku, warehouseID string, marketplace Marketplace, quantity int) error

	// SetAvailable overwrites the authoritative quantity (explicit pull
	// sync only; last write wins)
	SetAvailable(ctx context.Context, sellerID, sku, warehouseID string, quantity int) error
}

// WarehouseRepository defines persistence for warehouses and their
// marketplace links
type WarehouseRepository interface {
	Save(ctx context.Context, warehouse *Warehouse) error
	FindByID(ctx context.Context, sellerID, warehouseID string) (*Warehouse, error)
	FindBySeller(ctx context.Context, sellerID string) ([]*Warehouse, error)
	Delete(ctx context.Context, sellerID, warehouseID string) error
}

// CategoryMappingRepository defines persistence for category mappings
type CategoryMappingRepository interface {
	Save(ctx context.Context, mapping *CategoryMapping) error
	FindByName(ctx context.Context, sellerID, name string) (*CategoryMapping, error)
	FindBySeller(ctx context.Context, sellerID string) ([]*CategoryMapping, error)
	Delete(ctx context.Context, sellerID, name string) error
}

// CredentialRepository defines persistence for encrypted API credentials
type CredentialRepository interface {
	// Save upserts the credential by (sellerId, marketplace)
	Save(ctx context.Context, credential *APICredential) error

	// Find retrieves the credential for a seller and marketplace
	Find(ctx context.Context, sellerID string, marketplace Marketplace) (*APICredential, error)

	// FindLegacyPlaintext retrieves documents not yet encrypted at rest
	FindLegacyPlaintext(ctx context.Context) ([]*APICredential, error)

	// Delete removes the credential; explicit operator action
	Delete(ctx context.Context, sellerID string, marketplace Marketplace) error
}

// BonusTransactionRepository defines persistence for Ozon bonus events
type BonusTransactionRepository interface {
	Save(ctx context.Context, tx *BonusTransaction) error

	// Aggregate sums accrued and used bonus amounts over a date range
	Aggregate(ctx context.Context, sellerID string, from, to time.Time) (accrued, used float64, err error)
}

// SyncJobRepository defines persistence for sync run audit records
type SyncJobRepository interface {
	Save(ctx context.Context, job *SyncJob) error
	FindByID(ctx context.Context, jobID string) (*SyncJob, error)
	FindBySeller(ctx context.Context, sellerID string, pagination Pagination) ([]*SyncJob, error)
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 20}
}

// Normalize clamps non-positive values to the defaults
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	return p
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}
