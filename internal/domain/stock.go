package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarketplaceStockState is the eventually-consistent mirror of a stock
// record on one marketplace. Written only by the synchronizer.
type MarketplaceStockState struct {
	SyncedQuantity int       `bson:"syncedQuantity" json:"syncedQuantity"`
	LastSyncedAt   time.Time `bson:"lastSyncedAt" json:"lastSyncedAt"`
}

// StockRecord holds the locally authoritative available quantity of one
// product in one warehouse, plus per-marketplace synced mirrors.
type StockRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID    string             `bson:"sellerId" json:"sellerId"`
	ProductID   string             `bson:"productId" json:"productId"`
	SKU         string             `bson:"sku" json:"sku"`
	WarehouseID string             `bson:"warehouseId" json:"warehouseId"`

	Available int `bson:"available" json:"available"`

	Marketplaces map[Marketplace]MarketplaceStockState `bson:"marketplaces,omitempty" json:"marketplaces,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewStockRecord creates a stock record for a product in a warehouse
func NewStockRecord(sellerID, productID, sku, warehouseID string, available int) *StockRecord {
	now := time.Now().UTC()
	return &StockRecord{
		ID:           primitive.NewObjectID(),
		SellerID:     sellerID,
		ProductID:    productID,
		SKU:          sku,
		WarehouseID:  warehouseID,
		Available:    available,
		Marketplaces: make(map[Marketplace]MarketplaceStockState),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkSynced records that a marketplace mirror now reflects the given
// quantity. Last write wins; reapplying the same snapshot converges.
func (s *StockRecord) MarkSynced(marketplace Marketplace, quantity int) {
	if s.Marketplaces == nil {
		s.Marketplaces = make(map[Marketplace]MarketplaceStockState)
	}
	now := time.Now().UTC()
	s.Marketplaces[marketplace] = MarketplaceStockState{
		SyncedQuantity: quantity,
		LastSyncedAt:   now,
	}
	s.UpdatedAt = now
}

// WarehouseLink binds a local warehouse to a marketplace-side warehouse.
// Unique per (warehouseId, marketplaceWarehouseId).
type WarehouseLink struct {
	Marketplace            Marketplace `bson:"marketplace" json:"marketplace"`
	MarketplaceWarehouseID string      `bson:"marketplaceWarehouseId" json:"marketplaceWarehouseId"`
}

// Warehouse is a seller-owned physical or logical stock location
type Warehouse struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WarehouseID string             `bson:"warehouseId" json:"warehouseId"`
	SellerID    string             `bson:"sellerId" json:"sellerId"`
	Name        string             `bson:"name" json:"name"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`

	Links []WarehouseLink `bson:"links,omitempty" json:"links,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewWarehouse creates a warehouse for a seller
func NewWarehouse(sellerID, warehouseID, name string) *Warehouse {
	now := time.Now().UTC()
	return &Warehouse{
		ID:          primitive.NewObjectID(),
		WarehouseID: warehouseID,
		SellerID:    sellerID,
		Name:        name,
		Links:       make([]WarehouseLink, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// LinkFor returns the marketplace-side warehouse id linked to this
// warehouse for a marketplace
func (w *Warehouse) LinkFor(marketplace Marketplace) (string, bool) {
	for _, l := range w.Links {
		if l.Marketplace == marketplace {
			return l.MarketplaceWarehouseID, true
		}
	}
	return "", false
}

// AddLink links a marketplace warehouse, replacing any existing link to
// the same marketplace warehouse id
func (w *Warehouse) AddLink(marketplace Marketplace, marketplaceWarehouseID string) {
	for _, l := range w.Links {
		if l.Marketplace == marketplace && l.MarketplaceWarehouseID == marketplaceWarehouseID {
			return
		}
	}
	w.Links = append(w.Links, WarehouseLink{
		Marketplace:            marketplace,
		MarketplaceWarehouseID: marketplaceWarehouseID,
	})
	w.UpdatedAt = time.Now().UTC()
}
