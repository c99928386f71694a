package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// OrderImportedEvent is emitted when a marketplace order is stored locally
type OrderImportedEvent struct {
	SellerID        string      `json:"sellerId"`
	Marketplace     Marketplace `json:"marketplace"`
	ExternalOrderID string      `json:"externalOrderId"`
	ImportedAt      time.Time   `json:"importedAt"`
}

func (e *OrderImportedEvent) EventType() string     { return "order.imported" }
func (e *OrderImportedEvent) OccurredAt() time.Time { return e.ImportedAt }

// OrderStatusChangedEvent is emitted on a successful status transition
type OrderStatusChangedEvent struct {
	SellerID        string      `json:"sellerId"`
	Marketplace     Marketplace `json:"marketplace"`
	ExternalOrderID string      `json:"externalOrderId"`
	From            OrderStatus `json:"from"`
	To              OrderStatus `json:"to"`
	ChangedAt       time.Time   `json:"changedAt"`
}

func (e *OrderStatusChangedEvent) EventType() string     { return "order.status.changed" }
func (e *OrderStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// StockSyncedEvent is emitted when a stock push to a marketplace completes
type StockSyncedEvent struct {
	SellerID    string      `json:"sellerId"`
	Marketplace Marketplace `json:"marketplace"`
	WarehouseID string      `json:"warehouseId"`
	Synced      int         `json:"synced"`
	Skipped     int         `json:"skipped"`
	Failed      int         `json:"failed"`
	SyncedAt    time.Time   `json:"syncedAt"`
}

func (e *StockSyncedEvent) EventType() string     { return "stock.synced" }
func (e *StockSyncedEvent) OccurredAt() time.Time { return e.SyncedAt }

// CredentialRotatedEvent is emitted when a seller credential is replaced
type CredentialRotatedEvent struct {
	SellerID    string      `json:"sellerId"`
	Marketplace Marketplace `json:"marketplace"`
	RotatedAt   time.Time   `json:"rotatedAt"`
}

func (e *CredentialRotatedEvent) EventType() string     { return "credential.rotated" }
func (e *CredentialRotatedEvent) OccurredAt() time.Time { return e.RotatedAt }
