package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncType represents what a sync run operates on
type SyncType string

const (
	SyncTypeStock  SyncType = "stock"
	SyncTypeOrders SyncType = "orders"
	SyncTypePrices SyncType = "prices"
)

// SyncStatus represents the lifecycle of a sync run
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncItemError records one failed item within a sync run
type SyncItemError struct {
	ItemID    string    `bson:"itemId,omitempty" json:"itemId,omitempty"`
	Error     string    `bson:"error" json:"error"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SyncJob is the audit record of one synchronization run
type SyncJob struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobID       string             `bson:"jobId" json:"jobId"`
	SellerID    string             `bson:"sellerId" json:"sellerId"`
	Marketplace Marketplace        `bson:"marketplace" json:"marketplace"`

	Type      SyncType   `bson:"type" json:"type"`
	Status    SyncStatus `bson:"status" json:"status"`
	Direction string     `bson:"direction" json:"direction"` // push, pull

	TotalItems   int `bson:"totalItems" json:"totalItems"`
	SyncedItems  int `bson:"syncedItems" json:"syncedItems"`
	SkippedItems int `bson:"skippedItems" json:"skippedItems"`
	FailedItems  int `bson:"failedItems" json:"failedItems"`

	Errors []SyncItemError `bson:"errors,omitempty" json:"errors,omitempty"`

	StartedAt   time.Time  `bson:"startedAt" json:"startedAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewSyncJob creates a running sync job
func NewSyncJob(sellerID string, marketplace Marketplace, syncType SyncType, direction string) *SyncJob {
	return &SyncJob{
		ID:          primitive.NewObjectID(),
		JobID:       fmt.Sprintf("SYNC-%s", uuid.New().String()[:8]),
		SellerID:    sellerID,
		Marketplace: marketplace,
		Type:        syncType,
		Status:      SyncStatusRunning,
		Direction:   direction,
		Errors:      make([]SyncItemError, 0),
		StartedAt:   time.Now().UTC(),
	}
}

// AddError records a failed item
func (j *SyncJob) AddError(itemID, message string) {
	j.Errors = append(j.Errors, SyncItemError{
		ItemID:    itemID,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// Complete finishes the job; failed if nothing synced and errors occurred
func (j *SyncJob) Complete() {
	now := time.Now().UTC()
	if len(j.Errors) > 0 && j.SyncedItems == 0 {
		j.Status = SyncStatusFailed
	} else {
		j.Status = SyncStatusCompleted
	}
	j.CompletedAt = &now
}

// Fail marks the job failed with a run-level error
func (j *SyncJob) Fail(message string) {
	now := time.Now().UTC()
	j.Status = SyncStatusFailed
	j.AddError("", message)
	j.CompletedAt = &now
}
