package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BonusTransactionType classifies an Ozon bonus event
type BonusTransactionType string

const (
	BonusAccrued BonusTransactionType = "accrued"
	BonusUsed    BonusTransactionType = "used"
)

// BonusTransaction is a stored Ozon bonus accrual or usage event
type BonusTransaction struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SellerID    string               `bson:"sellerId" json:"sellerId"`
	Type        BonusTransactionType `bson:"type" json:"type"`
	Amount      float64              `bson:"amount" json:"amount"`
	OrderRef    string               `bson:"orderRef,omitempty" json:"orderRef,omitempty"`
	OccurredAt  time.Time            `bson:"occurredAt" json:"occurredAt"`
	RecordedAt  time.Time            `bson:"recordedAt" json:"recordedAt"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
}

// BonusCommissionPercent is the fixed commission charged on accrued bonuses
const BonusCommissionPercent = 5.0

// BonusReconciliation is the aggregated bonus report for a date range
type BonusReconciliation struct {
	SellerID   string    `json:"sellerId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Accrued    float64   `json:"accrued"`
	Used       float64   `json:"used"`
	Commission float64   `json:"commission"`
}

// ComputeCommission applies the fixed commission percentage to the
// accrued total
func (r *BonusReconciliation) ComputeCommission() {
	r.Commission = r.Accrued * BonusCommissionPercent / 100
}
