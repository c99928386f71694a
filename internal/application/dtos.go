package application

import (
	"strings"
	"time"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

// StockSyncSummary is the outcome of one stock push run. Counts always sum
// to the number of stock records considered.
type StockSyncSummary struct {
	JobID   string `json:"jobId"`
	Total   int    `json:"total"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// StockPullSummary is the outcome of one explicit stock pull
type StockPullSummary struct {
	JobID   string `json:"jobId"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

// PriceSyncSummary is the outcome of one price push run
type PriceSyncSummary struct {
	JobID   string `json:"jobId"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

// OrderImportSummary is the outcome of one order import run
type OrderImportSummary struct {
	JobID             string `json:"jobId"`
	Imported          int    `json:"imported"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
	Failed            int    `json:"failed"`
}

// ProductValidationReport lists the required marketplace characteristics a
// product does not yet carry. Valid means the listing would be accepted.
type ProductValidationReport struct {
	SKU               string   `json:"sku"`
	CategoryID        string   `json:"categoryId"`
	Valid             bool     `json:"valid"`
	MissingAttributes []string `json:"missingAttributes,omitempty"`
}

// CredentialDTO exposes credential metadata without secret material
type CredentialDTO struct {
	SellerID    string             `json:"sellerId"`
	Marketplace domain.Marketplace `json:"marketplace"`
	ClientID    string             `json:"clientId,omitempty"`
	Encrypted   bool               `json:"encrypted"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// maskIdentifier hides all but the last four characters of an identifier
func maskIdentifier(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}
