package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialCipher encrypts and decrypts credential payloads. The domain
// never sees key material; the implementation lives in the crypto package.
type CredentialCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(blob string) ([]byte, error)
}

// APICredential is a seller's per-marketplace API credential. The secret
// fields live encrypted in EncryptedBlob; plaintext exists only transiently
// while building an outbound connector.
type APICredential struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID    string             `bson:"sellerId" json:"sellerId"`
	Marketplace Marketplace        `bson:"marketplace" json:"marketplace"`

	// EncryptedBlob holds the encrypted credential payload
	EncryptedBlob string `bson:"encryptedBlob" json:"-"`

	// Legacy plaintext fields; populated only on documents written before
	// encryption at rest. Cleared by the re-encryption migration.
	LegacyClientID   string `bson:"clientId,omitempty" json:"-"`
	LegacyAPIKey     string `bson:"apiKey,omitempty" json:"-"`
	LegacyCampaignID string `bson:"campaignId,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewAPICredential creates a credential record with an already-encrypted blob
func NewAPICredential(sellerID string, marketplace Marketplace, encryptedBlob string) *APICredential {
	now := time.Now().UTC()
	return &APICredential{
		ID:            primitive.NewObjectID(),
		SellerID:      sellerID,
		Marketplace:   marketplace,
		EncryptedBlob: encryptedBlob,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsLegacyPlaintext reports whether the document still carries plaintext
// credentials from before the encryption migration
func (c *APICredential) IsLegacyPlaintext() bool {
	return c.EncryptedBlob == "" && (c.LegacyClientID != "" || c.LegacyAPIKey != "")
}

// Rotate replaces the encrypted payload and clears any legacy plaintext
func (c *APICredential) Rotate(encryptedBlob string) {
	c.EncryptedBlob = encryptedBlob
	c.LegacyClientID = ""
	c.LegacyAPIKey = ""
	c.LegacyCampaignID = ""
	c.UpdatedAt = time.Now().UTC()
}
