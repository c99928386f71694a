package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing is the per-marketplace sub-record of a product
type Listing struct {
	ExternalID string  `bson:"externalId,omitempty" json:"externalId,omitempty"`
	Price      float64 `bson:"price" json:"price"`
	Stock      int     `bson:"stock" json:"stock"`
	CategoryID string  `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	Enabled    bool    `bson:"enabled" json:"enabled"`
}

// Product is a seller-scoped product. SKU is unique per seller. Products
// are soft-deleted: sync never hard-purges, only an explicit operator
// action removes the document.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID    string             `bson:"sellerId" json:"sellerId"`
	SKU         string             `bson:"sku" json:"sku"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`

	// Per-marketplace listing sub-records keyed by marketplace identifier
	Listings map[Marketplace]Listing `bson:"listings,omitempty" json:"listings,omitempty"`

	// Attribute values used for marketplace listing validation
	Attributes map[string]string `bson:"attributes,omitempty" json:"attributes,omitempty"`

	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// NewProduct creates a product for a seller
func NewProduct(sellerID, sku, name string, price float64) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        primitive.NewObjectID(),
		SellerID:  sellerID,
		SKU:       sku,
		Name:      name,
		Price:     price,
		Listings:  make(map[Marketplace]Listing),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ListingFor returns the listing for a marketplace, if the product is
// listed there
func (p *Product) ListingFor(marketplace Marketplace) (Listing, bool) {
	l, ok := p.Listings[marketplace]
	return l, ok
}

// SetListing sets or replaces the listing for a marketplace
func (p *Product) SetListing(marketplace Marketplace, listing Listing) {
	if p.Listings == nil {
		p.Listings = make(map[Marketplace]Listing)
	}
	p.Listings[marketplace] = listing
	p.UpdatedAt = time.Now().UTC()
}

// SoftDelete marks the product deleted without removing the document
func (p *Product) SoftDelete() {
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// IsDeleted reports whether the product is soft-deleted
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}
