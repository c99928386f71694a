package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarketplaceCategoryMapping binds an internal category to one marketplace
// category and maps internal attribute names to the marketplace's expected
// characteristic names.
type MarketplaceCategoryMapping struct {
	CategoryID       string            `bson:"categoryId" json:"categoryId"`
	AttributeMapping map[string]string `bson:"attributeMapping,omitempty" json:"attributeMapping,omitempty"`
}

// CategoryMapping is a seller-defined internal category node with
// per-marketplace mappings. Every attributeMapping key must exist as an
// attribute on the owning category.
type CategoryMapping struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID string             `bson:"sellerId" json:"sellerId"`
	Name     string             `bson:"name" json:"name"`

	// Attributes the internal category carries
	Attributes []string `bson:"attributes,omitempty" json:"attributes,omitempty"`

	Marketplaces map[Marketplace]MarketplaceCategoryMapping `bson:"marketplaces,omitempty" json:"marketplaces,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewCategoryMapping creates an internal category node
func NewCategoryMapping(sellerID, name string, attributes []string) *CategoryMapping {
	now := time.Now().UTC()
	return &CategoryMapping{
		ID:           primitive.NewObjectID(),
		SellerID:     sellerID,
		Name:         name,
		Attributes:   attributes,
		Marketplaces: make(map[Marketplace]MarketplaceCategoryMapping),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasAttribute reports whether the category carries the attribute
func (c *CategoryMapping) HasAttribute(name string) bool {
	for _, a := range c.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// SetMarketplaceMapping sets the mapping for a marketplace after checking
// that every attributeMapping key exists on the category.
func (c *CategoryMapping) SetMarketplaceMapping(marketplace Marketplace, mapping MarketplaceCategoryMapping) error {
	for key := range mapping.AttributeMapping {
		if !c.HasAttribute(key) {
			return NewMarketplaceError(marketplace, ErrKindValidation,
				fmt.Sprintf("attribute %q is not defined on category %q", key, c.Name))
		}
	}
	if c.Marketplaces == nil {
		c.Marketplaces = make(map[Marketplace]MarketplaceCategoryMapping)
	}
	c.Marketplaces[marketplace] = mapping
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MappingFor returns the marketplace mapping, if defined
func (c *CategoryMapping) MappingFor(marketplace Marketplace) (MarketplaceCategoryMapping, bool) {
	m, ok := c.Marketplaces[marketplace]
	return m, ok
}

// MarketplaceAttributeName translates an internal attribute name to the
// marketplace characteristic name, falling back to the internal name when
// no mapping entry exists.
func (m MarketplaceCategoryMapping) MarketplaceAttributeName(internal string) string {
	if mapped, ok := m.AttributeMapping[internal]; ok {
		return mapped
	}
	return internal
}
