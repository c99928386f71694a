package application

import (
	"context"
	"errors"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
)

// CatalogService manages seller category mappings and browses marketplace
// category trees through connectors
type CatalogService struct {
	mappings   domain.CategoryMappingRepository
	connectors *CredentialService
	logger     *logging.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(
	mappings domain.CategoryMappingRepository,
	connectors *CredentialService,
	logger *logging.Logger,
) *CatalogService {
	return &CatalogService{
		mappings:   mappings,
		connectors: connectors,
		logger:     logger.WithComponent("catalog-service"),
	}
}

// SaveMapping creates or updates an internal category and its marketplace
// bindings. Attribute mapping keys must exist on the category.
func (s *CatalogService) SaveMapping(ctx context.Context, cmd SaveMappingCommand) (*domain.CategoryMapping, error) {
	mapping, err := s.mappings.FindByName(ctx, cmd.SellerID, cmd.Name)
	if err != nil {
		if !errors.Is(err, domain.ErrMappingNotFound) {
			return nil, err
		}
		mapping = domain.NewCategoryMapping(cmd.SellerID, cmd.Name, cmd.Attributes)
	} else if cmd.Attributes != nil {
		mapping.Attributes = cmd.Attributes
	}

	for marketplace, marketplaceMapping := range cmd.Marketplaces {
		if err := mapping.SetMarketplaceMapping(marketplace, marketplaceMapping); err != nil {
			return nil, err
		}
	}

	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// GetMapping retrieves one category mapping by name
func (s *CatalogService) GetMapping(ctx context.Context, sellerID, name string) (*domain.CategoryMapping, error) {
	return s.mappings.FindByName(ctx, sellerID, name)
}

// ListMappings retrieves all category mappings of a seller
func (s *CatalogService) ListMappings(ctx context.Context, sellerID string) ([]*domain.CategoryMapping, error) {
	return s.mappings.FindBySeller(ctx, sellerID)
}

// DeleteMapping removes a category mapping
func (s *CatalogService) DeleteMapping(ctx context.Context, sellerID, name string) error {
	return s.mappings.Delete(ctx, sellerID, name)
}

// GetCategories retrieves a marketplace's category tree
func (s *CatalogService) GetCategories(ctx context.Context, sellerID string, marketplace domain.Marketplace) ([]domain.Category, error) {
	adapter, err := s.connectors.Connector(ctx, sellerID, marketplace)
	if err != nil {
		return nil, err
	}
	return adapter.GetCategories(ctx)
}

// SearchCategories retrieves marketplace category nodes matching a query
func (s *CatalogService) SearchCategories(ctx context.Context, sellerID string, marketplace domain.Marketplace, query string) ([]domain.Category, error) {
	adapter, err := s.connectors.Connector(ctx, sellerID, marketplace)
	if err != nil {
		return nil, err
	}
	return adapter.SearchCategories(ctx, query)
}

// GetCategoryCharacteristics retrieves the attribute definitions of a
// marketplace category
func (s *CatalogService) GetCategoryCharacteristics(ctx context.Context, sellerID string, marketplace domain.Marketplace, categoryID string) ([]domain.Characteristic, error) {
	adapter, err := s.connectors.Connector(ctx, sellerID, marketplace)
	if err != nil {
		return nil, err
	}
	return adapter.GetCategoryCharacteristics(ctx, categoryID)
}
