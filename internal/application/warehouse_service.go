package application

import (
	"context"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
)

// WarehouseService manages seller warehouses and their marketplace links
type WarehouseService struct {
	warehouses domain.WarehouseRepository
	logger     *logging.Logger
}

// NewWarehouseService creates a warehouse service
func NewWarehouseService(warehouses domain.WarehouseRepository, logger *logging.Logger) *WarehouseService {
	return &WarehouseService{
		warehouses: warehouses,
		logger:     logger.WithComponent("warehouse-service"),
	}
}

// Create registers a warehouse for a seller
func (s *WarehouseService) Create(ctx context.Context, sellerID, warehouseID, name, address string) (*domain.Warehouse, error) {
	warehouse := domain.NewWarehouse(sellerID, warehouseID, name)
	warehouse.Address = address
	if err := s.warehouses.Save(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// Get retrieves one warehouse
func (s *WarehouseService) Get(ctx context.Context, sellerID, warehouseID string) (*domain.Warehouse, error) {
	return s.warehouses.FindByID(ctx, sellerID, warehouseID)
}

// List retrieves all warehouses of a seller
func (s *WarehouseService) List(ctx context.Context, sellerID string) ([]*domain.Warehouse, error) {
	return s.warehouses.FindBySeller(ctx, sellerID)
}

// Delete removes a warehouse
func (s *WarehouseService) Delete(ctx context.Context, sellerID, warehouseID string) error {
	return s.warehouses.Delete(ctx, sellerID, warehouseID)
}

// Link binds a local warehouse to a marketplace-side warehouse id
func (s *WarehouseService) Link(ctx context.Context, sellerID, warehouseID string, marketplace domain.Marketplace, marketplaceWarehouseID string) (*domain.Warehouse, error) {
	warehouse, err := s.warehouses.FindByID(ctx, sellerID, warehouseID)
	if err != nil {
		return nil, err
	}
	warehouse.AddLink(marketplace, marketplaceWarehouseID)
	if err := s.warehouses.Save(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}
