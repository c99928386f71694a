package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/kafka"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/metrics"
	"github.com/sellerops/marketplace-hub/internal/pkg/outbox"
)

// upstreamRetryAttempts bounds batch-level retries when a marketplace is
// temporarily unavailable
const upstreamRetryAttempts = 2

// SyncService orchestrates synchronization between the local store and the
// marketplaces. It is stateless; every run resolves a fresh connector.
type SyncService struct {
	products   domain.ProductRepository
	orders     domain.OrderRepository
	stocks     domain.StockRepository
	warehouses domain.WarehouseRepository
	mappings   domain.CategoryMappingRepository
	bonuses    domain.BonusTransactionRepository
	syncJobs   domain.SyncJobRepository
	connectors *CredentialService
	outbox     outbox.Repository
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewSyncService creates a sync service
func NewSyncService(
	products domain.ProductRepository,
	orders domain.OrderRepository,
	stocks domain.StockRepository,
	warehouses domain.WarehouseRepository,
	mappings domain.CategoryMappingRepository,
	bonuses domain.BonusTransactionRepository,
	syncJobs domain.SyncJobRepository,
	connectors *CredentialService,
	outboxRepo outbox.Repository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		products:   products,
		orders:     orders,
		stocks:     stocks,
		warehouses: warehouses,
		mappings:   mappings,
		bonuses:    bonuses,
		syncJobs:   syncJobs,
		connectors: connectors,
		outbox:     outboxRepo,
		logger:     logger.WithComponent("sync-service"),
		metrics:    m,
	}
}

// SyncStock pushes authoritative local quantities for one warehouse to a
// marketplace. Records without an enabled listing on that marketplace are
// skipped; a failed batch marks its items failed and the run continues.
func (s *SyncService) SyncStock(ctx context.Context, cmd SyncStockCommand) (*StockSyncSummary, error) {
	warehouse, err := s.warehouses.FindByID(ctx, cmd.SellerID, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	marketplaceWarehouseID, ok := warehouse.LinkFor(cmd.Marketplace)
	if !ok {
		return nil, domain.ErrWarehouseNotLinked
	}

	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return nil, err
	}

	records, err := s.stocks.FindByWarehouse(ctx, cmd.SellerID, cmd.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("loading stock records: %w", err)
	}

	job := domain.NewSyncJob(cmd.SellerID, cmd.Marketplace, domain.SyncTypeStock, "push")
	job.TotalItems = len(records)
	started := time.Now()

	items, skipped := s.partitionListed(ctx, cmd, records, job)

	synced, failed := 0, 0
	for start := 0; start < len(items); start += adapter.MaxStockBatch() {
		end := start + adapter.MaxStockBatch()
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		result, err := s.pushStockBatch(ctx, adapter, marketplaceWarehouseID, batch)
		if err != nil {
			failed += len(batch)
			job.AddError("", fmt.Sprintf("batch of %d items failed: %v", len(batch), err))
			s.logger.WithContext(ctx).WithError(err).Error("stock batch push failed",
				"marketplace", string(cmd.Marketplace), "batch_size", len(batch))
			continue
		}

		rejected := make(map[string]bool, len(result.Errors))
		for _, e := range result.Errors {
			rejected[e.SKU] = true
			job.AddError(e.SKU, e.Message)
		}
		for _, item := range batch {
			if rejected[item.SKU] {
				failed++
				continue
			}
			synced++
			if err := s.stocks.MarkSynced(ctx, cmd.SellerID, item.SKU, cmd.WarehouseID, cmd.Marketplace, item.Quantity); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("marking stock synced",
					"sku", item.SKU, "warehouse_id", cmd.WarehouseID)
			}
		}
	}

	job.SyncedItems = synced
	job.SkippedItems = skipped
	job.FailedItems = failed
	job.Complete()
	s.finishJob(ctx, job, started)

	s.appendEvent(ctx, cmd.SellerID, "stock", kafka.Topics.StockEvents, &domain.StockSyncedEvent{
		SellerID:    cmd.SellerID,
		Marketplace: cmd.Marketplace,
		WarehouseID: cmd.WarehouseID,
		Synced:      synced,
		Skipped:     skipped,
		Failed:      failed,
		SyncedAt:    time.Now().UTC(),
	})

	return &StockSyncSummary{
		JobID:   job.JobID,
		Total:   len(records),
		Synced:  synced,
		Skipped: skipped,
		Failed:  failed,
	}, nil
}

// partitionListed splits stock records into pushable items and a skipped
// count. A record is pushable when its product carries an enabled listing
// on the target marketplace.
func (s *SyncService) partitionListed(ctx context.Context, cmd SyncStockCommand, records []*domain.StockRecord, job *domain.SyncJob) ([]domain.StockItem, int) {
	items := make([]domain.StockItem, 0, len(records))
	skipped := 0
	for _, record := range records {
		product, err := s.products.FindBySKU(ctx, cmd.SellerID, record.SKU)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				skipped++
				continue
			}
			skipped++
			job.AddError(record.SKU, fmt.Sprintf("loading product: %v", err))
			continue
		}
		listing, ok := product.ListingFor(cmd.Marketplace)
		if !ok || !listing.Enabled {
			skipped++
			continue
		}
		items = append(items, domain.StockItem{SKU: record.SKU, Quantity: record.Available})
	}
	return items, skipped
}

// pushStockBatch pushes one batch, retrying only when the marketplace is
// temporarily unavailable
func (s *SyncService) pushStockBatch(ctx context.Context, adapter domain.MarketplaceAdapter, marketplaceWarehouseID string, batch []domain.StockItem) (*domain.StockPushResult, error) {
	var lastErr error
	for attempt := 1; attempt <= upstreamRetryAttempts; attempt++ {
		result, err := adapter.UpdateStock(ctx, marketplaceWarehouseID, batch)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !domain.IsErrorKind(err, domain.ErrKindUnavailable) {
			break
		}
	}
	return nil, lastErr
}

// PullStock overwrites local quantities with marketplace-reported levels.
// Explicit operator action; nothing pulls stock implicitly.
func (s *SyncService) PullStock(ctx context.Context, cmd PullStockCommand) (*StockPullSummary, error) {
	warehouse, err := s.warehouses.FindByID(ctx, cmd.SellerID, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	marketplaceWarehouseID, ok := warehouse.LinkFor(cmd.Marketplace)
	if !ok {
		return nil, domain.ErrWarehouseNotLinked
	}

	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return nil, err
	}

	records, err := s.stocks.FindByWarehouse(ctx, cmd.SellerID, cmd.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("loading stock records: %w", err)
	}
	skus := make([]string, len(records))
	known := make(map[string]bool, len(records))
	for i, record := range records {
		skus[i] = record.SKU
		known[record.SKU] = true
	}

	job := domain.NewSyncJob(cmd.SellerID, cmd.Marketplace, domain.SyncTypeStock, "pull")
	job.TotalItems = len(records)
	started := time.Now()

	levels, err := adapter.GetStocks(ctx, marketplaceWarehouseID, skus)
	if err != nil {
		job.Fail(err.Error())
		s.finishJob(ctx, job, started)
		return nil, err
	}

	updated, skippedRemote := 0, 0
	for _, level := range levels {
		if !known[level.SKU] {
			skippedRemote++
			continue
		}
		if err := s.stocks.SetAvailable(ctx, cmd.SellerID, level.SKU, cmd.WarehouseID, level.Quantity); err != nil {
			job.AddError(level.SKU, err.Error())
			continue
		}
		updated++
	}

	job.SyncedItems = updated
	job.SkippedItems = skippedRemote
	job.FailedItems = len(job.Errors)
	job.Complete()
	s.finishJob(ctx, job, started)

	return &StockPullSummary{JobID: job.JobID, Updated: updated, Skipped: skippedRemote}, nil
}

// SyncPrices pushes listing prices for every enabled listing to a
// marketplace
func (s *SyncService) SyncPrices(ctx context.Context, cmd SyncPricesCommand) (*PriceSyncSummary, error) {
	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return nil, err
	}

	items, err := s.collectPriceItems(ctx, cmd)
	if err != nil {
		return nil, err
	}

	job := domain.NewSyncJob(cmd.SellerID, cmd.Marketplace, domain.SyncTypePrices, "push")
	job.TotalItems = len(items)
	started := time.Now()

	updated, failed := 0, 0
	for start := 0; start < len(items); start += adapter.MaxStockBatch() {
		end := start + adapter.MaxStockBatch()
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		result, err := adapter.UpdatePrices(ctx, batch)
		if err != nil {
			failed += len(batch)
			job.AddError("", fmt.Sprintf("price batch of %d items failed: %v", len(batch), err))
			continue
		}
		updated += result.Updated
		failed += result.Failed
		for _, e := range result.Errors {
			job.AddError(e.SKU, e.Message)
		}
	}

	job.SyncedItems = updated
	job.FailedItems = failed
	job.Complete()
	s.finishJob(ctx, job, started)

	return &PriceSyncSummary{JobID: job.JobID, Updated: updated, Failed: failed}, nil
}

// collectPriceItems walks the seller's products page by page and builds
// price items for enabled listings
func (s *SyncService) collectPriceItems(ctx context.Context, cmd SyncPricesCommand) ([]domain.PriceItem, error) {
	items := make([]domain.PriceItem, 0)
	pagination := domain.Pagination{Page: 1, PageSize: 200}
	for {
		products, err := s.products.FindBySeller(ctx, cmd.SellerID, pagination)
		if err != nil {
			return nil, fmt.Errorf("loading products: %w", err)
		}
		for _, product := range products {
			listing, ok := product.ListingFor(cmd.Marketplace)
			if !ok || !listing.Enabled {
				continue
			}
			price := listing.Price
			if price <= 0 {
				price = product.Price
			}
			items = append(items, domain.PriceItem{SKU: product.SKU, Price: price})
		}
		if int64(len(products)) < pagination.PageSize {
			return items, nil
		}
		pagination.Page++
	}
}

// ImportOrders pulls marketplace orders for a date range and stores the new
// ones. Re-running an overlapping range changes nothing: duplicates are
// counted, never errored.
func (s *SyncService) ImportOrders(ctx context.Context, cmd ImportOrdersCommand) (*OrderImportSummary, error) {
	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return nil, err
	}

	job := domain.NewSyncJob(cmd.SellerID, cmd.Marketplace, domain.SyncTypeOrders, "pull")
	started := time.Now()

	external, err := adapter.GetOrders(ctx, cmd.From, cmd.To)
	if err != nil {
		job.Fail(err.Error())
		s.finishJob(ctx, job, started)
		return nil, err
	}
	job.TotalItems = len(external)

	imported, duplicates, failed := 0, 0, 0
	for _, ext := range external {
		order := domain.NewOrder(cmd.SellerID, cmd.Marketplace, ext)
		s.resolveLineItems(ctx, order)

		inserted, err := s.orders.InsertIfAbsent(ctx, order)
		if err != nil {
			failed++
			job.AddError(ext.ExternalOrderID, err.Error())
			continue
		}
		if !inserted {
			duplicates++
			s.metrics.RecordOrderDeduplicated(string(cmd.Marketplace))
			continue
		}
		imported++
		s.metrics.RecordOrderImported(string(cmd.Marketplace))
		s.appendEvent(ctx, cmd.SellerID, "order", kafka.Topics.OrderEvents, &domain.OrderImportedEvent{
			SellerID:        cmd.SellerID,
			Marketplace:     cmd.Marketplace,
			ExternalOrderID: ext.ExternalOrderID,
			ImportedAt:      order.ImportedAt,
		})
	}

	job.SyncedItems = imported
	job.SkippedItems = duplicates
	job.FailedItems = failed
	job.Complete()
	s.finishJob(ctx, job, started)

	return &OrderImportSummary{
		JobID:             job.JobID,
		Imported:          imported,
		DuplicatesSkipped: duplicates,
		Failed:            failed,
	}, nil
}

// resolveLineItems attaches local product ids to order lines where the SKU
// is known. Unknown SKUs stay unresolved.
func (s *SyncService) resolveLineItems(ctx context.Context, order *domain.Order) {
	for i := range order.LineItems {
		product, err := s.products.FindBySKU(ctx, order.SellerID, order.LineItems[i].SKU)
		if err != nil {
			continue
		}
		order.LineItems[i].ProductID = product.ID.Hex()
	}
}

// UpdateOrderStatus transitions a stored order. The write is guarded by
// the expected current status, so a concurrent transition loses cleanly.
func (s *SyncService) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) error {
	order, err := s.orders.FindByExternalID(ctx, cmd.SellerID, cmd.ExternalOrderID)
	if err != nil {
		return err
	}

	from := order.Status
	if err := order.TransitionTo(cmd.Status); err != nil {
		return err
	}

	if err := s.orders.UpdateStatus(ctx, cmd.SellerID, cmd.ExternalOrderID, from, cmd.Status); err != nil {
		return err
	}

	s.appendEvent(ctx, cmd.SellerID, "order", kafka.Topics.OrderEvents, &domain.OrderStatusChangedEvent{
		SellerID:        cmd.SellerID,
		Marketplace:     order.Marketplace,
		ExternalOrderID: cmd.ExternalOrderID,
		From:            from,
		To:              cmd.Status,
		ChangedAt:       time.Now().UTC(),
	})
	return nil
}

// ValidateProductForMarketplace reports exactly which required
// characteristics of the mapped marketplace category the product is missing
func (s *SyncService) ValidateProductForMarketplace(ctx context.Context, cmd ValidateProductCommand) (*ProductValidationReport, error) {
	product, err := s.products.FindBySKU(ctx, cmd.SellerID, cmd.SKU)
	if err != nil {
		return nil, err
	}

	_, marketplaceMapping, err := s.resolveMapping(ctx, cmd.SellerID, cmd.Category, cmd.Marketplace)
	if err != nil {
		return nil, err
	}

	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return nil, err
	}
	characteristics, err := adapter.GetCategoryCharacteristics(ctx, marketplaceMapping.CategoryID)
	if err != nil {
		return nil, err
	}

	// Names the product can provide, translated to marketplace names
	provided := make(map[string]bool, len(product.Attributes))
	for name, value := range product.Attributes {
		if value == "" {
			continue
		}
		provided[marketplaceMapping.MarketplaceAttributeName(name)] = true
	}

	missing := make([]string, 0)
	for _, characteristic := range characteristics {
		if characteristic.Required && !provided[characteristic.Name] {
			missing = append(missing, characteristic.Name)
		}
	}

	return &ProductValidationReport{
		SKU:               cmd.SKU,
		CategoryID:        marketplaceMapping.CategoryID,
		Valid:             len(missing) == 0,
		MissingAttributes: missing,
	}, nil
}

// CreateListing creates a marketplace listing for a local product using its
// mapped category and translated characteristics
func (s *SyncService) CreateListing(ctx context.Context, cmd CreateListingCommand) error {
	product, err := s.products.FindBySKU(ctx, cmd.SellerID, cmd.SKU)
	if err != nil {
		return err
	}

	_, marketplaceMapping, err := s.resolveMapping(ctx, cmd.SellerID, cmd.Category, cmd.Marketplace)
	if err != nil {
		return err
	}

	adapter, err := s.connectors.Connector(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil {
		return err
	}

	characteristics := make(map[string]string, len(product.Attributes))
	for name, value := range product.Attributes {
		characteristics[marketplaceMapping.MarketplaceAttributeName(name)] = value
	}

	data := domain.ProductData{
		SKU:             product.SKU,
		Name:            product.Name,
		Description:     product.Description,
		Price:           product.Price,
		CategoryID:      marketplaceMapping.CategoryID,
		Characteristics: characteristics,
	}
	if err := adapter.CreateProduct(ctx, data); err != nil {
		return err
	}

	product.SetListing(cmd.Marketplace, domain.Listing{
		Price:      product.Price,
		CategoryID: marketplaceMapping.CategoryID,
		Enabled:    true,
	})
	if err := s.products.Save(ctx, product); err != nil {
		return fmt.Errorf("saving product listing: %w", err)
	}
	return nil
}

// ReconcileBonuses aggregates Ozon bonus accruals and usages over a date
// range and applies the fixed commission to accruals
func (s *SyncService) ReconcileBonuses(ctx context.Context, cmd ReconcileBonusesCommand) (*domain.BonusReconciliation, error) {
	accrued, used, err := s.bonuses.Aggregate(ctx, cmd.SellerID, cmd.From, cmd.To)
	if err != nil {
		return nil, fmt.Errorf("aggregating bonus transactions: %w", err)
	}

	reconciliation := &domain.BonusReconciliation{
		SellerID: cmd.SellerID,
		From:     cmd.From,
		To:       cmd.To,
		Accrued:  accrued,
		Used:     used,
	}
	reconciliation.ComputeCommission()
	return reconciliation, nil
}

// resolveMapping loads a category mapping and its marketplace binding
func (s *SyncService) resolveMapping(ctx context.Context, sellerID, category string, marketplace domain.Marketplace) (*domain.CategoryMapping, domain.MarketplaceCategoryMapping, error) {
	mapping, err := s.mappings.FindByName(ctx, sellerID, category)
	if err != nil {
		return nil, domain.MarketplaceCategoryMapping{}, err
	}
	marketplaceMapping, ok := mapping.MappingFor(marketplace)
	if !ok {
		return nil, domain.MarketplaceCategoryMapping{}, domain.NewMarketplaceError(marketplace, domain.ErrKindValidation,
			fmt.Sprintf("category %q has no mapping for marketplace %s", category, marketplace))
	}
	return mapping, marketplaceMapping, nil
}

// finishJob persists the audit record and emits run telemetry
func (s *SyncService) finishJob(ctx context.Context, job *domain.SyncJob, started time.Time) {
	duration := time.Since(started)
	if err := s.syncJobs.Save(ctx, job); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("saving sync job", "job_id", job.JobID)
	}
	s.metrics.RecordSyncRun(string(job.Marketplace), string(job.Type), string(job.Status), duration)
	s.metrics.RecordSyncItems(string(job.Marketplace), string(job.Type), "synced", job.SyncedItems)
	s.metrics.RecordSyncItems(string(job.Marketplace), string(job.Type), "skipped", job.SkippedItems)
	s.metrics.RecordSyncItems(string(job.Marketplace), string(job.Type), "failed", job.FailedItems)
	s.logger.SyncRun(ctx, string(job.Marketplace), string(job.Type), job.SyncedItems, job.SkippedItems, job.FailedItems, duration)
}

func (s *SyncService) appendEvent(ctx context.Context, aggregateID, aggregateType, topic string, event domain.DomainEvent) {
	evt, err := outbox.NewEvent(aggregateID, aggregateType, topic, event)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("building outbox event", "event_type", event.EventType())
		return
	}
	if err := s.outbox.Save(ctx, evt); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("saving outbox event", "event_type", event.EventType())
	}
}
