package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/metrics"
	"github.com/sellerops/marketplace-hub/internal/pkg/outbox"
)

var errUnexpected = errors.New("unexpected call")

func newTestLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig("test"))
}

type fakeProductRepo struct {
	saveFn         func(context.Context, *domain.Product) error
	findBySKUFn    func(context.Context, string, string) (*domain.Product, error)
	findBySellerFn func(context.Context, string, domain.Pagination) ([]*domain.Product, error)
	softDeleteFn   func(context.Context, string, string) error
	hardDeleteFn   func(context.Context, string, string) error
}

func (f *fakeProductRepo) Save(ctx context.Context, product *domain.Product) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, product)
}

func (f *fakeProductRepo) FindBySKU(ctx context.Context, sellerID, sku string) (*domain.Product, error) {
	if f.findBySKUFn == nil {
		return nil, errUnexpected
	}
	return f.findBySKUFn(ctx, sellerID, sku)
}

func (f *fakeProductRepo) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.Product, error) {
	if f.findBySellerFn == nil {
		return nil, errUnexpected
	}
	return f.findBySellerFn(ctx, sellerID, pagination)
}

func (f *fakeProductRepo) SoftDelete(ctx context.Context, sellerID, sku string) error {
	if f.softDeleteFn == nil {
		return errUnexpected
	}
	return f.softDeleteFn(ctx, sellerID, sku)
}

func (f *fakeProductRepo) HardDelete(ctx context.Context, sellerID, sku string) error {
	if f.hardDeleteFn == nil {
		return errUnexpected
	}
	return f.hardDeleteFn(ctx, sellerID, sku)
}

// memoryOrderRepo stores orders keyed by (sellerId, externalOrderId), the
// same natural key the unique index enforces
type memoryOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[string]*domain.Order)}
}

func orderKey(sellerID, externalOrderID string) string {
	return sellerID + "/" + externalOrderID
}

func (r *memoryOrderRepo) InsertIfAbsent(ctx context.Context, order *domain.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := orderKey(order.SellerID, order.ExternalOrderID)
	if _, exists := r.orders[key]; exists {
		return false, nil
	}
	r.orders[key] = order
	return true, nil
}

func (r *memoryOrderRepo) FindByExternalID(ctx context.Context, sellerID, externalOrderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderKey(sellerID, externalOrderID)]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	// Return a copy, like the real repository decoding a document,
	// so caller mutations don't bypass UpdateStatus's guard.
	copied := *order
	return &copied, nil
}

func (r *memoryOrderRepo) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if order.SellerID == sellerID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, sellerID, externalOrderID string, from, to domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderKey(sellerID, externalOrderID)]
	if !ok || order.Status != from {
		return domain.ErrOrderNotFound
	}
	order.Status = to
	return nil
}

func (r *memoryOrderRepo) CountBySeller(ctx context.Context, sellerID string) (int64, error) {
	orders, _ := r.FindBySeller(ctx, sellerID, domain.DefaultPagination())
	return int64(len(orders)), nil
}

type fakeStockRepo struct {
	saveFn            func(context.Context, *domain.StockRecord) error
	findByWarehouseFn func(context.Context, string, string) ([]*domain.StockRecord, error)
	markSyncedFn      func(context.Context, string, string, string, domain.Marketplace, int) error
	setAvailableFn    func(context.Context, string, string, string, int) error
}

func (f *fakeStockRepo) Save(ctx context.Context, record *domain.StockRecord) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, record)
}

func (f *fakeStockRepo) FindByWarehouse(ctx context.Context, sellerID, warehouseID string) ([]*domain.StockRecord, error) {
	if f.findByWarehouseFn == nil {
		return nil, errUnexpected
	}
	return f.findByWarehouseFn(ctx, sellerID, warehouseID)
}

func (f *fakeStockRepo) MarkSynced(ctx context.Context, sellerID, sku, warehouseID string, marketplace domain.Marketplace, quantity int) error {
	if f.markSyncedFn == nil {
		return errUnexpected
	}
	return f.markSyncedFn(ctx, sellerID, sku, warehouseID, marketplace, quantity)
}

func (f *fakeStockRepo) SetAvailable(ctx context.Context, sellerID, sku, warehouseID string, quantity int) error {
	if f.setAvailableFn == nil {
		return errUnexpected
	}
	return f.setAvailableFn(ctx, sellerID, sku, warehouseID, quantity)
}

type fakeWarehouseRepo struct {
	saveFn         func(context.Context, *domain.Warehouse) error
	findByIDFn     func(context.Context, string, string) (*domain.Warehouse, error)
	findBySellerFn func(context.Context, string) ([]*domain.Warehouse, error)
	deleteFn       func(context.Context, string, string) error
}

func (f *fakeWarehouseRepo) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, warehouse)
}

func (f *fakeWarehouseRepo) FindByID(ctx context.Context, sellerID, warehouseID string) (*domain.Warehouse, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, sellerID, warehouseID)
}

func (f *fakeWarehouseRepo) FindBySeller(ctx context.Context, sellerID string) ([]*domain.Warehouse, error) {
	if f.findBySellerFn == nil {
		return nil, errUnexpected
	}
	return f.findBySellerFn(ctx, sellerID)
}

func (f *fakeWarehouseRepo) Delete(ctx context.Context, sellerID, warehouseID string) error {
	if f.deleteFn == nil {
		return errUnexpected
	}
	return f.deleteFn(ctx, sellerID, warehouseID)
}

type fakeMappingRepo struct {
	saveFn         func(context.Context, *domain.CategoryMapping) error
	findByNameFn   func(context.Context, string, string) (*domain.CategoryMapping, error)
	findBySellerFn func(context.Context, string) ([]*domain.CategoryMapping, error)
	deleteFn       func(context.Context, string, string) error
}

func (f *fakeMappingRepo) Save(ctx context.Context, mapping *domain.CategoryMapping) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, mapping)
}

func (f *fakeMappingRepo) FindByName(ctx context.Context, sellerID, name string) (*domain.CategoryMapping, error) {
	if f.findByNameFn == nil {
		return nil, errUnexpected
	}
	return f.findByNameFn(ctx, sellerID, name)
}

func (f *fakeMappingRepo) FindBySeller(ctx context.Context, sellerID string) ([]*domain.CategoryMapping, error) {
	if f.findBySellerFn == nil {
		return nil, errUnexpected
	}
	return f.findBySellerFn(ctx, sellerID)
}

func (f *fakeMappingRepo) Delete(ctx context.Context, sellerID, name string) error {
	if f.deleteFn == nil {
		return errUnexpected
	}
	return f.deleteFn(ctx, sellerID, name)
}

type fakeCredentialRepo struct {
	saveFn                func(context.Context, *domain.APICredential) error
	findFn                func(context.Context, string, domain.Marketplace) (*domain.APICredential, error)
	findLegacyPlaintextFn func(context.Context) ([]*domain.APICredential, error)
	deleteFn              func(context.Context, string, domain.Marketplace) error
}

func (f *fakeCredentialRepo) Save(ctx context.Context, credential *domain.APICredential) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, credential)
}

func (f *fakeCredentialRepo) Find(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
	if f.findFn == nil {
		return nil, errUnexpected
	}
	return f.findFn(ctx, sellerID, marketplace)
}

func (f *fakeCredentialRepo) FindLegacyPlaintext(ctx context.Context) ([]*domain.APICredential, error) {
	if f.findLegacyPlaintextFn == nil {
		return nil, errUnexpected
	}
	return f.findLegacyPlaintextFn(ctx)
}

func (f *fakeCredentialRepo) Delete(ctx context.Context, sellerID string, marketplace domain.Marketplace) error {
	if f.deleteFn == nil {
		return errUnexpected
	}
	return f.deleteFn(ctx, sellerID, marketplace)
}

type fakeBonusRepo struct {
	saveFn      func(context.Context, *domain.BonusTransaction) error
	aggregateFn func(context.Context, string, time.Time, time.Time) (float64, float64, error)
}

func (f *fakeBonusRepo) Save(ctx context.Context, tx *domain.BonusTransaction) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, tx)
}

func (f *fakeBonusRepo) Aggregate(ctx context.Context, sellerID string, from, to time.Time) (float64, float64, error) {
	if f.aggregateFn == nil {
		return 0, 0, errUnexpected
	}
	return f.aggregateFn(ctx, sellerID, from, to)
}

// recordingSyncJobRepo keeps every saved job for assertions
type recordingSyncJobRepo struct {
	mu   sync.Mutex
	jobs []*domain.SyncJob
}

func (r *recordingSyncJobRepo) Save(ctx context.Context, job *domain.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingSyncJobRepo) FindByID(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	return nil, errUnexpected
}

func (r *recordingSyncJobRepo) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.SyncJob, error) {
	return nil, errUnexpected
}

func (r *recordingSyncJobRepo) last() *domain.SyncJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.jobs) == 0 {
		return nil
	}
	return r.jobs[len(r.jobs)-1]
}

// recordingOutbox keeps appended events for assertions
type recordingOutbox struct {
	mu     sync.Mutex
	events []*outbox.Event
}

func (r *recordingOutbox) Save(ctx context.Context, event *outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) SaveAll(ctx context.Context, events []*outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingOutbox) FindUnpublished(ctx context.Context, limit int) ([]*outbox.Event, error) {
	return nil, nil
}

func (r *recordingOutbox) MarkPublished(ctx context.Context, eventID string) error {
	return nil
}

func (r *recordingOutbox) IncrementRetry(ctx context.Context, eventID, errorMsg string) error {
	return nil
}

func (r *recordingOutbox) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, event := range r.events {
		types[i] = event.EventType
	}
	return types
}

// plainCipher is a reversible stand-in for the real cipher
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext []byte) (string, error) {
	return "enc:" + string(plaintext), nil
}

func (plainCipher) Decrypt(blob string) ([]byte, error) {
	if len(blob) < 4 || blob[:4] != "enc:" {
		return nil, errors.New("malformed blob")
	}
	return []byte(blob[4:]), nil
}

// stubAdapter satisfies the adapter interface with overridable behavior
type stubAdapter struct {
	name             domain.Marketplace
	maxBatch         int
	getOrdersFn      func(context.Context, time.Time, time.Time) ([]domain.ExternalOrder, error)
	updateStockFn    func(context.Context, string, []domain.StockItem) (*domain.StockPushResult, error)
	updatePricesFn   func(context.Context, []domain.PriceItem) (*domain.PricePushResult, error)
	getStocksFn      func(context.Context, string, []string) ([]domain.RemoteStockLevel, error)
	createProductFn  func(context.Context, domain.ProductData) error
	characteristicFn func(context.Context, string) ([]domain.Characteristic, error)
	searchFn         func(context.Context, string) ([]domain.Category, error)
}

func (a *stubAdapter) Name() domain.Marketplace { return a.name }

func (a *stubAdapter) GetProducts(ctx context.Context) ([]domain.ProductListing, error) {
	return nil, errUnexpected
}

func (a *stubAdapter) GetOrders(ctx context.Context, from, to time.Time) ([]domain.ExternalOrder, error) {
	if a.getOrdersFn == nil {
		return nil, errUnexpected
	}
	return a.getOrdersFn(ctx, from, to)
}

func (a *stubAdapter) CreateProduct(ctx context.Context, data domain.ProductData) error {
	if a.createProductFn == nil {
		return errUnexpected
	}
	return a.createProductFn(ctx, data)
}

func (a *stubAdapter) UpdateStock(ctx context.Context, marketplaceWarehouseID string, items []domain.StockItem) (*domain.StockPushResult, error) {
	if a.updateStockFn == nil {
		return nil, errUnexpected
	}
	return a.updateStockFn(ctx, marketplaceWarehouseID, items)
}

func (a *stubAdapter) UpdatePrices(ctx context.Context, items []domain.PriceItem) (*domain.PricePushResult, error) {
	if a.updatePricesFn == nil {
		return nil, errUnexpected
	}
	return a.updatePricesFn(ctx, items)
}

func (a *stubAdapter) GetStocks(ctx context.Context, marketplaceWarehouseID string, skus []string) ([]domain.RemoteStockLevel, error) {
	if a.getStocksFn == nil {
		return nil, errUnexpected
	}
	return a.getStocksFn(ctx, marketplaceWarehouseID, skus)
}

func (a *stubAdapter) GetCategories(ctx context.Context) ([]domain.Category, error) {
	return nil, errUnexpected
}

func (a *stubAdapter) SearchCategories(ctx context.Context, query string) ([]domain.Category, error) {
	if a.searchFn == nil {
		return nil, errUnexpected
	}
	return a.searchFn(ctx, query)
}

func (a *stubAdapter) GetCategoryCharacteristics(ctx context.Context, categoryID string) ([]domain.Characteristic, error) {
	if a.characteristicFn == nil {
		return nil, errUnexpected
	}
	return a.characteristicFn(ctx, categoryID)
}

func (a *stubAdapter) MaxStockBatch() int {
	if a.maxBatch == 0 {
		return 100
	}
	return a.maxBatch
}

// testEnv wires a sync service over fakes. Individual tests override the
// fake functions they need.
type testEnv struct {
	products    *fakeProductRepo
	orders      *memoryOrderRepo
	stocks      *fakeStockRepo
	warehouses  *fakeWarehouseRepo
	mappings    *fakeMappingRepo
	bonuses     *fakeBonusRepo
	syncJobs    *recordingSyncJobRepo
	credentials *fakeCredentialRepo
	outbox      *recordingOutbox
	adapter     *stubAdapter
	factory     *domain.Factory
	creds       *CredentialService
	sync        *SyncService
}

func newTestEnv(marketplace domain.Marketplace) *testEnv {
	env := &testEnv{
		products:    &fakeProductRepo{},
		orders:      newMemoryOrderRepo(),
		stocks:      &fakeStockRepo{},
		warehouses:  &fakeWarehouseRepo{},
		mappings:    &fakeMappingRepo{},
		bonuses:     &fakeBonusRepo{},
		syncJobs:    &recordingSyncJobRepo{},
		credentials: &fakeCredentialRepo{},
		outbox:      &recordingOutbox{},
		adapter:     &stubAdapter{name: marketplace},
	}

	env.credentials.findFn = func(ctx context.Context, sellerID string, m domain.Marketplace) (*domain.APICredential, error) {
		return domain.NewAPICredential(sellerID, m, `enc:{"clientId":"client-1","apiKey":"key-1"}`), nil
	}

	env.factory = domain.NewFactory()
	env.factory.Register(marketplace, func(creds domain.Credentials) domain.MarketplaceAdapter {
		return env.adapter
	})

	logger := newTestLogger()
	env.creds = NewCredentialService(env.credentials, plainCipher{}, env.factory, env.outbox, logger)
	env.sync = NewSyncService(
		env.products, env.orders, env.stocks, env.warehouses, env.mappings,
		env.bonuses, env.syncJobs, env.creds, env.outbox, logger, metrics.New("test"))
	return env
}

func linkedWarehouse(sellerID, warehouseID string, marketplace domain.Marketplace, marketplaceWarehouseID string) *domain.Warehouse {
	warehouse := domain.NewWarehouse(sellerID, warehouseID, "Main")
	warehouse.AddLink(marketplace, marketplaceWarehouseID)
	return warehouse
}
