package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

// Collection names
const (
	productsCollection     = "products"
	ordersCollection       = "orders"
	stocksCollection       = "stocks"
	warehousesCollection   = "warehouses"
	categoriesCollection   = "category_mappings"
	credentialsCollection  = "credentials"
	bonusCollection        = "bonus_transactions"
	syncJobsCollection     = "sync_jobs"
)

// ProductRepository implements domain.ProductRepository for MongoDB
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a product repository
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(productsCollection)}
}

func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = product.UpdatedAt
	}

	filter := bson.M{"sellerId": product.SellerID, "sku": product.SKU}
	update := bson.M{
		"$set": bson.M{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"listings":    product.Listings,
			"attributes":  product.Attributes,
			"deletedAt":   product.DeletedAt,
			"updatedAt":   product.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"sellerId":  product.SellerID,
			"sku":       product.SKU,
			"createdAt": product.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindBySKU(ctx context.Context, sellerID, sku string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"sellerId": sellerID, "sku": sku}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("finding product: %w", err)
	}
	return &product, nil
}

func (r *ProductRepository) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.Product, error) {
	pagination = pagination.Normalize()

	filter := bson.M{"sellerId": sellerID, "deletedAt": nil}
	opts := options.Find().
		SetSort(bson.D{{Key: "sku", Value: 1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) SoftDelete(ctx context.Context, sellerID, sku string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"sellerId": sellerID, "sku": sku}, update)
	if err != nil {
		return fmt.Errorf("soft deleting product: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) HardDelete(ctx context.Context, sellerID, sku string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"sellerId": sellerID, "sku": sku})
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// OrderRepository implements domain.OrderRepository for MongoDB
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(ordersCollection)}
}

// InsertIfAbsent relies on the unique (sellerId, externalOrderId) index;
// a duplicate key outcome is reported as inserted=false, not an error.
func (r *OrderRepository) InsertIfAbsent(ctx context.Context, order *domain.Order) (bool, error) {
	_, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting order: %w", err)
	}
	return true, nil
}

func (r *OrderRepository) FindByExternalID(ctx context.Context, sellerID, externalOrderID string) (*domain.Order, error) {
	var order domain.Order
	filter := bson.M{"sellerId": sellerID, "externalOrderId": externalOrderID}
	if err := r.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("finding order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.Order, error) {
	pagination = pagination.Normalize()

	opts := options.Find().
		SetSort(bson.D{{Key: "externalCreatedAt", Value: -1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, bson.M{"sellerId": sellerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus performs a guarded transition: the write matches only when
// the stored status equals the expected one.
func (r *OrderRepository) UpdateStatus(ctx context.Context, sellerID, externalOrderID string, from, to domain.OrderStatus) error {
	filter := bson.M{
		"sellerId":        sellerID,
		"externalOrderId": externalOrderID,
		"status":          from,
	}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) CountBySeller(ctx context.Context, sellerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"sellerId": sellerID})
	if err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return count, nil
}

// StockRepository implements domain.StockRepository for MongoDB
type StockRepository struct {
	collection *mongo.Collection
}

// NewStockRepository creates a stock repository
func NewStockRepository(db *mongo.Database) *StockRepository {
	return &StockRepository{collection: db.Collection(stocksCollection)}
}

func (r *StockRepository) Save(ctx context.Context, record *domain.StockRecord) error {
	record.UpdatedAt = time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	filter := bson.M{"productId": record.ProductID, "warehouseId": record.WarehouseID}
	update := bson.M{
		"$set": bson.M{
			"sellerId":     record.SellerID,
			"sku":          record.SKU,
			"available":    record.Available,
			"marketplaces": record.Marketplaces,
			"updatedAt":    record.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"productId":   record.ProductID,
			"warehouseId": record.WarehouseID,
			"createdAt":   record.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving stock record: %w", err)
	}
	return nil
}

func (r *StockRepository) FindByWarehouse(ctx context.Context, sellerID, warehouseID string) ([]*domain.StockRecord, error) {
	filter := bson.M{"sellerId": sellerID, "warehouseId": warehouseID}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sku", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding stock records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.StockRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding stock records: %w", err)
	}
	return records, nil
}

func (r *StockRepository) MarkSynced(ctx context.Context, sellerID, sku, warehouseID string, marketplace domain.Marketplace, quantity int) error {
	filter := bson.M{"sellerId": sellerID, "sku": sku, "warehouseId": warehouseID}
	field := "marketplaces." + string(marketplace)
	update := bson.M{
		"$set": bson.M{
			field: domain.MarketplaceStockState{
				SyncedQuantity: quantity,
				LastSyncedAt:   time.Now().UTC(),
			},
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("marking stock synced: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *StockRepository) SetAvailable(ctx context.Context, sellerID, sku, warehouseID string, quantity int) error {
	filter := bson.M{"sellerId": sellerID, "sku": sku, "warehouseId": warehouseID}
	update := bson.M{"$set": bson.M{"available": quantity, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("setting available stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// WarehouseRepository implements domain.WarehouseRepository for MongoDB
type WarehouseRepository struct {
	collection *mongo.Collection
}

// NewWarehouseRepository creates a warehouse repository
func NewWarehouseRepository(db *mongo.Database) *WarehouseRepository {
	return &WarehouseRepository{collection: db.Collection(warehousesCollection)}
}

func (r *WarehouseRepository) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	warehouse.UpdatedAt = time.Now().UTC()
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = warehouse.UpdatedAt
	}

	filter := bson.M{"sellerId": warehouse.SellerID, "warehouseId": warehouse.WarehouseID}
	update := bson.M{
		"$set": bson.M{
			"name":      warehouse.Name,
			"address":   warehouse.Address,
			"links":     warehouse.Links,
			"updatedAt": warehouse.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"sellerId":    warehouse.SellerID,
			"warehouseId": warehouse.WarehouseID,
			"createdAt":   warehouse.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving warehouse: %w", err)
	}
	return nil
}

func (r *WarehouseRepository) FindByID(ctx context.Context, sellerID, warehouseID string) (*domain.Warehouse, error) {
	var warehouse domain.Warehouse
	filter := bson.M{"sellerId": sellerID, "warehouseId": warehouseID}
	if err := r.collection.FindOne(ctx, filter).Decode(&warehouse); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("finding warehouse: %w", err)
	}
	return &warehouse, nil
}

func (r *WarehouseRepository) FindBySeller(ctx context.Context, sellerID string) ([]*domain.Warehouse, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sellerId": sellerID})
	if err != nil {
		return nil, fmt.Errorf("finding warehouses: %w", err)
	}
	defer cursor.Close(ctx)

	var warehouses []*domain.Warehouse
	if err := cursor.All(ctx, &warehouses); err != nil {
		return nil, fmt.Errorf("decoding warehouses: %w", err)
	}
	return warehouses, nil
}

func (r *WarehouseRepository) Delete(ctx context.Context, sellerID, warehouseID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"sellerId": sellerID, "warehouseId": warehouseID})
	if err != nil {
		return fmt.Errorf("deleting warehouse: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrWarehouseNotFound
	}
	return nil
}

// CategoryMappingRepository implements domain.CategoryMappingRepository
type CategoryMappingRepository struct {
	collection *mongo.Collection
}

// NewCategoryMappingRepository creates a category mapping repository
func NewCategoryMappingRepository(db *mongo.Database) *CategoryMappingRepository {
	return &CategoryMappingRepository{collection: db.Collection(categoriesCollection)}
}

func (r *CategoryMappingRepository) Save(ctx context.Context, mapping *domain.CategoryMapping) error {
	mapping.UpdatedAt = time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = mapping.UpdatedAt
	}

	filter := bson.M{"sellerId": mapping.SellerID, "name": mapping.Name}
	update := bson.M{
		"$set": bson.M{
			"attributes":   mapping.Attributes,
			"marketplaces": mapping.Marketplaces,
			"updatedAt":    mapping.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"sellerId":  mapping.SellerID,
			"name":      mapping.Name,
			"createdAt": mapping.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving category mapping: %w", err)
	}
	return nil
}

func (r *CategoryMappingRepository) FindByName(ctx context.Context, sellerID, name string) (*domain.CategoryMapping, error) {
	var mapping domain.CategoryMapping
	filter := bson.M{"sellerId": sellerID, "name": name}
	if err := r.collection.FindOne(ctx, filter).Decode(&mapping); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrMappingNotFound
		}
		return nil, fmt.Errorf("finding category mapping: %w", err)
	}
	return &mapping, nil
}

func (r *CategoryMappingRepository) FindBySeller(ctx context.Context, sellerID string) ([]*domain.CategoryMapping, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sellerId": sellerID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding category mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var mappings []*domain.CategoryMapping
	if err := cursor.All(ctx, &mappings); err != nil {
		return nil, fmt.Errorf("decoding category mappings: %w", err)
	}
	return mappings, nil
}

func (r *CategoryMappingRepository) Delete(ctx context.Context, sellerID, name string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"sellerId": sellerID, "name": name})
	if err != nil {
		return fmt.Errorf("deleting category mapping: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrMappingNotFound
	}
	return nil
}

// CredentialRepository implements domain.CredentialRepository for MongoDB
type CredentialRepository struct {
	collection *mongo.Collection
}

// NewCredentialRepository creates a credential repository
func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{collection: db.Collection(credentialsCollection)}
}

func (r *CredentialRepository) Save(ctx context.Context, credential *domain.APICredential) error {
	credential.UpdatedAt = time.Now().UTC()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = credential.UpdatedAt
	}

	filter := bson.M{"sellerId": credential.SellerID, "marketplace": credential.Marketplace}
	update := bson.M{
		"$set": bson.M{
			"encryptedBlob": credential.EncryptedBlob,
			"updatedAt":     credential.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"sellerId":    credential.SellerID,
			"marketplace": credential.Marketplace,
			"createdAt":   credential.CreatedAt,
		},
		// Legacy plaintext fields are dropped once an encrypted blob is written
		"$unset": bson.M{"clientId": "", "apiKey": "", "campaignId": ""},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Find(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
	var credential domain.APICredential
	filter := bson.M{"sellerId": sellerID, "marketplace": marketplace}
	if err := r.collection.FindOne(ctx, filter).Decode(&credential); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return &credential, nil
}

func (r *CredentialRepository) FindLegacyPlaintext(ctx context.Context) ([]*domain.APICredential, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"encryptedBlob": bson.M{"$exists": false}},
			{"encryptedBlob": ""},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding legacy credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var credentials []*domain.APICredential
	if err := cursor.All(ctx, &credentials); err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}
	return credentials, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, sellerID string, marketplace domain.Marketplace) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"sellerId": sellerID, "marketplace": marketplace})
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

// BonusTransactionRepository implements domain.BonusTransactionRepository
type BonusTransactionRepository struct {
	collection *mongo.Collection
}

// NewBonusTransactionRepository creates a bonus transaction repository
func NewBonusTransactionRepository(db *mongo.Database) *BonusTransactionRepository {
	return &BonusTransactionRepository{collection: db.Collection(bonusCollection)}
}

func (r *BonusTransactionRepository) Save(ctx context.Context, tx *domain.BonusTransaction) error {
	if tx.RecordedAt.IsZero() {
		tx.RecordedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("saving bonus transaction: %w", err)
	}
	return nil
}

// Aggregate sums accrued and used amounts over [from, to] with a single
// aggregation pipeline grouped by transaction type.
func (r *BonusTransactionRepository) Aggregate(ctx context.Context, sellerID string, from, to time.Time) (float64, float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"sellerId":   sellerID,
			"occurredAt": bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregating bonus transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Type  domain.BonusTransactionType `bson:"_id"`
		Total float64                     `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, fmt.Errorf("decoding bonus aggregation: %w", err)
	}

	var accrued, used float64
	for _, row := range rows {
		switch row.Type {
		case domain.BonusAccrued:
			accrued = row.Total
		case domain.BonusUsed:
			used = row.Total
		}
	}
	return accrued, used, nil
}

// SyncJobRepository implements domain.SyncJobRepository for MongoDB
type SyncJobRepository struct {
	collection *mongo.Collection
}

// NewSyncJobRepository creates a sync job repository
func NewSyncJobRepository(db *mongo.Database) *SyncJobRepository {
	return &SyncJobRepository{collection: db.Collection(syncJobsCollection)}
}

func (r *SyncJobRepository) Save(ctx context.Context, job *domain.SyncJob) error {
	filter := bson.M{"jobId": job.JobID}
	update := bson.M{
		"$set": bson.M{
			"sellerId":     job.SellerID,
			"marketplace":  job.Marketplace,
			"type":         job.Type,
			"status":       job.Status,
			"direction":    job.Direction,
			"totalItems":   job.TotalItems,
			"syncedItems":  job.SyncedItems,
			"skippedItems": job.SkippedItems,
			"failedItems":  job.FailedItems,
			"errors":       job.Errors,
			"startedAt":    job.StartedAt,
			"completedAt":  job.CompletedAt,
		},
		"$setOnInsert": bson.M{"jobId": job.JobID},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving sync job: %w", err)
	}
	return nil
}

func (r *SyncJobRepository) FindByID(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := r.collection.FindOne(ctx, bson.M{"jobId": jobID}).Decode(&job); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("sync job not found: %s", jobID)
		}
		return nil, fmt.Errorf("finding sync job: %w", err)
	}
	return &job, nil
}

func (r *SyncJobRepository) FindBySeller(ctx context.Context, sellerID string, pagination domain.Pagination) ([]*domain.SyncJob, error) {
	pagination = pagination.Normalize()

	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, bson.M{"sellerId": sellerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding sync jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*domain.SyncJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decoding sync jobs: %w", err)
	}
	return jobs, nil
}
