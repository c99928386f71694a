package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

func TestRepositoryConstructors(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("constructors", func(mt *mtest.T) {
		require.NotNil(t, NewProductRepository(mt.DB))
		require.NotNil(t, NewOrderRepository(mt.DB))
		require.NotNil(t, NewStockRepository(mt.DB))
		require.NotNil(t, NewWarehouseRepository(mt.DB))
		require.NotNil(t, NewCategoryMappingRepository(mt.DB))
		require.NotNil(t, NewCredentialRepository(mt.DB))
		require.NotNil(t, NewBonusTransactionRepository(mt.DB))
		require.NotNil(t, NewSyncJobRepository(mt.DB))
	})
}

func TestOrderRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert if absent", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		ctx := context.Background()

		order := domain.NewOrder("seller-1", domain.MarketplaceOzon, domain.ExternalOrder{
			ExternalOrderID: "TEST-ORDER-123456",
			CreatedAt:       time.Now(),
		})

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		inserted, err := repo.InsertIfAbsent(ctx, order)
		require.NoError(t, err)
		assert.True(t, inserted)

		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		inserted, err = repo.InsertIfAbsent(ctx, order)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	mt.Run("find and guarded status update", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		ctx := context.Background()
		ns := mt.DB.Name() + ".orders"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "sellerId", Value: "seller-1"},
			{Key: "externalOrderId", Value: "TEST-ORDER-123456"},
			{Key: "status", Value: string(domain.OrderStatusImported)},
		}))
		found, err := repo.FindByExternalID(ctx, "seller-1", "TEST-ORDER-123456")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusImported, found.Status)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err = repo.FindByExternalID(ctx, "seller-1", "missing")
		require.ErrorIs(t, err, domain.ErrOrderNotFound)

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		err = repo.UpdateStatus(ctx, "seller-1", "TEST-ORDER-123456", domain.OrderStatusImported, domain.OrderStatusProcessing)
		require.NoError(t, err)

		// guard miss: no document matched the expected status
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err = repo.UpdateStatus(ctx, "seller-1", "TEST-ORDER-123456", domain.OrderStatusImported, domain.OrderStatusProcessing)
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestProductRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save find soft delete", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		ctx := context.Background()
		ns := mt.DB.Name() + ".products"

		product := domain.NewProduct("seller-1", "SKU-1", "Widget", 199.0)

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		require.NoError(t, repo.Save(ctx, product))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "sellerId", Value: "seller-1"},
			{Key: "sku", Value: "SKU-1"},
			{Key: "name", Value: "Widget"},
		}))
		found, err := repo.FindBySKU(ctx, "seller-1", "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "Widget", found.Name)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err = repo.FindBySKU(ctx, "seller-1", "missing")
		require.ErrorIs(t, err, domain.ErrProductNotFound)

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err = repo.SoftDelete(ctx, "seller-1", "missing")
		require.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestStockRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("mark synced guard", func(mt *mtest.T) {
		repo := NewStockRepository(mt.DB)
		ctx := context.Background()

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		err := repo.MarkSynced(ctx, "seller-1", "SKU-1", "wh-1", domain.MarketplaceOzon, 10)
		require.NoError(t, err)

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err = repo.MarkSynced(ctx, "seller-1", "missing", "wh-1", domain.MarketplaceOzon, 10)
		require.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestCredentialRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find decodes legacy fields", func(mt *mtest.T) {
		repo := NewCredentialRepository(mt.DB)
		ctx := context.Background()
		ns := mt.DB.Name() + ".credentials"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "sellerId", Value: "seller-1"},
			{Key: "marketplace", Value: string(domain.MarketplaceOzon)},
			{Key: "clientId", Value: "legacy-client"},
			{Key: "apiKey", Value: "legacy-key"},
		}))
		cred, err := repo.Find(ctx, "seller-1", domain.MarketplaceOzon)
		require.NoError(t, err)
		assert.True(t, cred.IsLegacyPlaintext())
		assert.Equal(t, "legacy-client", cred.LegacyClientID)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err = repo.Find(ctx, "seller-1", domain.MarketplaceWB)
		require.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})
}

func TestBonusTransactionRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("aggregate sums by type", func(mt *mtest.T) {
		repo := NewBonusTransactionRepository(mt.DB)
		ctx := context.Background()
		ns := mt.DB.Name() + ".bonus_transactions"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "accrued"}, {Key: "total", Value: 1000.0}},
			bson.D{{Key: "_id", Value: "used"}, {Key: "total", Value: 250.0}},
		))
		accrued, used, err := repo.Aggregate(ctx, "seller-1", time.Now().Add(-24*time.Hour), time.Now())
		require.NoError(t, err)
		assert.InDelta(t, 1000.0, accrued, 0.001)
		assert.InDelta(t, 250.0, used, 0.001)
	})
}
