package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionIndexes maps collection names to their index models
var collectionIndexes = map[string][]mongo.IndexModel{
	"products": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_seller_sku"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "deletedAt", Value: 1}},
			Options: options.Index().SetName("seller_deleted"),
		},
	},
	"orders": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "externalOrderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_seller_external_order"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("seller_status_created"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "marketplace", Value: 1}, {Key: "orderedAt", Value: -1}},
			Options: options.Index().SetName("seller_marketplace_ordered"),
		},
	},
	"stocks": {
		{
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "warehouseId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_product_warehouse"),
		},
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}},
			Options: options.Index().SetName("seller"),
		},
	},
	"warehouses": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_seller_name"),
		},
	},
	"category_mappings": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_seller_category"),
		},
	},
	"credentials": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "marketplace", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_seller_marketplace"),
		},
	},
	"bonus_transactions": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "occurredAt", Value: -1}},
			Options: options.Index().SetName("seller_occurred"),
		},
	},
	"sync_jobs": {
		{
			Keys:    bson.D{{Key: "sellerId", Value: 1}, {Key: "startedAt", Value: -1}},
			Options: options.Index().SetName("seller_started"),
		},
	},
}

// EnsureIndexes creates all required indexes on the database
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, indexes := range collectionIndexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", collection, err)
		}
	}
	return nil
}
