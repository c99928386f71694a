package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

func newWBTestAdapter(server *httptest.Server) *WildberriesAdapter {
	a := &WildberriesAdapter{
		creds:   domain.Credentials{APIKey: "wb-token"},
		baseURL: server.URL,
	}
	a.rt = newTestTransport(domain.MarketplaceWB, server, a.authorize)
	return a
}

func TestWildberriesName(t *testing.T) {
	adapter := NewWildberriesAdapter(domain.Credentials{})
	require.Equal(t, domain.MarketplaceWB, adapter.Name())
	require.Equal(t, 1000, adapter.MaxStockBatch())
}

func TestWildberriesGetProducts(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/v2/get/cards/list", r.URL.Path)
		require.Equal(t, "wb-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"cards": []map[string]any{
				{
					"nmID":       123,
					"vendorCode": "SKU-1",
					"title":      "Jacket",
					"subjectID":  105,
					"characteristics": []map[string]any{
						{"name": "Color", "value": "black"},
					},
				},
			},
			"cursor": map[string]any{"total": 1},
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	listings, err := adapter.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "SKU-1", listings[0].SKU)
	assert.Equal(t, "105", listings[0].CategoryID)
	assert.Equal(t, "black", listings[0].Characteristics["Color"])
}

func TestWildberriesGetOrders(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/orders", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("dateFrom"))
		require.NotEmpty(t, r.URL.Query().Get("dateTo"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{
				{
					"id":        987654,
					"createdAt": "2026-08-02T12:30:00Z",
					"article":   "SKU-9",
					"price":     129900,
					"address":   map[string]any{"fullAddress": "Moscow, Tverskaya 1"},
				},
			},
			"next": 0,
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	orders, err := adapter.GetOrders(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "987654", orders[0].ExternalOrderID)
	assert.InDelta(t, 1299.0, orders[0].Totals.Subtotal, 0.001)
	require.Len(t, orders[0].LineItems, 1)
	assert.Equal(t, "SKU-9", orders[0].LineItems[0].SKU)
}

func TestWildberriesUpdateStockPartialFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v3/stocks/321", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{
				{"sku": "SKU-2", "message": "sku not found in warehouse"},
			},
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	result, err := adapter.UpdateStock(context.Background(), "321", []domain.StockItem{
		{SKU: "SKU-1", Quantity: 3},
		{SKU: "SKU-2", Quantity: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SKU-2", result.Errors[0].SKU)
}

func TestWildberriesUpdateStockRequiresWarehouse(t *testing.T) {
	adapter := NewWildberriesAdapter(domain.Credentials{})
	_, err := adapter.UpdateStock(context.Background(), "", []domain.StockItem{{SKU: "S", Quantity: 1}})
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindValidation))
}

func TestWildberriesCreateProductRequiresSubject(t *testing.T) {
	adapter := NewWildberriesAdapter(domain.Credentials{})
	err := adapter.CreateProduct(context.Background(), domain.ProductData{SKU: "SKU-1"})
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindValidation))
}

func TestWildberriesSearchCategories(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/v2/object/all", r.URL.Path)
		require.Equal(t, "jacket", r.URL.Query().Get("name"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"subjectID": 105, "subjectName": "Jackets", "parentID": 1, "parentName": "Clothes"},
			},
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	categories, err := adapter.SearchCategories(context.Background(), "jacket")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "105", categories[0].ID)
	assert.Equal(t, "1", categories[0].ParentID)
}

func TestWildberriesGetCategoryCharacteristics(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/v2/object/charcs/105", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"charcID": 50, "name": "Состав", "required": true, "unitName": ""},
			},
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	chars, err := adapter.GetCategoryCharacteristics(context.Background(), "105")
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "50", chars[0].ID)
	assert.True(t, chars[0].Required)
}

func TestWildberriesGetStocks(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v3/stocks/321", r.URL.Path)

		var req wbStocksReadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"SKU-1"}, req.Skus)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"stocks": []map[string]any{{"sku": "SKU-1", "amount": 12}},
		})
	}))
	defer server.Close()

	adapter := newWBTestAdapter(server)
	levels, err := adapter.GetStocks(context.Background(), "321", []string{"SKU-1"})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 12, levels[0].Quantity)
}
