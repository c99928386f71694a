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

func newYandexTestAdapter(server *httptest.Server) *YandexAdapter {
	a := &YandexAdapter{
		creds:   domain.Credentials{APIKey: "ya-token", CampaignID: "555"},
		baseURL: server.URL,
	}
	a.rt = newTestTransport(domain.MarketplaceYandex, server, a.authorize)
	return a
}

func TestYandexName(t *testing.T) {
	adapter := NewYandexAdapter(domain.Credentials{})
	require.Equal(t, domain.MarketplaceYandex, adapter.Name())
	require.Equal(t, 2000, adapter.MaxStockBatch())
}

func TestYandexRequiresCampaignID(t *testing.T) {
	adapter := NewYandexAdapter(domain.Credentials{APIKey: "token"})

	_, err := adapter.GetProducts(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindAuth))

	_, err = adapter.GetOrders(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindAuth))
}

func TestYandexGetProductsPaginates(t *testing.T) {
	page := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/campaigns/555/offers", r.URL.Path)
		require.Equal(t, "Bearer ya-token", r.Header.Get("Authorization"))

		page++
		if page == 1 {
			require.Empty(t, r.URL.Query().Get("page_token"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"offers": []map[string]any{{"offerId": "SKU-1", "name": "Lamp", "marketCategoryId": 90}},
					"paging": map[string]any{"nextPageToken": "tok-2"},
				},
			})
			return
		}

		require.Equal(t, "tok-2", r.URL.Query().Get("page_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"offers": []map[string]any{{"offerId": "SKU-2", "name": "Desk"}},
				"paging": map[string]any{},
			},
		})
	}))
	defer server.Close()

	adapter := newYandexTestAdapter(server)
	listings, err := adapter.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "90", listings[0].CategoryID)
	assert.Equal(t, "SKU-2", listings[1].SKU)
	assert.Equal(t, 2, page)
}

func TestYandexGetOrders(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/campaigns/555/orders", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{
				{
					"id":           445566,
					"status":       "PROCESSING",
					"creationDate": "02-08-2026 15:04:05",
					"itemsTotal":   2598.0,
					"buyer":        map[string]any{"firstName": "Anna", "lastName": "Petrova"},
					"items": []map[string]any{
						{"offerId": "SKU-7", "offerName": "Lamp", "count": 2, "price": 1299.0},
					},
				},
			},
			"pager": map[string]any{"pagesCount": 1, "currentPage": 1},
		})
	}))
	defer server.Close()

	adapter := newYandexTestAdapter(server)
	orders, err := adapter.GetOrders(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "445566", orders[0].ExternalOrderID)
	assert.Equal(t, "Anna Petrova", orders[0].Customer.Name)
	assert.InDelta(t, 2598.0, orders[0].Totals.Subtotal, 0.001)
}

func TestYandexUpdateStockPartialFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/campaigns/555/offers/stocks", r.URL.Path)

		var req yandexStocksUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Skus, 2)
		require.Equal(t, int64(42), req.Skus[0].WarehouseID)
		require.Equal(t, "FIT", req.Skus[0].Items[0].Type)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"errors": []map[string]any{
				{"sku": "SKU-2", "message": "unknown sku"},
			},
		})
	}))
	defer server.Close()

	adapter := newYandexTestAdapter(server)
	result, err := adapter.UpdateStock(context.Background(), "42", []domain.StockItem{
		{SKU: "SKU-1", Quantity: 10},
		{SKU: "SKU-2", Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SKU-2", result.Errors[0].SKU)
}

func TestYandexGetStocksFiltersWarehouse(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"warehouses": []map[string]any{
					{
						"id": 42,
						"offers": []map[string]any{
							{"offerId": "SKU-1", "stocks": []map[string]any{{"type": "AVAILABLE", "count": 8}}},
						},
					},
					{
						"id": 43,
						"offers": []map[string]any{
							{"offerId": "SKU-1", "stocks": []map[string]any{{"type": "AVAILABLE", "count": 99}}},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	adapter := newYandexTestAdapter(server)
	levels, err := adapter.GetStocks(context.Background(), "42", []string{"SKU-1"})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 8, levels[0].Quantity)
}

func TestYandexGetCategoriesAndSearch(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/categories/tree", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"id":   0,
				"name": "Все товары",
				"children": []map[string]any{
					{"id": 90, "name": "Освещение", "children": []map[string]any{
						{"id": 91, "name": "Настольные лампы"},
					}},
				},
			},
		})
	}))
	defer server.Close()

	adapter := newYandexTestAdapter(server)

	tree, err := adapter.GetCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "90", tree[0].ID)

	matches, err := adapter.SearchCategories(context.Background(), "лампы")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "91", matches[0].ID)
}

func TestYandexCreateProductRequiresCategory(t *testing.T) {
	adapter := NewYandexAdapter(domain.Credentials{APIKey: "t", CampaignID: "555"})
	err := adapter.CreateProduct(context.Background(), domain.ProductData{SKU: "SKU-1"})
	require.Error(t, err)
	assert.True(t, domain.IsErrorKind(err, domain.ErrKindValidation))
}
