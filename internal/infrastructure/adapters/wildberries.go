package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

var wbTracer = otel.Tracer("marketplace-hub/adapters/wildberries")

const (
	wbBaseURL       = "https://suppliers-api.wildberries.ru"
	wbCardPageLimit = 100
	wbOrderPageMax  = 1000
	wbStockBatchMax = 1000
)

// WildberriesAdapter implements the MarketplaceAdapter interface for the
// Wildberries supplier API
type WildberriesAdapter struct {
	creds   domain.Credentials
	baseURL string
	rt      *transport
}

// NewWildberriesAdapter creates a credential-bound Wildberries adapter
func NewWildberriesAdapter(creds domain.Credentials) *WildberriesAdapter {
	a := &WildberriesAdapter{
		creds:   creds,
		baseURL: wbBaseURL,
	}
	a.rt = newTransport(domain.MarketplaceWB, a.authorize)
	return a
}

func (a *WildberriesAdapter) authorize(req *http.Request) {
	req.Header.Set("Authorization", a.creds.APIKey)
}

// Name returns the marketplace identifier
func (a *WildberriesAdapter) Name() domain.Marketplace {
	return domain.MarketplaceWB
}

// MaxStockBatch returns the Wildberries stock push batch limit
func (a *WildberriesAdapter) MaxStockBatch() int {
	return wbStockBatchMax
}

type wbCardsListRequest struct {
	Settings struct {
		Cursor struct {
			Limit     int    `json:"limit"`
			UpdatedAt string `json:"updatedAt,omitempty"`
			NmID      int64  `json:"nmID,omitempty"`
		} `json:"cursor"`
		Filter struct {
			WithPhoto int `json:"withPhoto"`
		} `json:"filter"`
	} `json:"settings"`
}

type wbCard struct {
	NmID            int64  `json:"nmID"`
	VendorCode      string `json:"vendorCode"`
	Title           string `json:"title"`
	SubjectID       int64  `json:"subjectID"`
	Characteristics []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"characteristics"`
}

type wbCardsListResponse struct {
	Cards  []wbCard `json:"cards"`
	Cursor struct {
		UpdatedAt string `json:"updatedAt"`
		NmID      int64  `json:"nmID"`
		Total     int    `json:"total"`
	} `json:"cursor"`
}

// GetProducts pulls all product cards using cursor pagination
func (a *WildberriesAdapter) GetProducts(ctx context.Context) ([]domain.ProductListing, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.GetProducts")
	defer span.End()

	var listings []domain.ProductListing
	var cursorUpdatedAt string
	var cursorNmID int64

	for {
		req := wbCardsListRequest{}
		req.Settings.Cursor.Limit = wbCardPageLimit
		req.Settings.Cursor.UpdatedAt = cursorUpdatedAt
		req.Settings.Cursor.NmID = cursorNmID
		req.Settings.Filter.WithPhoto = -1

		var resp wbCardsListResponse
		if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/content/v2/get/cards/list", nil, req, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for _, card := range resp.Cards {
			chars := make(map[string]string, len(card.Characteristics))
			for _, c := range card.Characteristics {
				chars[c.Name] = fmt.Sprintf("%v", c.Value)
			}
			listings = append(listings, domain.ProductListing{
				SKU:             card.VendorCode,
				Name:            card.Title,
				CategoryID:      strconv.FormatInt(card.SubjectID, 10),
				Characteristics: chars,
				Raw: map[string]interface{}{
					"nmId": card.NmID,
				},
			})
		}

		if len(resp.Cards) < wbCardPageLimit {
			break
		}
		cursorUpdatedAt = resp.Cursor.UpdatedAt
		cursorNmID = resp.Cursor.NmID
	}

	span.SetAttributes(attribute.Int("products.fetched", len(listings)))
	return listings, nil
}

type wbOrder struct {
	ID        int64    `json:"id"`
	CreatedAt string   `json:"createdAt"`
	Article   string   `json:"article"`
	Price     int64    `json:"price"`          // kopecks
	Skus      []string `json:"skus"`
	Address   struct {
		FullAddress string `json:"fullAddress"`
	} `json:"address"`
}

type wbOrdersResponse struct {
	Orders []wbOrder `json:"orders"`
	Next   int64     `json:"next"`
}

// GetOrders pulls new FBS orders created within [from, to]
func (a *WildberriesAdapter) GetOrders(ctx context.Context, from, to time.Time) ([]domain.ExternalOrder, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.GetOrders")
	defer span.End()

	var orders []domain.ExternalOrder
	var next int64

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(wbOrderPageMax))
		query.Set("next", strconv.FormatInt(next, 10))
		query.Set("dateFrom", strconv.FormatInt(from.Unix(), 10))
		query.Set("dateTo", strconv.FormatInt(to.Unix(), 10))

		var resp wbOrdersResponse
		if err := a.rt.doJSON(ctx, http.MethodGet, a.baseURL+"/api/v3/orders", query, nil, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for i := range resp.Orders {
			orders = append(orders, a.mapOrder(&resp.Orders[i]))
		}

		if len(resp.Orders) < wbOrderPageMax || resp.Next == 0 {
			break
		}
		next = resp.Next
	}

	span.SetAttributes(attribute.Int("orders.fetched", len(orders)))
	return orders, nil
}

func (a *WildberriesAdapter) mapOrder(o *wbOrder) domain.ExternalOrder {
	createdAt, _ := time.Parse(time.RFC3339, o.CreatedAt)
	price := float64(o.Price) / 100

	return domain.ExternalOrder{
		ExternalOrderID: strconv.FormatInt(o.ID, 10),
		CreatedAt:       createdAt,
		Status:          "new",
		Customer: domain.CustomerInfo{
			Address: o.Address.FullAddress,
		},
		LineItems: []domain.ExternalLineItem{
			{
				SKU:      o.Article,
				Quantity: 1,
				Price:    price,
			},
		},
		Totals: domain.OrderTotals{
			Subtotal: price,
		},
	}
}

type wbCardUpload struct {
	SubjectID int64              `json:"subjectID"`
	Variants  []wbCardVariant    `json:"variants"`
}

type wbCardVariant struct {
	VendorCode      string            `json:"vendorCode"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Characteristics []wbCharValuePair `json:"characteristics,omitempty"`
}

type wbCharValuePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreateProduct uploads a new product card. The Wildberries subject id
// must be resolved before the call.
func (a *WildberriesAdapter) CreateProduct(ctx context.Context, data domain.ProductData) error {
	ctx, span := wbTracer.Start(ctx, "wildberries.CreateProduct",
		attributeOption("sku", data.SKU))
	defer span.End()

	if data.CategoryID == "" {
		return domain.NewMarketplaceError(domain.MarketplaceWB, domain.ErrKindValidation,
			"wildberries subject id is required to create a product")
	}
	subjectID, err := strconv.ParseInt(data.CategoryID, 10, 64)
	if err != nil {
		return domain.NewMarketplaceError(domain.MarketplaceWB, domain.ErrKindValidation,
			"wildberries subject id must be numeric: "+data.CategoryID)
	}

	variant := wbCardVariant{
		VendorCode:  data.SKU,
		Title:       data.Name,
		Description: data.Description,
	}
	for name, value := range data.Characteristics {
		variant.Characteristics = append(variant.Characteristics, wbCharValuePair{Name: name, Value: value})
	}

	req := []wbCardUpload{{SubjectID: subjectID, Variants: []wbCardVariant{variant}}}
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/content/v2/cards/upload", nil, req, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

type wbStocksRequest struct {
	Stocks []wbStockItem `json:"stocks"`
}

type wbStockItem struct {
	Sku    string `json:"sku"`
	Amount int    `json:"amount"`
}

type wbStocksErrorResponse struct {
	Errors []struct {
		Sku     string `json:"sku"`
		Message string `json:"message"`
	} `json:"errors"`
}

// UpdateStock bulk-pushes stock amounts for one Wildberries warehouse.
// The API accepts all-or-reports-rejects; rejected skus land in the result.
func (a *WildberriesAdapter) UpdateStock(ctx context.Context, marketplaceWarehouseID string, items []domain.StockItem) (*domain.StockPushResult, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.UpdateStock",
		attributeOption("warehouse", marketplaceWarehouseID))
	defer span.End()

	if marketplaceWarehouseID == "" {
		return nil, domain.NewMarketplaceError(domain.MarketplaceWB, domain.ErrKindValidation,
			"wildberries warehouse id is required")
	}

	req := wbStocksRequest{Stocks: make([]wbStockItem, 0, len(items))}
	for _, item := range items {
		req.Stocks = append(req.Stocks, wbStockItem{Sku: item.SKU, Amount: item.Quantity})
	}

	var resp wbStocksErrorResponse
	endpoint := a.baseURL + "/api/v3/stocks/" + url.PathEscape(marketplaceWarehouseID)
	if err := a.rt.doJSON(ctx, http.MethodPut, endpoint, nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &domain.StockPushResult{}
	rejected := make(map[string]string, len(resp.Errors))
	for _, e := range resp.Errors {
		rejected[e.Sku] = e.Message
	}
	for _, item := range items {
		if msg, ok := rejected[item.SKU]; ok {
			result.Failed++
			result.Errors = append(result.Errors, domain.StockPushError{SKU: item.SKU, Message: msg})
			continue
		}
		result.Updated++
	}

	span.SetAttributes(
		attribute.Int("stock.updated", result.Updated),
		attribute.Int("stock.failed", result.Failed),
	)
	return result, nil
}

type wbPricesRequest struct {
	Data []wbPriceItem `json:"data"`
}

type wbPriceItem struct {
	VendorCode string  `json:"vendorCode"`
	Price      float64 `json:"price"`
}

// UpdatePrices bulk-pushes price changes
func (a *WildberriesAdapter) UpdatePrices(ctx context.Context, items []domain.PriceItem) (*domain.PricePushResult, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.UpdatePrices")
	defer span.End()

	req := wbPricesRequest{Data: make([]wbPriceItem, 0, len(items))}
	for _, item := range items {
		req.Data = append(req.Data, wbPriceItem{VendorCode: item.SKU, Price: item.Price})
	}

	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/api/v2/upload/task", nil, req, nil); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &domain.PricePushResult{Updated: len(items)}, nil
}

type wbStocksReadRequest struct {
	Skus []string `json:"skus"`
}

type wbStocksReadResponse struct {
	Stocks []struct {
		Sku    string `json:"sku"`
		Amount int    `json:"amount"`
	} `json:"stocks"`
}

// GetStocks reads Wildberries-side stock amounts for the given skus
func (a *WildberriesAdapter) GetStocks(ctx context.Context, marketplaceWarehouseID string, skus []string) ([]domain.RemoteStockLevel, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.GetStocks")
	defer span.End()

	if marketplaceWarehouseID == "" {
		return nil, domain.NewMarketplaceError(domain.MarketplaceWB, domain.ErrKindValidation,
			"wildberries warehouse id is required")
	}

	var resp wbStocksReadResponse
	endpoint := a.baseURL + "/api/v3/stocks/" + url.PathEscape(marketplaceWarehouseID)
	if err := a.rt.doJSON(ctx, http.MethodPost, endpoint, nil, wbStocksReadRequest{Skus: skus}, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	levels := make([]domain.RemoteStockLevel, 0, len(resp.Stocks))
	for _, s := range resp.Stocks {
		levels = append(levels, domain.RemoteStockLevel{SKU: s.Sku, Quantity: s.Amount})
	}
	return levels, nil
}

type wbParentsResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// GetCategories retrieves the top-level parent categories
func (a *WildberriesAdapter) GetCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.GetCategories")
	defer span.End()

	var resp wbParentsResponse
	if err := a.rt.doJSON(ctx, http.MethodGet, a.baseURL+"/content/v2/object/parent/all", nil, nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	categories := make([]domain.Category, 0, len(resp.Data))
	for _, c := range resp.Data {
		categories = append(categories, domain.Category{
			ID:   strconv.FormatInt(c.ID, 10),
			Name: c.Name,
		})
	}
	return categories, nil
}

type wbSubjectsResponse struct {
	Data []struct {
		SubjectID   int64  `json:"subjectID"`
		SubjectName string `json:"subjectName"`
		ParentID    int64  `json:"parentID"`
		ParentName  string `json:"parentName"`
	} `json:"data"`
}

// SearchCategories searches subjects by name server-side
func (a *WildberriesAdapter) SearchCategories(ctx context.Context, query string) ([]domain.Category, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.SearchCategories",
		attributeOption("query", query))
	defer span.End()

	q := url.Values{}
	q.Set("name", query)

	var resp wbSubjectsResponse
	if err := a.rt.doJSON(ctx, http.MethodGet, a.baseURL+"/content/v2/object/all", q, nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	categories := make([]domain.Category, 0, len(resp.Data))
	for _, s := range resp.Data {
		categories = append(categories, domain.Category{
			ID:       strconv.FormatInt(s.SubjectID, 10),
			Name:     s.SubjectName,
			ParentID: strconv.FormatInt(s.ParentID, 10),
		})
	}
	return categories, nil
}

type wbCharcsResponse struct {
	Data []struct {
		CharcID  int64  `json:"charcID"`
		Name     string `json:"name"`
		Required bool   `json:"required"`
		UnitName string `json:"unitName"`
	} `json:"data"`
}

// GetCategoryCharacteristics retrieves characteristics for a subject
func (a *WildberriesAdapter) GetCategoryCharacteristics(ctx context.Context, categoryID string) ([]domain.Characteristic, error) {
	ctx, span := wbTracer.Start(ctx, "wildberries.GetCategoryCharacteristics",
		attributeOption("category", categoryID))
	defer span.End()

	if _, err := strconv.ParseInt(categoryID, 10, 64); err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceWB, domain.ErrKindValidation,
			"wildberries subject id must be numeric: "+categoryID)
	}

	var resp wbCharcsResponse
	endpoint := a.baseURL + "/content/v2/object/charcs/" + url.PathEscape(categoryID)
	if err := a.rt.doJSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	chars := make([]domain.Characteristic, 0, len(resp.Data))
	for _, c := range resp.Data {
		chars = append(chars, domain.Characteristic{
			ID:       strconv.FormatInt(c.CharcID, 10),
			Name:     c.Name,
			Type:     c.UnitName,
			Required: c.Required,
		})
	}
	return chars, nil
}
