package adapters

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

var ozonTracer = otel.Tracer("marketplace-hub/adapters/ozon")

const (
	ozonBaseURL       = "https://api-seller.ozon.ru"
	ozonPageLimit     = 1000
	ozonOrderPageSize = 100
	ozonStockBatchMax = 100
)

// OzonAdapter implements the MarketplaceAdapter interface for Ozon Seller API
type OzonAdapter struct {
	creds   domain.Credentials
	baseURL string
	rt      *transport
}

// NewOzonAdapter creates a credential-bound Ozon adapter
func NewOzonAdapter(creds domain.Credentials) *OzonAdapter {
	a := &OzonAdapter{
		creds:   creds,
		baseURL: ozonBaseURL,
	}
	a.rt = newTransport(domain.MarketplaceOzon, a.authorize)
	return a
}

func (a *OzonAdapter) authorize(req *http.Request) {
	req.Header.Set("Client-Id", a.creds.ClientID)
	req.Header.Set("Api-Key", a.creds.APIKey)
}

// Name returns the marketplace identifier
func (a *OzonAdapter) Name() domain.Marketplace {
	return domain.MarketplaceOzon
}

// MaxStockBatch returns Ozon's stock push batch limit
func (a *OzonAdapter) MaxStockBatch() int {
	return ozonStockBatchMax
}

type ozonProductListRequest struct {
	Filter struct {
		Visibility string `json:"visibility"`
	} `json:"filter"`
	LastID string `json:"last_id"`
	Limit  int    `json:"limit"`
}

type ozonProductListResponse struct {
	Result struct {
		Items []struct {
			ProductID int64  `json:"product_id"`
			OfferID   string `json:"offer_id"`
			Name      string `json:"name"`
		} `json:"items"`
		LastID string `json:"last_id"`
		Total  int    `json:"total"`
	} `json:"result"`
}

// GetProducts pulls the full product listing using last_id cursor pagination
func (a *OzonAdapter) GetProducts(ctx context.Context) ([]domain.ProductListing, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.GetProducts")
	defer span.End()

	var listings []domain.ProductListing
	lastID := ""

	for {
		req := ozonProductListRequest{LastID: lastID, Limit: ozonPageLimit}
		req.Filter.Visibility = "ALL"

		var resp ozonProductListResponse
		if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v3/product/list", nil, req, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for _, item := range resp.Result.Items {
			listings = append(listings, domain.ProductListing{
				SKU:  item.OfferID,
				Name: item.Name,
				Raw: map[string]interface{}{
					"productId": item.ProductID,
				},
			})
		}

		if len(resp.Result.Items) < ozonPageLimit || resp.Result.LastID == "" {
			break
		}
		lastID = resp.Result.LastID
	}

	span.SetAttributes(attribute.Int("products.fetched", len(listings)))
	return listings, nil
}

type ozonPostingListRequest struct {
	Dir    string `json:"dir"`
	Filter struct {
		Since string `json:"since"`
		To    string `json:"to"`
	} `json:"filter"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ozonPosting struct {
	PostingNumber string `json:"posting_number"`
	Status        string `json:"status"`
	InProcessAt   string `json:"in_process_at"`
	Products      []struct {
		OfferID  string `json:"offer_id"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Price    string `json:"price"`
	} `json:"products"`
	AnalyticsData struct {
		City   string `json:"city"`
		Region string `json:"region"`
	} `json:"analytics_data"`
	FinancialData struct {
		PostingServices struct {
			MarketplaceServiceItemDelivToCustomer float64 `json:"marketplace_service_item_deliv_to_customer"`
		} `json:"posting_services"`
	} `json:"financial_data"`
	Addressee struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"addressee"`
}

type ozonPostingListResponse struct {
	Result struct {
		Postings []ozonPosting `json:"postings"`
		HasNext  bool          `json:"has_next"`
	} `json:"result"`
}

// GetOrders pulls FBS postings created within [from, to]
func (a *OzonAdapter) GetOrders(ctx context.Context, from, to time.Time) ([]domain.ExternalOrder, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.GetOrders")
	defer span.End()

	var orders []domain.ExternalOrder
	offset := 0

	for {
		req := ozonPostingListRequest{Dir: "ASC", Limit: ozonOrderPageSize, Offset: offset}
		req.Filter.Since = from.UTC().Format(time.RFC3339)
		req.Filter.To = to.UTC().Format(time.RFC3339)

		var resp ozonPostingListResponse
		if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v3/posting/fbs/list", nil, req, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for i := range resp.Result.Postings {
			orders = append(orders, a.mapPosting(&resp.Result.Postings[i]))
		}

		if !resp.Result.HasNext {
			break
		}
		offset += ozonOrderPageSize
	}

	span.SetAttributes(attribute.Int("orders.fetched", len(orders)))
	return orders, nil
}

func (a *OzonAdapter) mapPosting(p *ozonPosting) domain.ExternalOrder {
	createdAt, _ := time.Parse(time.RFC3339, p.InProcessAt)

	items := make([]domain.ExternalLineItem, 0, len(p.Products))
	var subtotal float64
	for _, prod := range p.Products {
		price, _ := strconv.ParseFloat(prod.Price, 64)
		items = append(items, domain.ExternalLineItem{
			SKU:      prod.OfferID,
			Name:     prod.Name,
			Quantity: prod.Quantity,
			Price:    price,
		})
		subtotal += price * float64(prod.Quantity)
	}

	return domain.ExternalOrder{
		ExternalOrderID: p.PostingNumber,
		CreatedAt:       createdAt,
		Status:          p.Status,
		Customer: domain.CustomerInfo{
			Name:    p.Addressee.Name,
			Phone:   p.Addressee.Phone,
			Address: p.AnalyticsData.City,
		},
		LineItems: items,
		Totals: domain.OrderTotals{
			Subtotal: subtotal,
			Shipping: p.FinancialData.PostingServices.MarketplaceServiceItemDelivToCustomer,
		},
	}
}

type ozonProductImportRequest struct {
	Items []ozonProductImportItem `json:"items"`
}

type ozonProductImportItem struct {
	OfferID               string               `json:"offer_id"`
	Name                  string               `json:"name"`
	Description           string               `json:"description,omitempty"`
	Price                 string               `json:"price"`
	DescriptionCategoryID int64                `json:"description_category_id"`
	Attributes            []ozonImportAttr     `json:"attributes,omitempty"`
}

type ozonImportAttr struct {
	ID     string `json:"id"`
	Values []struct {
		Value string `json:"value"`
	} `json:"values"`
}

// CreateProduct creates a listing on Ozon. The Ozon category id must be
// resolved before the call.
func (a *OzonAdapter) CreateProduct(ctx context.Context, data domain.ProductData) error {
	ctx, span := ozonTracer.Start(ctx, "ozon.CreateProduct",
		attributeOption("sku", data.SKU))
	defer span.End()

	if data.CategoryID == "" {
		return domain.NewMarketplaceError(domain.MarketplaceOzon, domain.ErrKindValidation,
			"ozon category id is required to create a product")
	}
	categoryID, err := strconv.ParseInt(data.CategoryID, 10, 64)
	if err != nil {
		return domain.NewMarketplaceError(domain.MarketplaceOzon, domain.ErrKindValidation,
			"ozon category id must be numeric: "+data.CategoryID)
	}

	item := ozonProductImportItem{
		OfferID:               data.SKU,
		Name:                  data.Name,
		Description:           data.Description,
		Price:                 strconv.FormatFloat(data.Price, 'f', 2, 64),
		DescriptionCategoryID: categoryID,
	}
	for id, value := range data.Characteristics {
		attr := ozonImportAttr{ID: id}
		attr.Values = []struct {
			Value string `json:"value"`
		}{{Value: value}}
		item.Attributes = append(item.Attributes, attr)
	}

	req := ozonProductImportRequest{Items: []ozonProductImportItem{item}}
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v3/product/import", nil, req, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

type ozonStocksRequest struct {
	Stocks []ozonStockItem `json:"stocks"`
}

type ozonStockItem struct {
	OfferID     string `json:"offer_id"`
	Stock       int    `json:"stock"`
	WarehouseID int64  `json:"warehouse_id"`
}

type ozonStocksResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// UpdateStock bulk-pushes stock quantities for one Ozon warehouse.
// Per-item rejections are collected into the result.
func (a *OzonAdapter) UpdateStock(ctx context.Context, marketplaceWarehouseID string, items []domain.StockItem) (*domain.StockPushResult, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.UpdateStock",
		attributeOption("warehouse", marketplaceWarehouseID))
	defer span.End()

	warehouseID, err := strconv.ParseInt(marketplaceWarehouseID, 10, 64)
	if err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceOzon, domain.ErrKindValidation,
			"ozon warehouse id must be numeric: "+marketplaceWarehouseID)
	}

	req := ozonStocksRequest{Stocks: make([]ozonStockItem, 0, len(items))}
	for _, item := range items {
		req.Stocks = append(req.Stocks, ozonStockItem{
			OfferID:     item.SKU,
			Stock:       item.Quantity,
			WarehouseID: warehouseID,
		})
	}

	var resp ozonStocksResponse
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v2/products/stocks", nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &domain.StockPushResult{}
	for _, r := range resp.Result {
		if r.Updated {
			result.Updated++
			continue
		}
		result.Failed++
		msg := "update rejected"
		if len(r.Errors) > 0 {
			msg = r.Errors[0].Message
			if msg == "" {
				msg = r.Errors[0].Code
			}
		}
		result.Errors = append(result.Errors, domain.StockPushError{SKU: r.OfferID, Message: msg})
	}

	span.SetAttributes(
		attribute.Int("stock.updated", result.Updated),
		attribute.Int("stock.failed", result.Failed),
	)
	return result, nil
}

type ozonPricesRequest struct {
	Prices []ozonPriceItem `json:"prices"`
}

type ozonPriceItem struct {
	OfferID string `json:"offer_id"`
	Price   string `json:"price"`
}

type ozonPricesResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// UpdatePrices bulk-pushes price changes
func (a *OzonAdapter) UpdatePrices(ctx context.Context, items []domain.PriceItem) (*domain.PricePushResult, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.UpdatePrices")
	defer span.End()

	req := ozonPricesRequest{Prices: make([]ozonPriceItem, 0, len(items))}
	for _, item := range items {
		req.Prices = append(req.Prices, ozonPriceItem{
			OfferID: item.SKU,
			Price:   strconv.FormatFloat(item.Price, 'f', 2, 64),
		})
	}

	var resp ozonPricesResponse
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v1/product/import/prices", nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &domain.PricePushResult{}
	for _, r := range resp.Result {
		if r.Updated {
			result.Updated++
			continue
		}
		result.Failed++
		msg := "price update rejected"
		if len(r.Errors) > 0 && r.Errors[0].Message != "" {
			msg = r.Errors[0].Message
		}
		result.Errors = append(result.Errors, domain.StockPushError{SKU: r.OfferID, Message: msg})
	}
	return result, nil
}

type ozonStockInfoRequest struct {
	Filter struct {
		OfferID []string `json:"offer_id"`
	} `json:"filter"`
	Limit int `json:"limit"`
}

type ozonStockInfoResponse struct {
	Items []struct {
		OfferID string `json:"offer_id"`
		Stocks  []struct {
			Type    string `json:"type"`
			Present int    `json:"present"`
		} `json:"stocks"`
	} `json:"items"`
}

// GetStocks reads Ozon-side FBS stock levels for the given skus
func (a *OzonAdapter) GetStocks(ctx context.Context, marketplaceWarehouseID string, skus []string) ([]domain.RemoteStockLevel, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.GetStocks")
	defer span.End()

	req := ozonStockInfoRequest{Limit: ozonPageLimit}
	req.Filter.OfferID = skus

	var resp ozonStockInfoResponse
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v3/product/info/stocks", nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	levels := make([]domain.RemoteStockLevel, 0, len(resp.Items))
	for _, item := range resp.Items {
		qty := 0
		for _, s := range item.Stocks {
			if s.Type == "fbs" {
				qty = s.Present
				break
			}
		}
		levels = append(levels, domain.RemoteStockLevel{SKU: item.OfferID, Quantity: qty})
	}
	return levels, nil
}

type ozonCategoryNode struct {
	DescriptionCategoryID int64              `json:"description_category_id"`
	CategoryName          string             `json:"category_name"`
	Children              []ozonCategoryNode `json:"children"`
}

type ozonCategoryTreeResponse struct {
	Result []ozonCategoryNode `json:"result"`
}

// GetCategories retrieves the Ozon description category tree
func (a *OzonAdapter) GetCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.GetCategories")
	defer span.End()

	var resp ozonCategoryTreeResponse
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v1/description-category/tree", nil, map[string]string{"language": "DEFAULT"}, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return mapOzonCategories(resp.Result, ""), nil
}

func mapOzonCategories(nodes []ozonCategoryNode, parentID string) []domain.Category {
	categories := make([]domain.Category, 0, len(nodes))
	for _, node := range nodes {
		id := strconv.FormatInt(node.DescriptionCategoryID, 10)
		categories = append(categories, domain.Category{
			ID:       id,
			Name:     node.CategoryName,
			ParentID: parentID,
			Children: mapOzonCategories(node.Children, id),
		})
	}
	return categories
}

// SearchCategories filters the category tree by a case-insensitive
// substring match. Ozon has no server-side category search.
func (a *OzonAdapter) SearchCategories(ctx context.Context, query string) ([]domain.Category, error) {
	tree, err := a.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	return filterCategories(tree, strings.ToLower(query)), nil
}

type ozonAttributesRequest struct {
	DescriptionCategoryID int64  `json:"description_category_id"`
	Language              string `json:"language"`
}

type ozonAttributesResponse struct {
	Result []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		IsRequired bool   `json:"is_required"`
	} `json:"result"`
}

// GetCategoryCharacteristics retrieves attribute definitions of a category
func (a *OzonAdapter) GetCategoryCharacteristics(ctx context.Context, categoryID string) ([]domain.Characteristic, error) {
	ctx, span := ozonTracer.Start(ctx, "ozon.GetCategoryCharacteristics",
		attributeOption("category", categoryID))
	defer span.End()

	id, err := strconv.ParseInt(categoryID, 10, 64)
	if err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceOzon, domain.ErrKindValidation,
			"ozon category id must be numeric: "+categoryID)
	}

	var resp ozonAttributesResponse
	req := ozonAttributesRequest{DescriptionCategoryID: id, Language: "DEFAULT"}
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/v1/description-category/attribute", nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	chars := make([]domain.Characteristic, 0, len(resp.Result))
	for _, attr := range resp.Result {
		chars = append(chars, domain.Characteristic{
			ID:       strconv.FormatInt(attr.ID, 10),
			Name:     attr.Name,
			Type:     attr.Type,
			Required: attr.IsRequired,
		})
	}
	return chars, nil
}
