package adapters

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerops/marketplace-hub/internal/domain"
)

var yandexTracer = otel.Tracer("marketplace-hub/adapters/yandex")

const (
	yandexBaseURL       = "https://api.partner.market.yandex.ru"
	yandexOfferPageMax  = 200
	yandexStockBatchMax = 2000
	yandexDateLayout    = "02-01-2006"
	yandexTimeLayout    = "02-01-2006 15:04:05"
)

// YandexAdapter implements the MarketplaceAdapter interface for the
// Yandex Market partner API. All campaign-scoped endpoints use the
// campaign id from the bound credentials.
type YandexAdapter struct {
	creds   domain.Credentials
	baseURL string
	rt      *transport
}

// NewYandexAdapter creates a credential-bound Yandex Market adapter
func NewYandexAdapter(creds domain.Credentials) *YandexAdapter {
	a := &YandexAdapter{
		creds:   creds,
		baseURL: yandexBaseURL,
	}
	a.rt = newTransport(domain.MarketplaceYandex, a.authorize)
	return a
}

func (a *YandexAdapter) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.creds.APIKey)
}

func (a *YandexAdapter) campaignURL(suffix string) string {
	return a.baseURL + "/campaigns/" + url.PathEscape(a.creds.CampaignID) + suffix
}

// Name returns the marketplace identifier
func (a *YandexAdapter) Name() domain.Marketplace {
	return domain.MarketplaceYandex
}

// MaxStockBatch returns the Yandex Market stock push batch limit
func (a *YandexAdapter) MaxStockBatch() int {
	return yandexStockBatchMax
}

func (a *YandexAdapter) requireCampaign() error {
	if a.creds.CampaignID == "" {
		return domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindAuth,
			"yandex campaign id is required")
	}
	return nil
}

type yandexOffersResponse struct {
	Result struct {
		Offers []struct {
			OfferID          string `json:"offerId"`
			Name             string `json:"name"`
			MarketCategoryID int64  `json:"marketCategoryId"`
		} `json:"offers"`
		Paging struct {
			NextPageToken string `json:"nextPageToken"`
		} `json:"paging"`
	} `json:"result"`
}

// GetProducts pulls the campaign's offers using page_token pagination
func (a *YandexAdapter) GetProducts(ctx context.Context) ([]domain.ProductListing, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.GetProducts")
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return nil, err
	}

	var listings []domain.ProductListing
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(yandexOfferPageMax))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp yandexOffersResponse
		if err := a.rt.doJSON(ctx, http.MethodGet, a.campaignURL("/offers"), query, nil, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for _, offer := range resp.Result.Offers {
			listing := domain.ProductListing{
				SKU:  offer.OfferID,
				Name: offer.Name,
			}
			if offer.MarketCategoryID != 0 {
				listing.CategoryID = strconv.FormatInt(offer.MarketCategoryID, 10)
			}
			listings = append(listings, listing)
		}

		if resp.Result.Paging.NextPageToken == "" {
			break
		}
		pageToken = resp.Result.Paging.NextPageToken
	}

	span.SetAttributes(attribute.Int("products.fetched", len(listings)))
	return listings, nil
}

type yandexOrder struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	CreationDate string `json:"creationDate"`
	ItemsTotal   float64 `json:"itemsTotal"`
	DeliveryTotal float64 `json:"deliveryTotal"`
	Buyer        struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	} `json:"buyer"`
	Items []struct {
		OfferID   string  `json:"offerId"`
		OfferName string  `json:"offerName"`
		Count     int     `json:"count"`
		Price     float64 `json:"price"`
	} `json:"items"`
}

type yandexOrdersResponse struct {
	Orders []yandexOrder `json:"orders"`
	Pager  struct {
		PagesCount  int `json:"pagesCount"`
		CurrentPage int `json:"currentPage"`
	} `json:"pager"`
}

// GetOrders pulls campaign orders created within [from, to]
func (a *YandexAdapter) GetOrders(ctx context.Context, from, to time.Time) ([]domain.ExternalOrder, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.GetOrders")
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return nil, err
	}

	var orders []domain.ExternalOrder
	page := 1

	for {
		query := url.Values{}
		query.Set("fromDate", from.Format(yandexDateLayout))
		query.Set("toDate", to.Format(yandexDateLayout))
		query.Set("page", strconv.Itoa(page))

		var resp yandexOrdersResponse
		if err := a.rt.doJSON(ctx, http.MethodGet, a.campaignURL("/orders"), query, nil, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}

		for i := range resp.Orders {
			orders = append(orders, a.mapOrder(&resp.Orders[i]))
		}

		if resp.Pager.PagesCount == 0 || resp.Pager.CurrentPage >= resp.Pager.PagesCount {
			break
		}
		page++
	}

	span.SetAttributes(attribute.Int("orders.fetched", len(orders)))
	return orders, nil
}

func (a *YandexAdapter) mapOrder(o *yandexOrder) domain.ExternalOrder {
	createdAt, err := time.Parse(yandexTimeLayout, o.CreationDate)
	if err != nil {
		createdAt, _ = time.Parse(yandexDateLayout, o.CreationDate)
	}

	items := make([]domain.ExternalLineItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, domain.ExternalLineItem{
			SKU:      item.OfferID,
			Name:     item.OfferName,
			Quantity: item.Count,
			Price:    item.Price,
		})
	}

	name := strings.TrimSpace(o.Buyer.FirstName + " " + o.Buyer.LastName)

	return domain.ExternalOrder{
		ExternalOrderID: strconv.FormatInt(o.ID, 10),
		CreatedAt:       createdAt,
		Status:          o.Status,
		Customer: domain.CustomerInfo{
			Name:  name,
			Phone: o.Buyer.Phone,
		},
		LineItems: items,
		Totals: domain.OrderTotals{
			Subtotal: o.ItemsTotal,
			Shipping: o.DeliveryTotal,
		},
	}
}

type yandexOfferMappingRequest struct {
	OfferMappingEntries []yandexOfferMappingEntry `json:"offerMappingEntries"`
}

type yandexOfferMappingEntry struct {
	Offer struct {
		ShopSku     string `json:"shopSku"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	} `json:"offer"`
	Mapping struct {
		MarketCategoryID int64 `json:"marketCategoryId"`
	} `json:"mapping"`
}

// CreateProduct creates an offer mapping. The market category id must be
// resolved before the call.
func (a *YandexAdapter) CreateProduct(ctx context.Context, data domain.ProductData) error {
	ctx, span := yandexTracer.Start(ctx, "yandex.CreateProduct",
		attributeOption("sku", data.SKU))
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return err
	}
	if data.CategoryID == "" {
		return domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindValidation,
			"yandex market category id is required to create a product")
	}
	categoryID, err := strconv.ParseInt(data.CategoryID, 10, 64)
	if err != nil {
		return domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindValidation,
			"yandex market category id must be numeric: "+data.CategoryID)
	}

	entry := yandexOfferMappingEntry{}
	entry.Offer.ShopSku = data.SKU
	entry.Offer.Name = data.Name
	entry.Offer.Description = data.Description
	entry.Mapping.MarketCategoryID = categoryID

	req := yandexOfferMappingRequest{OfferMappingEntries: []yandexOfferMappingEntry{entry}}
	if err := a.rt.doJSON(ctx, http.MethodPost, a.campaignURL("/offer-mapping-entries/updates"), nil, req, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

type yandexStocksUpdateRequest struct {
	Skus []yandexStockSku `json:"skus"`
}

type yandexStockSku struct {
	Sku         string            `json:"sku"`
	WarehouseID int64             `json:"warehouseId"`
	Items       []yandexStockItem `json:"items"`
}

type yandexStockItem struct {
	Count     int    `json:"count"`
	Type      string `json:"type"`
	UpdatedAt string `json:"updatedAt"`
}

type yandexStocksUpdateResponse struct {
	Status string `json:"status"`
	Errors []struct {
		Sku     string `json:"sku"`
		Message string `json:"message"`
	} `json:"errors"`
}

// UpdateStock bulk-pushes stock counts for one Yandex warehouse.
// Per-sku rejections are collected into the result.
func (a *YandexAdapter) UpdateStock(ctx context.Context, marketplaceWarehouseID string, items []domain.StockItem) (*domain.StockPushResult, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.UpdateStock",
		attributeOption("warehouse", marketplaceWarehouseID))
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return nil, err
	}
	warehouseID, err := strconv.ParseInt(marketplaceWarehouseID, 10, 64)
	if err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindValidation,
			"yandex warehouse id must be numeric: "+marketplaceWarehouseID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	req := yandexStocksUpdateRequest{Skus: make([]yandexStockSku, 0, len(items))}
	for _, item := range items {
		req.Skus = append(req.Skus, yandexStockSku{
			Sku:         item.SKU,
			WarehouseID: warehouseID,
			Items: []yandexStockItem{
				{Count: item.Quantity, Type: "FIT", UpdatedAt: now},
			},
		})
	}

	var resp yandexStocksUpdateResponse
	if err := a.rt.doJSON(ctx, http.MethodPut, a.campaignURL("/offers/stocks"), nil, req, &resp); err != nil {
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

type yandexPricesRequest struct {
	Offers []yandexPriceOffer `json:"offers"`
}

type yandexPriceOffer struct {
	OfferID string `json:"offerId"`
	Price   struct {
		Value      float64 `json:"value"`
		CurrencyID string  `json:"currencyId"`
	} `json:"price"`
}

// UpdatePrices bulk-pushes price changes
func (a *YandexAdapter) UpdatePrices(ctx context.Context, items []domain.PriceItem) (*domain.PricePushResult, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.UpdatePrices")
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return nil, err
	}

	req := yandexPricesRequest{Offers: make([]yandexPriceOffer, 0, len(items))}
	for _, item := range items {
		offer := yandexPriceOffer{OfferID: item.SKU}
		offer.Price.Value = item.Price
		offer.Price.CurrencyID = "RUR"
		req.Offers = append(req.Offers, offer)
	}

	if err := a.rt.doJSON(ctx, http.MethodPost, a.campaignURL("/offer-prices/updates"), nil, req, nil); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &domain.PricePushResult{Updated: len(items)}, nil
}

type yandexStocksReadRequest struct {
	WithTurnover bool     `json:"withTurnover"`
	OfferIDs     []string `json:"offerIds,omitempty"`
}

type yandexStocksReadResponse struct {
	Result struct {
		Warehouses []struct {
			ID     int64 `json:"id"`
			Offers []struct {
				OfferID string `json:"offerId"`
				Stocks  []struct {
					Type  string `json:"type"`
					Count int    `json:"count"`
				} `json:"stocks"`
			} `json:"offers"`
		} `json:"warehouses"`
	} `json:"result"`
}

// GetStocks reads Yandex-side stock counts for the given skus, filtered
// to one warehouse
func (a *YandexAdapter) GetStocks(ctx context.Context, marketplaceWarehouseID string, skus []string) ([]domain.RemoteStockLevel, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.GetStocks")
	defer span.End()

	if err := a.requireCampaign(); err != nil {
		return nil, err
	}
	warehouseID, err := strconv.ParseInt(marketplaceWarehouseID, 10, 64)
	if err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindValidation,
			"yandex warehouse id must be numeric: "+marketplaceWarehouseID)
	}

	var resp yandexStocksReadResponse
	req := yandexStocksReadRequest{OfferIDs: skus}
	if err := a.rt.doJSON(ctx, http.MethodPost, a.campaignURL("/offers/stocks"), nil, req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var levels []domain.RemoteStockLevel
	for _, wh := range resp.Result.Warehouses {
		if wh.ID != warehouseID {
			continue
		}
		for _, offer := range wh.Offers {
			qty := 0
			for _, s := range offer.Stocks {
				if s.Type == "AVAILABLE" || s.Type == "FIT" {
					qty += s.Count
				}
			}
			levels = append(levels, domain.RemoteStockLevel{SKU: offer.OfferID, Quantity: qty})
		}
	}
	return levels, nil
}

type yandexCategoryNode struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name"`
	Children []yandexCategoryNode `json:"children"`
}

type yandexCategoryTreeResponse struct {
	Result yandexCategoryNode `json:"result"`
}

// GetCategories retrieves the full market category tree
func (a *YandexAdapter) GetCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.GetCategories")
	defer span.End()

	var resp yandexCategoryTreeResponse
	if err := a.rt.doJSON(ctx, http.MethodPost, a.baseURL+"/categories/tree", nil, map[string]string{"language": "RU"}, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return mapYandexCategories(resp.Result.Children, ""), nil
}

func mapYandexCategories(nodes []yandexCategoryNode, parentID string) []domain.Category {
	categories := make([]domain.Category, 0, len(nodes))
	for _, node := range nodes {
		id := strconv.FormatInt(node.ID, 10)
		categories = append(categories, domain.Category{
			ID:       id,
			Name:     node.Name,
			ParentID: parentID,
			Children: mapYandexCategories(node.Children, id),
		})
	}
	return categories
}

// SearchCategories filters the category tree by a case-insensitive
// substring match. Yandex has no server-side category search.
func (a *YandexAdapter) SearchCategories(ctx context.Context, query string) ([]domain.Category, error) {
	tree, err := a.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	return filterCategories(tree, strings.ToLower(query)), nil
}

type yandexParametersResponse struct {
	Result struct {
		Parameters []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Type     string `json:"type"`
			Required bool   `json:"required"`
		} `json:"parameters"`
	} `json:"result"`
}

// GetCategoryCharacteristics retrieves parameter definitions of a category
func (a *YandexAdapter) GetCategoryCharacteristics(ctx context.Context, categoryID string) ([]domain.Characteristic, error) {
	ctx, span := yandexTracer.Start(ctx, "yandex.GetCategoryCharacteristics",
		attributeOption("category", categoryID))
	defer span.End()

	if _, err := strconv.ParseInt(categoryID, 10, 64); err != nil {
		return nil, domain.NewMarketplaceError(domain.MarketplaceYandex, domain.ErrKindValidation,
			"yandex category id must be numeric: "+categoryID)
	}

	var resp yandexParametersResponse
	endpoint := a.baseURL + "/category/" + url.PathEscape(categoryID) + "/parameters"
	if err := a.rt.doJSON(ctx, http.MethodPost, endpoint, nil, nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}

	chars := make([]domain.Characteristic, 0, len(resp.Result.Parameters))
	for _, p := range resp.Result.Parameters {
		chars = append(chars, domain.Characteristic{
			ID:       strconv.FormatInt(p.ID, 10),
			Name:     p.Name,
			Type:     p.Type,
			Required: p.Required,
		})
	}
	return chars, nil
}
