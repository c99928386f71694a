package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerops/marketplace-hub/internal/application"
	"github.com/sellerops/marketplace-hub/internal/domain"
	apperrors "github.com/sellerops/marketplace-hub/internal/pkg/errors"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/middleware"
)

// SyncHandler exposes synchronization, listing and order operations
type SyncHandler struct {
	service *application.SyncService
	logger  *logging.Logger
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(service *application.SyncService, logger *logging.Logger) *SyncHandler {
	return &SyncHandler{service: service, logger: logger}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(r *gin.RouterGroup) {
	sellers := r.Group("/sellers/:sellerId")
	{
		marketplace := sellers.Group("/:marketplace")
		{
			marketplace.POST("/sync/stock", h.SyncStock)
			marketplace.POST("/sync/orders", h.SyncOrders)
			marketplace.POST("/sync/prices", h.SyncPrices)
			marketplace.POST("/stock/pull", h.PullStock)
			marketplace.POST("/products", h.CreateListing)
			marketplace.POST("/products/validate", h.ValidateProduct)
		}
		sellers.PATCH("/orders/:orderId/status", h.UpdateOrderStatus)
		sellers.GET("/ozon/bonuses/reconciliation", h.ReconcileBonuses)
	}
}

type stockSyncRequest struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
}

// SyncStock handles POST /sellers/:sellerId/:marketplace/sync/stock
func (h *SyncHandler) SyncStock(c *gin.Context) {
	var req stockSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	summary, err := h.service.SyncStock(c.Request.Context(), application.SyncStockCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		WarehouseID: req.WarehouseID,
	})
	if err != nil {
		h.logger.WithError(err).Error("stock sync failed",
			"seller_id", c.Param("sellerId"),
			"marketplace", c.Param("marketplace"))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type orderSyncRequest struct {
	From time.Time `json:"from" binding:"required"`
	To   time.Time `json:"to" binding:"required"`
}

// SyncOrders handles POST /sellers/:sellerId/:marketplace/sync/orders
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	var req orderSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}
	if !req.To.After(req.From) {
		middleware.ErrorResponse(c, apperrors.Validation("to must be after from"))
		return
	}

	summary, err := h.service.ImportOrders(c.Request.Context(), application.ImportOrdersCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		From:        req.From,
		To:          req.To,
	})
	if err != nil {
		h.logger.WithError(err).Error("order import failed",
			"seller_id", c.Param("sellerId"),
			"marketplace", c.Param("marketplace"))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SyncPrices handles POST /sellers/:sellerId/:marketplace/sync/prices
func (h *SyncHandler) SyncPrices(c *gin.Context) {
	summary, err := h.service.SyncPrices(c.Request.Context(), application.SyncPricesCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// PullStock handles POST /sellers/:sellerId/:marketplace/stock/pull
func (h *SyncHandler) PullStock(c *gin.Context) {
	var req stockSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	summary, err := h.service.PullStock(c.Request.Context(), application.PullStockCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		WarehouseID: req.WarehouseID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type listingRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// CreateListing handles POST /sellers/:sellerId/:marketplace/products
func (h *SyncHandler) CreateListing(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	err := h.service.CreateListing(c.Request.Context(), application.CreateListingCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		SKU:         req.SKU,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sku": req.SKU, "status": "listed"})
}

// ValidateProduct handles POST /sellers/:sellerId/:marketplace/products/validate
func (h *SyncHandler) ValidateProduct(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	report, err := h.service.ValidateProductForMarketplace(c.Request.Context(), application.ValidateProductCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		SKU:         req.SKU,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus handles PATCH /sellers/:sellerId/orders/:orderId/status
func (h *SyncHandler) UpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	err := h.service.UpdateOrderStatus(c.Request.Context(), application.UpdateOrderStatusCommand{
		SellerID:        c.Param("sellerId"),
		ExternalOrderID: c.Param("orderId"),
		Status:          domain.OrderStatus(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("orderId"), "status": req.Status})
}

// ReconcileBonuses handles GET /sellers/:sellerId/ozon/bonuses/reconciliation
func (h *SyncHandler) ReconcileBonuses(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		middleware.ErrorResponse(c, apperrors.Validation("invalid from date, expected YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		middleware.ErrorResponse(c, apperrors.Validation("invalid to date, expected YYYY-MM-DD"))
		return
	}

	reconciliation, err := h.service.ReconcileBonuses(c.Request.Context(), application.ReconcileBonusesCommand{
		SellerID: c.Param("sellerId"),
		From:     from,
		To:       to.Add(24*time.Hour - time.Nanosecond),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconciliation)
}
