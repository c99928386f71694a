package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sellerops/marketplace-hub/internal/application"
	"github.com/sellerops/marketplace-hub/internal/domain"
	apperrors "github.com/sellerops/marketplace-hub/internal/pkg/errors"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/middleware"
)

// WarehouseHandler exposes warehouse management and marketplace links
type WarehouseHandler struct {
	service *application.WarehouseService
	logger  *logging.Logger
}

// NewWarehouseHandler creates a warehouse handler
func NewWarehouseHandler(service *application.WarehouseService, logger *logging.Logger) *WarehouseHandler {
	return &WarehouseHandler{service: service, logger: logger}
}

// RegisterRoutes registers warehouse routes
func (h *WarehouseHandler) RegisterRoutes(r *gin.RouterGroup) {
	warehouses := r.Group("/sellers/:sellerId/warehouses")
	{
		warehouses.POST("", h.Create)
		warehouses.GET("", h.List)
		warehouses.GET("/:warehouseId", h.Get)
		warehouses.DELETE("/:warehouseId", h.Delete)
		warehouses.POST("/:warehouseId/links", h.Link)
	}
}

type warehouseRequest struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
}

// Create handles POST /sellers/:sellerId/warehouses
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req warehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	warehouse, err := h.service.Create(c.Request.Context(),
		c.Param("sellerId"), req.WarehouseID, req.Name, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

// List handles GET /sellers/:sellerId/warehouses
func (h *WarehouseHandler) List(c *gin.Context) {
	warehouses, err := h.service.List(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses, "count": len(warehouses)})
}

// Get handles GET /sellers/:sellerId/warehouses/:warehouseId
func (h *WarehouseHandler) Get(c *gin.Context) {
	warehouse, err := h.service.Get(c.Request.Context(), c.Param("sellerId"), c.Param("warehouseId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

// Delete handles DELETE /sellers/:sellerId/warehouses/:warehouseId
func (h *WarehouseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("sellerId"), c.Param("warehouseId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type warehouseLinkRequest struct {
	Marketplace            string `json:"marketplace" binding:"required"`
	MarketplaceWarehouseID string `json:"marketplaceWarehouseId" binding:"required"`
}

// Link handles POST /sellers/:sellerId/warehouses/:warehouseId/links
func (h *WarehouseHandler) Link(c *gin.Context) {
	var req warehouseLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	warehouse, err := h.service.Link(c.Request.Context(),
		c.Param("sellerId"), c.Param("warehouseId"),
		domain.Marketplace(req.Marketplace), req.MarketplaceWarehouseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}
