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

// CatalogHandler exposes category mappings and marketplace category browsing
type CatalogHandler struct {
	service *application.CatalogService
	logger  *logging.Logger
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(service *application.CatalogService, logger *logging.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: logger}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	sellers := r.Group("/sellers/:sellerId")
	{
		mappings := sellers.Group("/category-mappings")
		{
			mappings.PUT("", h.SaveMapping)
			mappings.GET("", h.ListMappings)
			mappings.GET("/:name", h.GetMapping)
			mappings.DELETE("/:name", h.DeleteMapping)
		}

		marketplace := sellers.Group("/:marketplace")
		{
			marketplace.GET("/categories", h.GetCategories)
			marketplace.GET("/categories/search", h.SearchCategories)
			marketplace.GET("/categories/:categoryId/characteristics", h.GetCharacteristics)
		}
	}
}

type mappingRequest struct {
	Name         string                                                   `json:"name" binding:"required"`
	Attributes   []string                                                 `json:"attributes"`
	Marketplaces map[domain.Marketplace]domain.MarketplaceCategoryMapping `json:"marketplaces"`
}

// SaveMapping handles PUT /sellers/:sellerId/category-mappings
func (h *CatalogHandler) SaveMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	mapping, err := h.service.SaveMapping(c.Request.Context(), application.SaveMappingCommand{
		SellerID:     c.Param("sellerId"),
		Name:         req.Name,
		Attributes:   req.Attributes,
		Marketplaces: req.Marketplaces,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapping)
}

// ListMappings handles GET /sellers/:sellerId/category-mappings
func (h *CatalogHandler) ListMappings(c *gin.Context) {
	mappings, err := h.service.ListMappings(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": mappings, "count": len(mappings)})
}

// GetMapping handles GET /sellers/:sellerId/category-mappings/:name
func (h *CatalogHandler) GetMapping(c *gin.Context) {
	mapping, err := h.service.GetMapping(c.Request.Context(), c.Param("sellerId"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// DeleteMapping handles DELETE /sellers/:sellerId/category-mappings/:name
func (h *CatalogHandler) DeleteMapping(c *gin.Context) {
	if err := h.service.DeleteMapping(c.Request.Context(), c.Param("sellerId"), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCategories handles GET /sellers/:sellerId/:marketplace/categories
func (h *CatalogHandler) GetCategories(c *gin.Context) {
	categories, err := h.service.GetCategories(c.Request.Context(),
		c.Param("sellerId"), domain.Marketplace(c.Param("marketplace")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// SearchCategories handles GET /sellers/:sellerId/:marketplace/categories/search
func (h *CatalogHandler) SearchCategories(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		middleware.ErrorResponse(c, apperrors.Validation("query parameter q is required"))
		return
	}

	categories, err := h.service.SearchCategories(c.Request.Context(),
		c.Param("sellerId"), domain.Marketplace(c.Param("marketplace")), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCharacteristics handles
// GET /sellers/:sellerId/:marketplace/categories/:categoryId/characteristics
func (h *CatalogHandler) GetCharacteristics(c *gin.Context) {
	characteristics, err := h.service.GetCategoryCharacteristics(c.Request.Context(),
		c.Param("sellerId"), domain.Marketplace(c.Param("marketplace")), c.Param("categoryId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characteristics": characteristics})
}
