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

// CredentialHandler exposes credential management. Responses never carry
// secret material.
type CredentialHandler struct {
	service *application.CredentialService
	logger  *logging.Logger
}

// NewCredentialHandler creates a credential handler
func NewCredentialHandler(service *application.CredentialService, logger *logging.Logger) *CredentialHandler {
	return &CredentialHandler{service: service, logger: logger}
}

// RegisterRoutes registers credential routes
func (h *CredentialHandler) RegisterRoutes(r *gin.RouterGroup) {
	credentials := r.Group("/sellers/:sellerId/credentials")
	{
		credentials.PUT("/:marketplace", h.Save)
		credentials.GET("/:marketplace", h.Get)
		credentials.DELETE("/:marketplace", h.Delete)
	}
}

type credentialRequest struct {
	ClientID   string `json:"clientId"`
	APIKey     string `json:"apiKey" binding:"required"`
	CampaignID string `json:"campaignId"`
}

// Save handles PUT /sellers/:sellerId/credentials/:marketplace
func (h *CredentialHandler) Save(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ErrorResponse(c, apperrors.Validation(err.Error()))
		return
	}

	dto, err := h.service.Save(c.Request.Context(), application.SaveCredentialCommand{
		SellerID:    c.Param("sellerId"),
		Marketplace: domain.Marketplace(c.Param("marketplace")),
		ClientID:    req.ClientID,
		APIKey:      req.APIKey,
		CampaignID:  req.CampaignID,
	})
	if err != nil {
		h.logger.WithError(err).Error("saving credential",
			"seller_id", c.Param("sellerId"),
			"marketplace", c.Param("marketplace"))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto)
}

// Get handles GET /sellers/:sellerId/credentials/:marketplace
func (h *CredentialHandler) Get(c *gin.Context) {
	dto, err := h.service.Get(c.Request.Context(),
		c.Param("sellerId"), domain.Marketplace(c.Param("marketplace")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Delete handles DELETE /sellers/:sellerId/credentials/:marketplace
func (h *CredentialHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(),
		c.Param("sellerId"), domain.Marketplace(c.Param("marketplace")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
