package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sellerops/marketplace-hub/internal/domain"
	apperrors "github.com/sellerops/marketplace-hub/internal/pkg/errors"
	"github.com/sellerops/marketplace-hub/internal/pkg/middleware"
)

// respondError translates domain and marketplace errors into the API error
// envelope. Anything unrecognized renders as an internal error.
func respondError(c *gin.Context, err error) {
	middleware.ErrorResponse(c, mapError(err))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrWarehouseNotFound),
		errors.Is(err, domain.ErrCredentialNotFound),
		errors.Is(err, domain.ErrMappingNotFound):
		return apperrors.New(apperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrWarehouseNotLinked):
		return apperrors.New(apperrors.ErrCodeValidation, err.Error())
	}

	if mpErr, ok := domain.AsMarketplaceError(err); ok {
		switch mpErr.Kind {
		case domain.ErrKindValidation:
			return apperrors.New(apperrors.ErrCodeValidation, mpErr.Error())
		case domain.ErrKindAuth:
			return apperrors.New(apperrors.ErrCodeUnauthorized, mpErr.Error())
		case domain.ErrKindRateLimited:
			return apperrors.New(apperrors.ErrCodeRateLimited, mpErr.Error())
		case domain.ErrKindUnavailable:
			return apperrors.New(apperrors.ErrCodeUnavailable, mpErr.Error())
		default:
			return apperrors.New(apperrors.ErrCodeUpstreamFailure, mpErr.Error())
		}
	}

	return err
}
