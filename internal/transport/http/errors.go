package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// respondError переводит доменную ошибку в HTTP статус и JSON-тело.
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case domain.IsInsufficientStock(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrIdempotencyKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrderFinal),
		errors.Is(err, domain.ErrLineAlreadyReturned),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrSlugTaken),
		errors.Is(err, domain.ErrOrderExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLineNotReturnable),
		errors.Is(err, domain.ErrPartialReturnUnsupported),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrLinesRequired),
		errors.Is(err, domain.ErrLineQtyInvalid),
		errors.Is(err, domain.ErrLineAmountNegative),
		errors.Is(err, domain.ErrLineDuplicateProduct),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrInvalidLineItem),
		errors.Is(err, domain.ErrPaymentMethodInvalid),
		errors.Is(err, domain.ErrPaymentAmountNegative),
		errors.Is(err, domain.ErrPaymentTaxNegative),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrProductPriceNegative),
		errors.Is(err, domain.ErrProductQuantityNegative),
		errors.Is(err, domain.ErrUserNameRequired),
		errors.Is(err, domain.ErrUserEmailRequired),
		errors.Is(err, domain.ErrUserRoleInvalid),
		errors.Is(err, domain.ErrIdempotencyKeyRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
