package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalstack/formula-backend/internal/service"
)

// writeServiceError maps engine errors to stable HTTP responses. Validation
// failures carry the human-readable message produced by the service layer.
func writeServiceError(c *gin.Context, err error) {
	var (
		invalidIngredient *service.InvalidIngredientError
		tooMany           *service.TooManyIngredientsError
		exceedsLimit      *service.DosageExceedsLimitError
		tooLow            *service.DosageTooLowError
		legacy            *service.LegacyDosageError
	)

	switch {
	case errors.Is(err, service.ErrFormulaNotFound),
		errors.Is(err, service.ErrNoCurrentFormula):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyFormula),
		errors.Is(err, service.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyArchived),
		errors.Is(err, service.ErrNotArchived):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &invalidIngredient),
		errors.As(err, &tooMany),
		errors.As(err, &exceedsLimit),
		errors.As(err, &tooLow),
		errors.As(err, &legacy):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
