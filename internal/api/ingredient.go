package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalstack/formula-backend/internal/service"
)

type IngredientHandler struct {
	catalogService *service.CatalogService
}

func NewIngredientHandler(catalogService *service.CatalogService) *IngredientHandler {
	return &IngredientHandler{
		catalogService: catalogService,
	}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("", h.ListIngredients)
	}
}

func (h *IngredientHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.catalogService.ListIngredients(c.Request.Context(), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ingredients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients})
}
