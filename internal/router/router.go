package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vitalstack/formula-backend/internal/api"
	"github.com/vitalstack/formula-backend/internal/middleware"
	"github.com/vitalstack/formula-backend/internal/service"
)

// SetupRouter configures the application routes
func SetupRouter(
	authHandler *api.AuthHandler,
	formulaHandler *api.FormulaHandler,
	ingredientHandler *api.IngredientHandler,
	notificationHandler *api.NotificationHandler,
	authService service.IAuthService,
	mutationLimiter *middleware.RateLimiter,
) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")

	authHandler.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		ingredientHandler.RegisterRoutes(protected)
		notificationHandler.RegisterRoutes(protected)

		// Formula mutations additionally sit behind the per-user rate limit
		var mutation []gin.HandlerFunc
		if mutationLimiter != nil {
			mutation = append(mutation, mutationLimiter.RateLimitMiddleware())
		}
		formulaHandler.RegisterRoutes(protected, mutation...)
	}

	return router
}
