package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitalstack/formula-backend/internal/api"
	"github.com/vitalstack/formula-backend/internal/middleware"
	"github.com/vitalstack/formula-backend/internal/router"
	"github.com/vitalstack/formula-backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
}

// NewServer creates a new server instance
func NewServer(
	authService service.IAuthService,
	formulaService service.IFormulaService,
	catalogService *service.CatalogService,
	notificationService service.INotificationService,
	mutationLimiter *middleware.RateLimiter,
) *Server {
	engine := router.SetupRouter(
		api.NewAuthHandler(authService),
		api.NewFormulaHandler(formulaService),
		api.NewIngredientHandler(catalogService),
		api.NewNotificationHandler(notificationService),
		authService,
		mutationLimiter,
	)

	return &Server{
		router: engine,
	}
}

// Start starts the server and blocks until shutdown
func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.http.Shutdown(ctx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
