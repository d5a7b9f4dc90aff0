package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/models"
)

const catalogCacheTTL = time.Hour

// CatalogService resolves ingredient names against the catalog table with a
// Redis read-through cache. The redis client is optional; without it every
// lookup hits the database.
type CatalogService struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

// IsValidIngredient reports whether name is a recognized catalog entry.
func (s *CatalogService) IsValidIngredient(ctx context.Context, name string) bool {
	_, ok := s.GetDose(ctx, name)
	return ok
}

// GetDose returns the canonical dose in milligrams for a catalog entry.
// Lookup is case-insensitive.
func (s *CatalogService) GetDose(ctx context.Context, name string) (int, bool) {
	key := fmt.Sprintf("catalog:dose:%s", strings.ToLower(strings.TrimSpace(name)))

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			dose, convErr := strconv.Atoi(cached)
			if convErr == nil {
				return dose, true
			}
		} else if err != redis.Nil {
			s.logger.Warn("catalog cache read failed", zap.String("ingredient", name), zap.Error(err))
		}
	}

	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&ingredient).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Warn("catalog lookup failed", zap.String("ingredient", name), zap.Error(err))
		}
		return 0, false
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, strconv.Itoa(ingredient.DoseMg), catalogCacheTTL).Err(); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("ingredient", name), zap.Error(err))
		}
	}

	return ingredient.DoseMg, true
}

// ListIngredients returns the full catalog, optionally filtered by category.
func (s *CatalogService) ListIngredients(ctx context.Context, category string) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	query := s.db.WithContext(ctx).Order("name")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
