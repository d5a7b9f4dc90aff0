package database

import (
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/models"
)

// Migrate applies the GORM schema for every model in dependency order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Ingredient{},
		&models.Formula{},
		&models.FormulaVersionChange{},
		&models.Notification{},
	)
}
