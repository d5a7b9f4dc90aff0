package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitalstack/formula-backend/internal/models"
	"github.com/vitalstack/formula-backend/internal/types"
)

// IngredientResolver is the authority on which ingredient names are legal
// and what canonical dose they carry.
type IngredientResolver interface {
	IsValidIngredient(ctx context.Context, name string) bool
	GetDose(ctx context.Context, name string) (int, bool)
}

// FormulaNotifier receives fire-and-forget formula lifecycle events.
type FormulaNotifier interface {
	NotifyFormulaUpdate(ctx context.Context, userID uuid.UUID, title, content, actionLink string)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, name, email, password, username string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// IFormulaService defines the interface for formula ledger operations
type IFormulaService interface {
	CreateFromConsultation(ctx context.Context, userID uuid.UUID, bases, additions []models.IngredientEntry, rationale, notes string, warnings []string) (*models.Formula, error)
	CreateCustom(ctx context.Context, userID uuid.UUID, name string, bases, individuals []models.IngredientEntry) (*models.Formula, error)
	Customize(ctx context.Context, userID, formulaID uuid.UUID, addedBases, addedIndividuals []models.IngredientEntry) (*models.Formula, error)
	Revert(ctx context.Context, userID, targetID uuid.UUID, reason string) (*models.Formula, error)
	Compare(ctx context.Context, userID, fromID, toID uuid.UUID) (*FormulaComparison, error)
	Rename(ctx context.Context, userID, formulaID uuid.UUID, newName string) (*models.Formula, error)
	Archive(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error)
	Restore(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error)
	GetCurrentFormula(ctx context.Context, userID uuid.UUID) (*models.Formula, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]models.Formula, error)
	GetVersion(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error)
	ListArchived(ctx context.Context, userID uuid.UUID) ([]models.Formula, error)
	GetChanges(ctx context.Context, userID, formulaID uuid.UUID) ([]models.FormulaVersionChange, error)
}

// INotificationService defines the interface for notification operations
type INotificationService interface {
	FormulaNotifier
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}
