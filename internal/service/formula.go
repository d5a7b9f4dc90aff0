package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/models"
)

// customDisclaimers is attached to every from-scratch formula; these builds
// skip AI review entirely.
var customDisclaimers = models.JSONBStringArray{
	"This formula was built manually and has not been reviewed by the AI consultation.",
	"Consult a healthcare professional before starting any new supplement regimen.",
}

// FormulaService owns the per-user formula ledger: version allocation,
// dosage safety enforcement, the customization overlay and the version
// change log.
type FormulaService struct {
	db       *gorm.DB
	catalog  IngredientResolver
	notifier FormulaNotifier
	logger   *zap.Logger
}

func NewFormulaService(db *gorm.DB, catalog IngredientResolver, notifier FormulaNotifier, logger *zap.Logger) *FormulaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormulaService{
		db:       db,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateFromConsultation persists the ingredient sets composed by the AI
// consultation as the user's next formula version. The catalog check is
// defensive; consultation output is expected to resolve.
func (s *FormulaService) CreateFromConsultation(ctx context.Context, userID uuid.UUID, bases, additions []models.IngredientEntry, rationale, notes string, warnings []string) (*models.Formula, error) {
	entries := append(append([]models.IngredientEntry{}, bases...), additions...)
	totalMg, unresolved := s.ResolveAndSum(ctx, entries)
	if len(unresolved) > 0 {
		return nil, &InvalidIngredientError{Name: unresolved[0]}
	}
	if totalMg > MaxTotalDosageMg {
		return nil, &DosageExceedsLimitError{TotalMg: totalMg, LimitMg: MaxTotalDosageMg}
	}

	formula := &models.Formula{
		UserID:      userID,
		Bases:       bases,
		Additions:   additions,
		TotalMg:     totalMg,
		UserCreated: false,
		Rationale:   rationale,
		Warnings:    warnings,
		Notes:       notes,
	}
	if err := s.createVersioned(ctx, formula); err != nil {
		return nil, err
	}

	s.notifier.NotifyFormulaUpdate(ctx, userID,
		"Your personalized formula is ready",
		fmt.Sprintf("Formula v%d was created from your consultation (%dmg daily total).", formula.Version, formula.TotalMg),
		fmt.Sprintf("/formulas/%s", formula.ID))

	return formula, nil
}

// CreateCustom persists a user-built formula. Validation short-circuits in
// order: empty set, ingredient count, catalog resolution, ceiling, floor.
func (s *FormulaService) CreateCustom(ctx context.Context, userID uuid.UUID, name string, bases, individuals []models.IngredientEntry) (*models.Formula, error) {
	entries := append(append([]models.IngredientEntry{}, bases...), individuals...)
	if len(entries) == 0 {
		return nil, ErrEmptyFormula
	}
	if len(entries) > MaxIngredientCount {
		return nil, &TooManyIngredientsError{Count: len(entries), LimitCount: MaxIngredientCount}
	}
	for _, entry := range entries {
		if !s.catalog.IsValidIngredient(ctx, entry.Ingredient) {
			return nil, &InvalidIngredientError{Name: entry.Ingredient}
		}
	}

	totalMg, unresolved := s.ResolveAndSum(ctx, entries)
	if len(unresolved) > 0 {
		return nil, &InvalidIngredientError{Name: unresolved[0]}
	}
	if totalMg > MaxTotalDosageMg {
		return nil, &DosageExceedsLimitError{TotalMg: totalMg, LimitMg: MaxTotalDosageMg}
	}
	if totalMg < MinTotalDosageMg {
		return nil, &DosageTooLowError{TotalMg: totalMg, MinMg: MinTotalDosageMg}
	}

	formula := &models.Formula{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Bases:       bases,
		Additions:   individuals,
		TotalMg:     totalMg,
		UserCreated: true,
		Disclaimers: customDisclaimers,
	}
	if err := s.createVersioned(ctx, formula); err != nil {
		return nil, err
	}

	s.notifier.NotifyFormulaUpdate(ctx, userID,
		"Formula created",
		fmt.Sprintf("Your custom formula v%d was saved (%dmg daily total).", formula.Version, formula.TotalMg),
		fmt.Sprintf("/formulas/%s", formula.ID))

	return formula, nil
}

// Customize merges additional ingredients into the formula's customization
// overlay. The row keeps its version number; only the overlay and total are
// touched. The read-merge-write runs under the per-user ledger lock so two
// concurrent merges cannot drop each other's entries or check the ceiling
// against a stale total.
func (s *FormulaService) Customize(ctx context.Context, userID, formulaID uuid.UUID, addedBases, addedIndividuals []models.IngredientEntry) (*models.Formula, error) {
	var updated *models.Formula
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUserLedger(tx, userID); err != nil {
			return err
		}

		formula, err := s.loadOwned(ctx, tx, userID, formulaID)
		if err != nil {
			return err
		}

		added := append(append([]models.IngredientEntry{}, addedBases...), addedIndividuals...)
		if len(added) == 0 {
			return ErrEmptyFormula
		}
		for _, entry := range added {
			if !s.catalog.IsValidIngredient(ctx, entry.Ingredient) {
				return &InvalidIngredientError{Name: entry.Ingredient}
			}
		}

		incrementalMg, unresolved := s.ResolveAndSum(ctx, added)
		if len(unresolved) > 0 {
			return &InvalidIngredientError{Name: unresolved[0]}
		}
		newTotalMg := formula.TotalMg + incrementalMg
		if newTotalMg > MaxTotalDosageMg {
			return &DosageExceedsLimitError{TotalMg: newTotalMg, LimitMg: MaxTotalDosageMg}
		}

		var overlay models.CustomizationOverlay
		if len(formula.UserCustomizations) > 0 {
			if err := json.Unmarshal(formula.UserCustomizations, &overlay); err != nil {
				s.logger.Warn("resetting unreadable customization overlay",
					zap.String("formula_id", formulaID.String()), zap.Error(err))
				overlay = models.CustomizationOverlay{}
			}
		}
		overlay.Bases = append(overlay.Bases, addedBases...)
		overlay.Individuals = append(overlay.Individuals, addedIndividuals...)
		overlay.UpdatedAt = time.Now()

		overlayJSON, err := json.Marshal(overlay)
		if err != nil {
			return err
		}

		result := tx.Model(&models.Formula{}).
			Where("id = ? AND user_id = ?", formulaID, userID).
			Updates(map[string]interface{}{
				"user_customizations": overlayJSON,
				"total_mg":            newTotalMg,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrFormulaNotFound
		}

		updated, err = s.loadOwned(ctx, tx, userID, formulaID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Revert clones a previous version into a brand-new one. The target must
// still satisfy the current ceiling; historical rows are not grandfathered.
func (s *FormulaService) Revert(ctx context.Context, userID, targetID uuid.UUID, reason string) (*models.Formula, error) {
	target, err := s.loadOwned(ctx, s.db, userID, targetID)
	if err != nil {
		return nil, err
	}
	if target.TotalMg > MaxTotalDosageMg {
		return nil, &LegacyDosageError{Version: target.Version, TotalMg: target.TotalMg, LimitMg: MaxTotalDosageMg}
	}

	notes := fmt.Sprintf("Reverted to v%d", target.Version)
	if reason != "" {
		notes = fmt.Sprintf("Reverted to v%d: %s", target.Version, reason)
	}

	// The overlay travels with the total: target.TotalMg already includes
	// customized milligrams, so the clone must carry the overlay too or the
	// stored total would no longer match the ingredient sum.
	formula := &models.Formula{
		UserID:             userID,
		Name:               target.Name,
		Bases:              target.Bases,
		Additions:          target.Additions,
		UserCustomizations: target.UserCustomizations,
		TotalMg:            target.TotalMg,
		UserCreated:        target.UserCreated,
		Notes:              notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := s.nextVersion(tx, userID)
		if err != nil {
			return err
		}
		formula.Version = version
		if err := tx.Create(formula).Error; err != nil {
			return err
		}
		change := models.FormulaVersionChange{
			FormulaID: formula.ID,
			Summary: fmt.Sprintf("Reverted to version %d: %d bases, %d additions, %dmg total",
				target.Version, len(target.Bases), len(target.Additions), target.TotalMg),
			Rationale: reason,
		}
		return tx.Create(&change).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyFormulaUpdate(ctx, userID,
		"Formula reverted",
		fmt.Sprintf("Your formula was reverted to v%d as v%d.", target.Version, formula.Version),
		fmt.Sprintf("/formulas/%s", formula.ID))

	return formula, nil
}

// IngredientChange records an amount change for one ingredient.
type IngredientChange struct {
	Ingredient string `json:"ingredient"`
	FromMg     int    `json:"from_mg"`
	ToMg       int    `json:"to_mg"`
}

// ListDiff is the structural difference between two ingredient lists.
type ListDiff struct {
	Added    []models.IngredientEntry `json:"added"`
	Removed  []models.IngredientEntry `json:"removed"`
	Modified []IngredientChange       `json:"modified"`
}

// FormulaComparison is the structural diff between two formula versions.
type FormulaComparison struct {
	FromID        uuid.UUID `json:"from_id"`
	ToID          uuid.UUID `json:"to_id"`
	FromVersion   int       `json:"from_version"`
	ToVersion     int       `json:"to_version"`
	Bases         ListDiff  `json:"bases"`
	Additions     ListDiff  `json:"additions"`
	TotalMgChange int       `json:"total_mg_change"`
}

// Compare diffs two owned versions by ingredient identity; list order is
// irrelevant.
func (s *FormulaService) Compare(ctx context.Context, userID, fromID, toID uuid.UUID) (*FormulaComparison, error) {
	from, err := s.loadOwned(ctx, s.db, userID, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.loadOwned(ctx, s.db, userID, toID)
	if err != nil {
		return nil, err
	}

	return &FormulaComparison{
		FromID:        from.ID,
		ToID:          to.ID,
		FromVersion:   from.Version,
		ToVersion:     to.Version,
		Bases:         diffIngredientLists(from.Bases, to.Bases),
		Additions:     diffIngredientLists(from.Additions, to.Additions),
		TotalMgChange: to.TotalMg - from.TotalMg,
	}, nil
}

func diffIngredientLists(from, to models.IngredientList) ListDiff {
	diff := ListDiff{
		Added:    []models.IngredientEntry{},
		Removed:  []models.IngredientEntry{},
		Modified: []IngredientChange{},
	}

	fromByName := make(map[string]models.IngredientEntry, len(from))
	for _, entry := range from {
		fromByName[entry.Ingredient] = entry
	}
	toByName := make(map[string]models.IngredientEntry, len(to))
	for _, entry := range to {
		toByName[entry.Ingredient] = entry
	}

	for _, entry := range to {
		prev, ok := fromByName[entry.Ingredient]
		if !ok {
			diff.Added = append(diff.Added, entry)
			continue
		}
		if prev.AmountMg != entry.AmountMg {
			diff.Modified = append(diff.Modified, IngredientChange{
				Ingredient: entry.Ingredient,
				FromMg:     prev.AmountMg,
				ToMg:       entry.AmountMg,
			})
		}
	}
	for _, entry := range from {
		if _, ok := toByName[entry.Ingredient]; !ok {
			diff.Removed = append(diff.Removed, entry)
		}
	}

	return diff
}

// Rename updates the display name in place; no version is allocated.
func (s *FormulaService) Rename(ctx context.Context, userID, formulaID uuid.UUID, newName string) (*models.Formula, error) {
	trimmed := strings.TrimSpace(newName)
	if n := utf8.RuneCountInString(trimmed); n == 0 || n > 100 {
		return nil, ErrInvalidName
	}

	result := s.db.WithContext(ctx).
		Model(&models.Formula{}).
		Where("id = ? AND user_id = ?", formulaID, userID).
		Update("name", trimmed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrFormulaNotFound
	}

	return s.loadOwned(ctx, s.db, userID, formulaID)
}

// Archive removes a formula from current-formula resolution. The row stays
// readable by id.
func (s *FormulaService) Archive(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error) {
	formula, err := s.loadOwned(ctx, s.db, userID, formulaID)
	if err != nil {
		return nil, err
	}
	if formula.ArchivedAt != nil {
		return nil, ErrAlreadyArchived
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(formula).
		Where("user_id = ?", userID).
		Update("archived_at", &now).Error; err != nil {
		return nil, err
	}
	formula.ArchivedAt = &now

	s.notifier.NotifyFormulaUpdate(ctx, userID,
		"Formula archived",
		fmt.Sprintf("Formula v%d was archived.", formula.Version),
		fmt.Sprintf("/formulas/%s", formula.ID))

	return formula, nil
}

// Restore clears the archival timestamp.
func (s *FormulaService) Restore(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error) {
	formula, err := s.loadOwned(ctx, s.db, userID, formulaID)
	if err != nil {
		return nil, err
	}
	if formula.ArchivedAt == nil {
		return nil, ErrNotArchived
	}

	if err := s.db.WithContext(ctx).
		Model(formula).
		Where("user_id = ?", userID).
		Update("archived_at", nil).Error; err != nil {
		return nil, err
	}
	formula.ArchivedAt = nil

	s.notifier.NotifyFormulaUpdate(ctx, userID,
		"Formula restored",
		fmt.Sprintf("Formula v%d was restored.", formula.Version),
		fmt.Sprintf("/formulas/%s", formula.ID))

	return formula, nil
}

// GetCurrentFormula returns the highest non-archived version for the user.
func (s *FormulaService) GetCurrentFormula(ctx context.Context, userID uuid.UUID) (*models.Formula, error) {
	var formula models.Formula
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND archived_at IS NULL", userID).
		Order("version DESC").
		First(&formula).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoCurrentFormula
		}
		return nil, err
	}
	return &formula, nil
}

// GetHistory returns every version for the user, archived included, oldest
// first.
func (s *FormulaService) GetHistory(ctx context.Context, userID uuid.UUID) ([]models.Formula, error) {
	var formulas []models.Formula
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("version ASC").
		Find(&formulas).Error
	if err != nil {
		return nil, err
	}
	return formulas, nil
}

// GetVersion returns a single owned version by id, archived or not.
func (s *FormulaService) GetVersion(ctx context.Context, userID, formulaID uuid.UUID) (*models.Formula, error) {
	return s.loadOwned(ctx, s.db, userID, formulaID)
}

// ListArchived returns the user's archived versions, newest first.
func (s *FormulaService) ListArchived(ctx context.Context, userID uuid.UUID) ([]models.Formula, error) {
	var formulas []models.Formula
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND archived_at IS NOT NULL", userID).
		Order("version DESC").
		Find(&formulas).Error
	if err != nil {
		return nil, err
	}
	return formulas, nil
}

// GetChanges returns the version change log for an owned formula.
func (s *FormulaService) GetChanges(ctx context.Context, userID, formulaID uuid.UUID) ([]models.FormulaVersionChange, error) {
	if _, err := s.loadOwned(ctx, s.db, userID, formulaID); err != nil {
		return nil, err
	}
	var changes []models.FormulaVersionChange
	err := s.db.WithContext(ctx).
		Where("formula_id = ?", formulaID).
		Order("created_at ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// loadOwned fetches a formula and verifies ownership in one query. Missing
// rows and foreign rows are indistinguishable to the caller.
func (s *FormulaService) loadOwned(ctx context.Context, db *gorm.DB, userID, formulaID uuid.UUID) (*models.Formula, error) {
	var formula models.Formula
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", formulaID, userID).
		First(&formula).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrFormulaNotFound
		}
		return nil, err
	}
	return &formula, nil
}

// createVersioned allocates the next version for the user and inserts the
// row in one transaction.
func (s *FormulaService) createVersioned(ctx context.Context, formula *models.Formula) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := s.nextVersion(tx, formula.UserID)
		if err != nil {
			return err
		}
		formula.Version = version
		return tx.Create(formula).Error
	})
}

// lockUserLedger takes the per-user advisory lock that serializes every
// read-then-write against the user's ledger. On Postgres the lock is
// transaction-scoped; on other dialects the unique (user_id, version) index
// is the backstop for version allocation.
func lockUserLedger(tx *gorm.DB, userID uuid.UUID) error {
	if tx.Dialector.Name() == "postgres" {
		return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID.String()).Error
	}
	return nil
}

// nextVersion allocates the next version for the user under the ledger lock.
func (s *FormulaService) nextVersion(tx *gorm.DB, userID uuid.UUID) (int, error) {
	if err := lockUserLedger(tx, userID); err != nil {
		return 0, err
	}

	var current int
	err := tx.Model(&models.Formula{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}
