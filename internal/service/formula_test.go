package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/database"
	"github.com/vitalstack/formula-backend/internal/models"
)

func setupFormulaTest(t *testing.T) (*FormulaService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	seed := []models.Ingredient{
		{Name: "Vitamin C", DoseMg: 400, Category: "vitamin"},
		{Name: "Magnesium Glycinate", DoseMg: 400, Category: "mineral"},
		{Name: "Ashwagandha", DoseMg: 600, Category: "adaptogen"},
		{Name: "L-Theanine", DoseMg: 200, Category: "amino-acid"},
		{Name: "Creatine Monohydrate", DoseMg: 3000, Category: "amino-acid"},
		{Name: "Omega-3 Fish Oil", DoseMg: 1000, Category: "fatty-acid"},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	catalog := NewCatalogService(db, nil, nil)
	notifier := NewNotificationService(db, nil)
	return NewFormulaService(db, catalog, notifier, nil), db
}

func entry(name string, amountMg int) models.IngredientEntry {
	return models.IngredientEntry{Ingredient: name, AmountMg: amountMg, Unit: "mg"}
}

func TestCreateCustomSingleIngredient(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "Morning Stack",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	assert.Equal(t, 400, formula.TotalMg)
	assert.Equal(t, 1, formula.Version)
	assert.True(t, formula.UserCreated)
	assert.NotEmpty(t, formula.Disclaimers)
	assert.Equal(t, "Morning Stack", formula.Name)
}

func TestCreateCustomCanonicalDoseFallback(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	// No explicit amount: the catalog canonical dose applies
	formula, err := svc.CreateCustom(context.Background(), userID, "",
		nil, []models.IngredientEntry{{Ingredient: "Ashwagandha"}})
	require.NoError(t, err)
	assert.Equal(t, 600, formula.TotalMg)
}

func TestCreateCustomEmpty(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	_, err := svc.CreateCustom(context.Background(), uuid.New(), "", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyFormula)
}

func TestCreateCustomUnknownIngredient(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	_, err := svc.CreateCustom(context.Background(), uuid.New(), "",
		[]models.IngredientEntry{entry("Unobtainium", 100)}, nil)

	var invalid *InvalidIngredientError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Unobtainium", invalid.Name)
}

func TestCreateCustomExceedsLimit(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	_, err := svc.CreateCustom(context.Background(), uuid.New(), "",
		[]models.IngredientEntry{entry("Creatine Monohydrate", 3000), entry("Omega-3 Fish Oil", 3000)}, nil)

	var exceeds *DosageExceedsLimitError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 6000, exceeds.TotalMg)
	assert.Equal(t, MaxTotalDosageMg, exceeds.LimitMg)
	assert.Contains(t, err.Error(), "6000")
	assert.Contains(t, err.Error(), "5500")
}

func TestCreateCustomTooLow(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	_, err := svc.CreateCustom(context.Background(), uuid.New(), "",
		[]models.IngredientEntry{entry("Vitamin C", 50)}, nil)

	var tooLow *DosageTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, 50, tooLow.TotalMg)
	assert.Equal(t, MinTotalDosageMg, tooLow.MinMg)
}

func TestCreateCustomTooManyIngredients(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	entries := make([]models.IngredientEntry, MaxIngredientCount+1)
	for i := range entries {
		entries[i] = entry("Vitamin C", 10)
	}

	_, err := svc.CreateCustom(context.Background(), uuid.New(), "", entries, nil)

	var tooMany *TooManyIngredientsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, MaxIngredientCount+1, tooMany.Count)
}

func TestCreateFromConsultation(t *testing.T) {
	svc, db := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateFromConsultation(context.Background(), userID,
		[]models.IngredientEntry{entry("Magnesium Glycinate", 400), entry("Ashwagandha", 600)},
		[]models.IngredientEntry{entry("L-Theanine", 200)},
		"Stress support protocol", "", []string{"Avoid combining with sedatives"})
	require.NoError(t, err)

	assert.Equal(t, 1200, formula.TotalMg)
	assert.Equal(t, 1, formula.Version)
	assert.False(t, formula.UserCreated)
	assert.Equal(t, "Stress support protocol", formula.Rationale)

	// Consultation hand-off emits a notification but no change-log row
	var changeCount int64
	require.NoError(t, db.Model(&models.FormulaVersionChange{}).Count(&changeCount).Error)
	assert.Zero(t, changeCount)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	assert.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypeFormulaUpdate, notifications[0].Type)
}

func TestVersionsAreMonotonic(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateCustom(context.Background(), userID, fmt.Sprintf("Stack %d", i+1),
			[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
		require.NoError(t, err)
	}

	history, err := svc.GetHistory(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, formula := range history {
		assert.Equal(t, i+1, formula.Version)
	}
}

func TestVersionsIndependentAcrossUsers(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userA := uuid.New()
	userB := uuid.New()

	a, err := svc.CreateCustom(context.Background(), userA, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)
	b, err := svc.CreateCustom(context.Background(), userB, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Version)
	assert.Equal(t, 1, b.Version)
}

func TestCustomizeMergesOverlay(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Magnesium Glycinate", 400)}, nil)
	require.NoError(t, err)

	updated, err := svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("L-Theanine", 200)})
	require.NoError(t, err)

	// Same version, updated total, overlay recorded
	assert.Equal(t, formula.Version, updated.Version)
	assert.Equal(t, 600, updated.TotalMg)

	var overlay models.CustomizationOverlay
	require.NoError(t, json.Unmarshal(updated.UserCustomizations, &overlay))
	require.Len(t, overlay.Individuals, 1)
	assert.Equal(t, "L-Theanine", overlay.Individuals[0].Ingredient)

	history, err := svc.GetHistory(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCustomizeRepeatedMergesAccumulate(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateFromConsultation(context.Background(), userID,
		[]models.IngredientEntry{entry("Creatine Monohydrate", 3000), entry("Omega-3 Fish Oil", 1000)},
		nil, "", "", nil)
	require.NoError(t, err)
	require.Equal(t, 4000, formula.TotalMg)

	_, err = svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("Ashwagandha", 600)})
	require.NoError(t, err)

	updated, err := svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("L-Theanine", 200)})
	require.NoError(t, err)

	// Both merges survive: the second read the overlay and total the first wrote
	assert.Equal(t, 4800, updated.TotalMg)
	var overlay models.CustomizationOverlay
	require.NoError(t, json.Unmarshal(updated.UserCustomizations, &overlay))
	require.Len(t, overlay.Individuals, 2)
	assert.Equal(t, "Ashwagandha", overlay.Individuals[0].Ingredient)
	assert.Equal(t, "L-Theanine", overlay.Individuals[1].Ingredient)

	// The ceiling check runs against the accumulated total, not the original
	_, err = svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("Omega-3 Fish Oil", 1000)})
	var exceeds *DosageExceedsLimitError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 5800, exceeds.TotalMg)
}

func TestCustomizeExceedingLimitLeavesRowUnchanged(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateFromConsultation(context.Background(), userID,
		[]models.IngredientEntry{entry("Creatine Monohydrate", 3000), entry("Omega-3 Fish Oil", 1950)},
		nil, "", "", nil)
	require.NoError(t, err)
	require.Equal(t, 4950, formula.TotalMg)

	_, err = svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("Ashwagandha", 700)})

	var exceeds *DosageExceedsLimitError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 5650, exceeds.TotalMg)

	reloaded, err := svc.GetVersion(context.Background(), userID, formula.ID)
	require.NoError(t, err)
	assert.Equal(t, 4950, reloaded.TotalMg)
	assert.Empty(t, reloaded.UserCustomizations)
}

func TestCustomizeUnknownIngredient(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	_, err = svc.Customize(context.Background(), userID, formula.ID,
		nil, []models.IngredientEntry{entry("Moon Dust", 100)})

	var invalid *InvalidIngredientError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Moon Dust", invalid.Name)
}

func TestRevertCreatesNewVersion(t *testing.T) {
	svc, db := setupFormulaTest(t)
	userID := uuid.New()

	v1, err := svc.CreateFromConsultation(context.Background(), userID,
		[]models.IngredientEntry{entry("Creatine Monohydrate", 3000), entry("Omega-3 Fish Oil", 1500)},
		nil, "", "", nil)
	require.NoError(t, err)
	require.Equal(t, 4500, v1.TotalMg)

	_, err = svc.CreateCustom(context.Background(), userID, "Lighter stack",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	v3, err := svc.Revert(context.Background(), userID, v1.ID, "the new stack upset my stomach")
	require.NoError(t, err)

	assert.Equal(t, 3, v3.Version)
	assert.Equal(t, 4500, v3.TotalMg)
	assert.Equal(t, v1.Bases, v3.Bases)
	assert.True(t, strings.Contains(v3.Notes, "Reverted to v1"))

	var changes []models.FormulaVersionChange
	require.NoError(t, db.Where("formula_id = ?", v3.ID).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Summary, "Reverted to version 1")
	assert.Equal(t, "the new stack upset my stomach", changes[0].Rationale)
}

func TestRevertPreservesCustomizationOverlay(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	v1, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	customized, err := svc.Customize(context.Background(), userID, v1.ID,
		nil, []models.IngredientEntry{entry("L-Theanine", 200)})
	require.NoError(t, err)
	require.Equal(t, 600, customized.TotalMg)

	reverted, err := svc.Revert(context.Background(), userID, v1.ID, "back to basics")
	require.NoError(t, err)

	// The clone carries the overlay, so its total still equals the
	// ingredient sum across bases, additions and customizations
	assert.Equal(t, 600, reverted.TotalMg)
	require.NotEmpty(t, reverted.UserCustomizations)
	var overlay models.CustomizationOverlay
	require.NoError(t, json.Unmarshal(reverted.UserCustomizations, &overlay))
	require.Len(t, overlay.Individuals, 1)
	assert.Equal(t, "L-Theanine", overlay.Individuals[0].Ingredient)

	baseSum := 0
	for _, e := range reverted.Bases {
		baseSum += e.AmountMg
	}
	for _, e := range reverted.Additions {
		baseSum += e.AmountMg
	}
	for _, e := range overlay.Bases {
		baseSum += e.AmountMg
	}
	for _, e := range overlay.Individuals {
		baseSum += e.AmountMg
	}
	assert.Equal(t, reverted.TotalMg, baseSum)
}

func TestRevertLegacyDosageRejected(t *testing.T) {
	svc, db := setupFormulaTest(t)
	userID := uuid.New()

	// Simulate a row created before the current ceiling existed
	legacy := models.Formula{
		UserID:  userID,
		Version: 1,
		Bases:   models.IngredientList{entry("Creatine Monohydrate", 6200)},
		TotalMg: 6200,
	}
	require.NoError(t, db.Create(&legacy).Error)

	_, err := svc.Revert(context.Background(), userID, legacy.ID, "back to the old days")

	var legacyErr *LegacyDosageError
	require.ErrorAs(t, err, &legacyErr)
	assert.Equal(t, 6200, legacyErr.TotalMg)
	assert.Equal(t, MaxTotalDosageMg, legacyErr.LimitMg)
}

func TestCompare(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	a, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Magnesium Glycinate", 400), entry("Vitamin C", 400)},
		[]models.IngredientEntry{entry("L-Theanine", 200)})
	require.NoError(t, err)

	b, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Magnesium Glycinate", 300), entry("Ashwagandha", 600)},
		[]models.IngredientEntry{entry("L-Theanine", 200)})
	require.NoError(t, err)

	comparison, err := svc.Compare(context.Background(), userID, a.ID, b.ID)
	require.NoError(t, err)

	assert.Equal(t, b.TotalMg-a.TotalMg, comparison.TotalMgChange)
	require.Len(t, comparison.Bases.Added, 1)
	assert.Equal(t, "Ashwagandha", comparison.Bases.Added[0].Ingredient)
	require.Len(t, comparison.Bases.Removed, 1)
	assert.Equal(t, "Vitamin C", comparison.Bases.Removed[0].Ingredient)
	require.Len(t, comparison.Bases.Modified, 1)
	assert.Equal(t, 400, comparison.Bases.Modified[0].FromMg)
	assert.Equal(t, 300, comparison.Bases.Modified[0].ToMg)
	assert.Empty(t, comparison.Additions.Added)
	assert.Empty(t, comparison.Additions.Removed)
}

func TestCompareSymmetry(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	a, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)
	b, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Ashwagandha", 600)}, nil)
	require.NoError(t, err)

	forward, err := svc.Compare(context.Background(), userID, a.ID, b.ID)
	require.NoError(t, err)
	backward, err := svc.Compare(context.Background(), userID, b.ID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, forward.TotalMgChange, -backward.TotalMgChange)
}

func TestRename(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "Old name",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	renamed, err := svc.Rename(context.Background(), userID, formula.ID, "  Recovery Stack  ")
	require.NoError(t, err)
	assert.Equal(t, "Recovery Stack", renamed.Name)
	assert.Equal(t, formula.Version, renamed.Version)
}

func TestRenameWhitespaceOnly(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	_, err = svc.Rename(context.Background(), userID, formula.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Rename(context.Background(), userID, formula.ID, strings.Repeat("x", 101))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRenameCountsCharactersNotBytes(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	// 100 two-byte characters: within the 100-character bound
	name := strings.Repeat("é", 100)
	renamed, err := svc.Rename(context.Background(), userID, formula.ID, name)
	require.NoError(t, err)
	assert.Equal(t, name, renamed.Name)

	_, err = svc.Rename(context.Background(), userID, formula.ID, strings.Repeat("é", 101))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestArchiveRestoreLifecycle(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	archived, err := svc.Archive(context.Background(), userID, formula.ID)
	require.NoError(t, err)
	assert.NotNil(t, archived.ArchivedAt)

	// Archiving twice always fails the same way
	for i := 0; i < 3; i++ {
		_, err = svc.Archive(context.Background(), userID, formula.ID)
		assert.ErrorIs(t, err, ErrAlreadyArchived)
	}

	restored, err := svc.Restore(context.Background(), userID, formula.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.ArchivedAt)

	_, err = svc.Restore(context.Background(), userID, formula.ID)
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestGetCurrentFormulaSkipsArchived(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	v1, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)
	v2, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Ashwagandha", 600)}, nil)
	require.NoError(t, err)

	current, err := svc.GetCurrentFormula(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)

	_, err = svc.Archive(context.Background(), userID, v2.ID)
	require.NoError(t, err)

	current, err = svc.GetCurrentFormula(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, current.ID)

	_, err = svc.Archive(context.Background(), userID, v1.ID)
	require.NoError(t, err)

	_, err = svc.GetCurrentFormula(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNoCurrentFormula)

	// Archived rows stay readable by id
	archived, err := svc.GetVersion(context.Background(), userID, v2.ID)
	require.NoError(t, err)
	assert.NotNil(t, archived.ArchivedAt)
}

func TestGetCurrentFormulaNoHistory(t *testing.T) {
	svc, _ := setupFormulaTest(t)

	_, err := svc.GetCurrentFormula(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoCurrentFormula)
}

func TestOwnershipDenied(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	owner := uuid.New()
	stranger := uuid.New()

	formula, err := svc.CreateCustom(context.Background(), owner, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	_, err = svc.GetVersion(context.Background(), stranger, formula.ID)
	assert.ErrorIs(t, err, ErrFormulaNotFound)

	_, err = svc.Rename(context.Background(), stranger, formula.ID, "mine now")
	assert.ErrorIs(t, err, ErrFormulaNotFound)

	_, err = svc.Revert(context.Background(), stranger, formula.ID, "takeover")
	assert.ErrorIs(t, err, ErrFormulaNotFound)

	_, err = svc.Customize(context.Background(), stranger, formula.ID,
		nil, []models.IngredientEntry{entry("L-Theanine", 200)})
	assert.ErrorIs(t, err, ErrFormulaNotFound)
}

func TestListArchived(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	v1, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)
	_, err = svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Ashwagandha", 600)}, nil)
	require.NoError(t, err)

	_, err = svc.Archive(context.Background(), userID, v1.ID)
	require.NoError(t, err)

	archived, err := svc.ListArchived(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, v1.ID, archived[0].ID)
}

func TestGetChanges(t *testing.T) {
	svc, _ := setupFormulaTest(t)
	userID := uuid.New()

	v1, err := svc.CreateCustom(context.Background(), userID, "",
		[]models.IngredientEntry{entry("Vitamin C", 400)}, nil)
	require.NoError(t, err)

	reverted, err := svc.Revert(context.Background(), userID, v1.ID, "roll back")
	require.NoError(t, err)

	changes, err := svc.GetChanges(context.Background(), userID, reverted.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, reverted.ID, changes[0].FormulaID)

	// The target itself accumulated no change rows
	changes, err = svc.GetChanges(context.Background(), userID, v1.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}
