package service

import (
	"context"

	"github.com/vitalstack/formula-backend/internal/models"
)

// Safety ceilings applied to every stored formula regardless of how it was
// produced.
const (
	// MaxTotalDosageMg is the hard ceiling on a formula's daily total.
	MaxTotalDosageMg = 5500
	// DosageToleranceMg absorbs rounding drift from catalog lookups when
	// re-checking stored rows.
	DosageToleranceMg = 50
	// MinTotalDosageMg is the floor for user-built formulas.
	MinTotalDosageMg = 100
	// MaxIngredientCount caps bases plus additions on from-scratch builds.
	MaxIngredientCount = 50
)

// ResolveAndSum resolves each entry against the ingredient catalog and sums
// the doses in whole milligrams. Entries carrying an explicit amount use it;
// the rest fall back to the catalog canonical dose. Unknown ingredients are
// collected in unresolved and excluded from the sum; callers must treat a
// non-empty unresolved list as a hard failure.
func (s *FormulaService) ResolveAndSum(ctx context.Context, entries []models.IngredientEntry) (int, []string) {
	totalMg := 0
	var unresolved []string
	for _, entry := range entries {
		if !s.catalog.IsValidIngredient(ctx, entry.Ingredient) {
			unresolved = append(unresolved, entry.Ingredient)
			continue
		}
		if entry.AmountMg > 0 {
			totalMg += entry.AmountMg
			continue
		}
		dose, ok := s.catalog.GetDose(ctx, entry.Ingredient)
		if !ok {
			unresolved = append(unresolved, entry.Ingredient)
			continue
		}
		totalMg += dose
	}
	return totalMg, unresolved
}
