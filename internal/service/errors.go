package service

import (
	"errors"
	"fmt"
)

var (
	// ErrFormulaNotFound covers both "no such formula" and "owned by
	// someone else" so callers cannot probe for existence.
	ErrFormulaNotFound = errors.New("formula not found")

	// ErrNoCurrentFormula is returned when a user has no active formula.
	ErrNoCurrentFormula = errors.New("no current formula")

	ErrEmptyFormula    = errors.New("formula must contain at least one ingredient")
	ErrAlreadyArchived = errors.New("formula is already archived")
	ErrNotArchived     = errors.New("formula is not archived")
	ErrInvalidName     = errors.New("formula name must be between 1 and 100 characters")
)

// InvalidIngredientError reports an ingredient the catalog does not
// recognize.
type InvalidIngredientError struct {
	Name string
}

func (e *InvalidIngredientError) Error() string {
	return fmt.Sprintf("invalid ingredient: %s", e.Name)
}

// TooManyIngredientsError reports a from-scratch build over the ingredient
// cap.
type TooManyIngredientsError struct {
	Count      int
	LimitCount int
}

func (e *TooManyIngredientsError) Error() string {
	return fmt.Sprintf("formula contains %d ingredients, the maximum is %d", e.Count, e.LimitCount)
}

// DosageExceedsLimitError reports a computed total above the safety ceiling.
type DosageExceedsLimitError struct {
	TotalMg int
	LimitMg int
}

func (e *DosageExceedsLimitError) Error() string {
	return fmt.Sprintf("total dosage %dmg exceeds the maximum of %dmg", e.TotalMg, e.LimitMg)
}

// DosageTooLowError reports a computed total below the effective minimum.
type DosageTooLowError struct {
	TotalMg int
	MinMg   int
}

func (e *DosageTooLowError) Error() string {
	return fmt.Sprintf("total dosage %dmg is below the minimum of %dmg", e.TotalMg, e.MinMg)
}

// LegacyDosageError reports a revert target that predates the current
// ceiling and is no longer legal.
type LegacyDosageError struct {
	Version int
	TotalMg int
	LimitMg int
}

func (e *LegacyDosageError) Error() string {
	return fmt.Sprintf("version %d totals %dmg which exceeds the current maximum of %dmg and cannot be restored", e.Version, e.TotalMg, e.LimitMg)
}
