package types

// IngredientEntryRequest is one dosed ingredient in a request body. AmountMg
// of zero defers to the catalog canonical dose.
type IngredientEntryRequest struct {
	Ingredient string `json:"ingredient" binding:"required"`
	AmountMg   int    `json:"amount_mg" binding:"min=0"`
	Unit       string `json:"unit"`
}

// CreateCustomFormulaRequest is the body for a user-built formula.
type CreateCustomFormulaRequest struct {
	Name        string                   `json:"name"`
	Bases       []IngredientEntryRequest `json:"bases"`
	Individuals []IngredientEntryRequest `json:"individuals"`
}

// CreateConsultationFormulaRequest is the AI-consultation hand-off body.
type CreateConsultationFormulaRequest struct {
	Bases     []IngredientEntryRequest `json:"bases" binding:"required"`
	Additions []IngredientEntryRequest `json:"additions"`
	Rationale string                   `json:"rationale"`
	Notes     string                   `json:"notes"`
	Warnings  []string                 `json:"warnings"`
}

// CustomizeFormulaRequest adds ingredients on top of an existing version.
type CustomizeFormulaRequest struct {
	Bases       []IngredientEntryRequest `json:"bases"`
	Individuals []IngredientEntryRequest `json:"individuals"`
}

// RevertFormulaRequest clones a previous version into a new one.
type RevertFormulaRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RenameFormulaRequest updates the display name in place.
type RenameFormulaRequest struct {
	Name string `json:"name" binding:"required"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username" binding:"required,max=50"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
