package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngredientEntry is a single dosed ingredient inside a formula. AmountMg of
// zero means "use the catalog canonical dose".
type IngredientEntry struct {
	Ingredient string `json:"ingredient"`
	AmountMg   int    `json:"amount_mg"`
	Unit       string `json:"unit"`
}

// IngredientList is a custom type for storing ingredient entries in JSONB
type IngredientList []IngredientEntry

// Value implements the driver.Valuer interface
func (l IngredientList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *IngredientList) Scan(value interface{}) error {
	if value == nil {
		*l = IngredientList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Formula is one versioned row in the per-user formula ledger. Rows are
// append-only apart from Name, ArchivedAt and the customization overlay.
type Formula struct {
	ID                 uuid.UUID        `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	UserID             uuid.UUID        `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_version" json:"user_id"`
	Version            int              `gorm:"not null;uniqueIndex:idx_user_version" json:"version"`
	Name               string           `gorm:"size:100" json:"name"`
	Bases              IngredientList   `gorm:"type:jsonb" json:"bases"`
	Additions          IngredientList   `gorm:"type:jsonb" json:"additions"`
	UserCustomizations datatypes.JSON   `gorm:"type:jsonb" json:"user_customizations"`
	TotalMg            int              `gorm:"not null" json:"total_mg"`
	UserCreated        bool             `gorm:"not null;default:false" json:"user_created"`
	Rationale          string           `gorm:"type:text" json:"rationale"`
	Warnings           JSONBStringArray `gorm:"type:jsonb" json:"warnings"`
	Disclaimers        JSONBStringArray `gorm:"type:jsonb" json:"disclaimers"`
	Notes              string           `gorm:"type:text" json:"notes"`
	ArchivedAt         *time.Time       `json:"archived_at"`
}

func (f *Formula) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// CustomizationOverlay is the shape stored in Formula.UserCustomizations.
type CustomizationOverlay struct {
	Bases       IngredientList `json:"bases"`
	Individuals IngredientList `json:"individuals"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FormulaVersionChange is the append-only audit trail explaining why a
// formula version exists.
type FormulaVersionChange struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	FormulaID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"formula_id"`
	Summary   string    `gorm:"type:text;not null" json:"summary"`
	Rationale string    `gorm:"type:text" json:"rationale"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *FormulaVersionChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
