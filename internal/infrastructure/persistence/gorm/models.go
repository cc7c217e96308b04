// Package gorm provides GORM model definitions and repositories for the
// recipe catalog, customer meal history and operation audit trail
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeModel represents the GORM model for catalog recipes. Nutrition
// columns are nullable: a recipe without nutrition data is stored as-is and
// filtered out by the engine.
type RecipeModel struct {
	ID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name  string    `gorm:"type:varchar(200);not null;index"`
	Steps string    `gorm:"type:text"`

	// Nutrition per serving
	Calories      *float64
	Protein       *float64
	Fat           *float64
	Carbohydrates *float64

	Tags   StringSlice `gorm:"type:json"`
	Active bool        `gorm:"not null;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Ingredients []IngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// IngredientModel represents an ingredient line of a recipe
type IngredientModel struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	RecipeID   uuid.UUID `gorm:"type:char(36);not null;index"`
	Name       string    `gorm:"type:varchar(200);not null"`
	IsAllergen bool      `gorm:"not null;default:false"`
	Position   int       `gorm:"not null;default:0"`

	// Relationships
	AllergyCategories []AllergyCategoryModel `gorm:"many2many:ingredient_allergy_categories;joinForeignKey:IngredientID;joinReferences:Category"`
}

// AllergyCategoryModel is a named allergen category such as "peanuts"
type AllergyCategoryModel struct {
	Name string `gorm:"type:varchar(100);primaryKey"`
}

// MealHistoryModel records a recipe served to a customer on a calendar day
type MealHistoryModel struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	CustomerID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_history_slot,priority:1;index:idx_history_window,priority:1"`
	ServedOn   time.Time `gorm:"not null;uniqueIndex:idx_history_slot,priority:2;index:idx_history_window,priority:2"`
	MealType   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_history_slot,priority:3"`
	RecipeID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_history_slot,priority:4"`
	CreatedAt  time.Time
}

// AuditEventModel is one lifecycle event of an audited operation
type AuditEventModel struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	OperationID   uuid.UUID `gorm:"type:char(36);not null;index"`
	OperationType string    `gorm:"type:varchar(50);not null;index"`
	CustomerID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Phase         string    `gorm:"type:varchar(20);not null"`
	DurationMs    int64     `gorm:"default:0"`
	ErrorCode     string    `gorm:"type:varchar(50);index"`
	ErrorMessage  string    `gorm:"type:text"`
	StackContext  string    `gorm:"type:text"`
	Metadata      JSONField `gorm:"type:json"`
	OccurredAt    time.Time `gorm:"not null;index"`
}

// StringSlice custom type for handling string slices in JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONField custom type for handling JSON fields
type JSONField map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = JSONField{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONField", value)
	}
}

// Value implements the driver.Valuer interface
func (j JSONField) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for IngredientModel
func (i *IngredientModel) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for MealHistoryModel
func (m *MealHistoryModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for AuditEventModel
func (a *AuditEventModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName methods for custom table names
func (RecipeModel) TableName() string {
	return "recipes"
}

func (IngredientModel) TableName() string {
	return "ingredients"
}

func (AllergyCategoryModel) TableName() string {
	return "allergy_categories"
}

func (MealHistoryModel) TableName() string {
	return "meal_history"
}

func (AuditEventModel) TableName() string {
	return "audit_events"
}

// AllModels lists every model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&AllergyCategoryModel{},
		&RecipeModel{},
		&IngredientModel{},
		&MealHistoryModel{},
		&AuditEventModel{},
	}
}
