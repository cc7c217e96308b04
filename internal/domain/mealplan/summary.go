package mealplan

// Calorie equivalents per gram of macronutrient
const (
	KcalPerGramProtein       = 4.0
	KcalPerGramCarbohydrates = 4.0
	KcalPerGramFat           = 9.0
)

// Totals is a sum of nutrients
type Totals struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein_g"`
	Fat           float64 `json:"fat_g"`
	Carbohydrates float64 `json:"carbohydrates_g"`
}

// NutritionalSummary is derived from a recommendation list and never
// stored on its own.
type NutritionalSummary struct {
	Totals
	ProteinRatio float64           `json:"protein_ratio"`
	CarbRatio    float64           `json:"carb_ratio"`
	FatRatio     float64           `json:"fat_ratio"`
	Daily        map[string]Totals `json:"daily,omitempty"`
}
