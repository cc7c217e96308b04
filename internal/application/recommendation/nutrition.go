package recommendation

import (
	"github.com/mealprep/recommender/internal/domain/mealplan"
)

// NutritionalAggregator sums nutrients over a recommendation list and
// derives macronutrient calorie ratios.
type NutritionalAggregator struct{}

// NewNutritionalAggregator creates an aggregator
func NewNutritionalAggregator() *NutritionalAggregator {
	return &NutritionalAggregator{}
}

// Aggregate assumes its input was already filtered for complete nutrition.
// When total calories are zero every ratio is zero.
func (a *NutritionalAggregator) Aggregate(recs []*mealplan.MealRecommendation) mealplan.NutritionalSummary {
	var summary mealplan.NutritionalSummary
	daily := make(map[string]mealplan.Totals)

	for _, r := range recs {
		n := r.Nutrition()
		summary.Calories += n.Calories
		summary.Protein += n.Protein
		summary.Fat += n.Fat
		summary.Carbohydrates += n.Carbohydrates

		key := r.Slot().Date.Format(mealplan.DateLayout)
		d := daily[key]
		d.Calories += n.Calories
		d.Protein += n.Protein
		d.Fat += n.Fat
		d.Carbohydrates += n.Carbohydrates
		daily[key] = d
	}

	if summary.Calories > 0 {
		summary.ProteinRatio = mealplan.KcalPerGramProtein * summary.Protein / summary.Calories
		summary.CarbRatio = mealplan.KcalPerGramCarbohydrates * summary.Carbohydrates / summary.Calories
		summary.FatRatio = mealplan.KcalPerGramFat * summary.Fat / summary.Calories
	}
	if len(daily) > 0 {
		summary.Daily = daily
	}
	return summary
}
