package recommendation

import (
	"time"

	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

type recipeT = recipe.Recipe

func day(s string) time.Time {
	t, err := time.Parse(mealplan.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func recipeNames(recs []*mealplan.MealRecommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Recipe().Name())
	}
	return out
}
