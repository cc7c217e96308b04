package sqlite

import (
	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// demoNamespace derives stable ids so re-seeding never duplicates rows
var demoNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://mealprep.example/demo-catalog"))

type demoIngredient struct {
	name       string
	allergen   bool
	categories []string
}

type demoRecipe struct {
	slug        string
	name        string
	steps       string
	nutrition   *recipe.NutritionInfo
	tags        []string
	ingredients []demoIngredient
}

func macros(kcal, protein, fat, carbs float64) *recipe.NutritionInfo {
	return &recipe.NutritionInfo{Calories: kcal, Protein: protein, Fat: fat, Carbohydrates: carbs}
}

var demoRecipes = []demoRecipe{
	{
		slug: "overnight-oats", name: "Overnight Oats with Berries",
		steps:     "Soak oats in milk overnight. Top with berries.",
		nutrition: macros(380, 14, 9, 60), tags: []string{"breakfast", "vegetarian"},
		ingredients: []demoIngredient{{"Rolled oats", false, []string{"gluten"}}, {"Milk", true, []string{"dairy"}}, {"Blueberries", false, nil}},
	},
	{
		slug: "veggie-omelette", name: "Spinach and Feta Omelette",
		steps:     "Whisk eggs, cook with spinach, fold in feta.",
		nutrition: macros(320, 22, 23, 5), tags: []string{"breakfast", "vegetarian", "low-carb"},
		ingredients: []demoIngredient{{"Eggs", true, []string{"eggs"}}, {"Spinach", false, nil}, {"Feta", true, []string{"dairy"}}},
	},
	{
		slug: "peanut-toast", name: "Peanut Butter Banana Toast",
		steps:     "Toast bread, spread peanut butter, top with banana.",
		nutrition: macros(410, 13, 17, 52), tags: []string{"breakfast", "vegetarian"},
		ingredients: []demoIngredient{{"Sourdough", false, []string{"gluten"}}, {"Peanut butter", true, []string{"peanuts"}}, {"Banana", false, nil}},
	},
	{
		slug: "tofu-scramble", name: "Tofu Scramble",
		steps:     "Crumble tofu, fry with turmeric and peppers.",
		nutrition: macros(290, 20, 17, 12), tags: []string{"breakfast", "vegan"},
		ingredients: []demoIngredient{{"Firm tofu", true, []string{"soy"}}, {"Bell pepper", false, nil}, {"Turmeric", false, nil}},
	},
	{
		slug: "chia-pudding", name: "Coconut Chia Pudding",
		steps:     "Stir chia into coconut milk, chill four hours.",
		nutrition: macros(340, 8, 21, 28), tags: []string{"breakfast", "vegan", "gluten-free"},
		ingredients: []demoIngredient{{"Chia seeds", false, nil}, {"Coconut milk", false, nil}, {"Mango", false, nil}},
	},
	{
		slug: "greek-salad", name: "Greek Salad with Chickpeas",
		steps:     "Chop vegetables, toss with chickpeas, olives and feta.",
		nutrition: macros(450, 17, 26, 38), tags: []string{"lunch", "vegetarian"},
		ingredients: []demoIngredient{{"Chickpeas", false, nil}, {"Cucumber", false, nil}, {"Feta", true, []string{"dairy"}}},
	},
	{
		slug: "chicken-wrap", name: "Grilled Chicken Wrap",
		steps:     "Grill chicken, wrap with salad in a tortilla.",
		nutrition: macros(520, 38, 16, 52), tags: []string{"lunch", "high-protein"},
		ingredients: []demoIngredient{{"Chicken breast", false, nil}, {"Flour tortilla", false, []string{"gluten"}}, {"Lettuce", false, nil}},
	},
	{
		slug: "lentil-soup", name: "Red Lentil Soup",
		steps:     "Simmer lentils with onion, carrot and cumin. Blend.",
		nutrition: macros(360, 19, 7, 55), tags: []string{"lunch", "vegan", "gluten-free"},
		ingredients: []demoIngredient{{"Red lentils", false, nil}, {"Carrot", false, nil}, {"Onion", false, nil}},
	},
	{
		slug: "tuna-nicoise", name: "Tuna Nicoise",
		steps:     "Arrange tuna, egg, potatoes and beans. Dress.",
		nutrition: macros(480, 34, 24, 30), tags: []string{"lunch", "pescatarian"},
		ingredients: []demoIngredient{{"Tuna", true, []string{"fish"}}, {"Eggs", true, []string{"eggs"}}, {"New potatoes", false, nil}},
	},
	{
		slug: "satay-noodles", name: "Satay Noodle Bowl",
		steps:     "Toss noodles and vegetables in peanut satay sauce.",
		nutrition: macros(610, 22, 27, 70), tags: []string{"lunch", "vegan"},
		ingredients: []demoIngredient{{"Rice noodles", false, nil}, {"Satay sauce", false, []string{"peanuts"}}, {"Soy sauce", true, []string{"soy"}}},
	},
	{
		slug: "salmon-bowl", name: "Salmon Rice Bowl",
		steps:     "Bake salmon, serve over rice with edamame.",
		nutrition: macros(620, 40, 22, 62), tags: []string{"dinner", "pescatarian", "high-protein"},
		ingredients: []demoIngredient{{"Salmon fillet", true, []string{"fish"}}, {"Jasmine rice", false, nil}, {"Edamame", false, []string{"soy"}}},
	},
	{
		slug: "chickpea-curry", name: "Chickpea and Spinach Curry",
		steps:     "Cook chickpeas and spinach in spiced tomato sauce.",
		nutrition: macros(520, 19, 18, 68), tags: []string{"dinner", "vegan", "gluten-free"},
		ingredients: []demoIngredient{{"Chickpeas", false, nil}, {"Spinach", false, nil}, {"Chopped tomatoes", false, nil}},
	},
	{
		slug: "turkey-chili", name: "Turkey Bean Chili",
		steps:     "Brown turkey, simmer with beans and tomatoes.",
		nutrition: macros(540, 42, 16, 50), tags: []string{"dinner", "high-protein", "gluten-free"},
		ingredients: []demoIngredient{{"Turkey mince", false, nil}, {"Kidney beans", false, nil}, {"Chilli", false, nil}},
	},
	{
		slug: "shrimp-stir-fry", name: "Garlic Shrimp Stir Fry",
		steps:     "Stir fry shrimp with garlic, broccoli and soy.",
		nutrition: macros(430, 33, 14, 40), tags: []string{"dinner", "pescatarian"},
		ingredients: []demoIngredient{{"Shrimp", true, []string{"shellfish"}}, {"Broccoli", false, nil}, {"Soy sauce", true, []string{"soy"}}},
	},
	{
		slug: "mushroom-risotto", name: "Mushroom Risotto",
		steps:     "Toast rice, add stock gradually, finish with parmesan.",
		nutrition: macros(590, 15, 20, 82), tags: []string{"dinner", "vegetarian"},
		ingredients: []demoIngredient{{"Arborio rice", false, nil}, {"Mushrooms", false, nil}, {"Parmesan", true, []string{"dairy"}}},
	},
	{
		slug: "family-lasagne", name: "Family Lasagne",
		steps:       "Layer pasta, ragu and bechamel. Bake.",
		tags:        []string{"dinner"},
		ingredients: []demoIngredient{{"Lasagne sheets", false, []string{"gluten"}}, {"Beef mince", false, nil}, {"Bechamel", true, []string{"dairy"}}},
	},
}

// DemoCatalog returns the demo recipes. The lasagne deliberately carries no
// nutrition data.
func DemoCatalog() []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, len(demoRecipes))
	for _, d := range demoRecipes {
		id := uuid.NewSHA1(demoNamespace, []byte(d.slug))
		params := recipe.Params{
			ID:        id,
			Name:      d.name,
			Steps:     d.steps,
			Nutrition: d.nutrition,
			Tags:      d.tags,
		}
		for _, ing := range d.ingredients {
			params.Ingredients = append(params.Ingredients, recipe.Ingredient{
				ID:                uuid.NewSHA1(id, []byte(ing.name)),
				Name:              ing.name,
				IsAllergen:        ing.allergen,
				AllergyCategories: ing.categories,
			})
		}
		out = append(out, recipe.MustNew(params))
	}
	return out
}
