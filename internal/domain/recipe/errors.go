package recipe

import "errors"

// Domain errors for recipe construction

var (
	ErrMissingID              = errors.New("recipe id is required")
	ErrNameRequired           = errors.New("recipe name is required")
	ErrNameTooLong            = errors.New("recipe name must not exceed 200 characters")
	ErrIngredientNameRequired = errors.New("ingredient name is required")
	ErrRecipeNotFound         = errors.New("recipe not found")
)
