package storage

// Well-known keys and prefixes.
const (
	UserIdentifierKey   = "user_identifier"
	ProfileKey          = "user_profile"
	FavoritesPrefix     = "favorites_"
	RecipeReviewsPrefix = "recipe_reviews_"
	UserReviewsPrefix   = "user_reviews_"
	RecipePrefix        = "recipe_"
)

// FavoritesKey is the key of a user's favorites list.
func FavoritesKey(userID string) string { return FavoritesPrefix + userID }

// RecipeReviewsKey is the key of the reviews list of one recipe.
func RecipeReviewsKey(recipeID string) string { return RecipeReviewsPrefix + recipeID }

// UserReviewsKey is the key of the denormalized reviews list of one user.
func UserReviewsKey(userID string) string { return UserReviewsPrefix + userID }

// RecipeKey is the key of a recipe's cached review summary.
func RecipeKey(recipeID string) string { return RecipePrefix + recipeID }
