package backend

import "github.com/joestump/recipe-sync/internal/model"

// RecipeListResponse is the body of GET /v1/recipes and
// GET /v1/recipes/region. NextCursor is null on the last page.
type RecipeListResponse struct {
	Recipes    []model.Recipe `json:"recipes"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// CategoriesResponse is the body of GET /v1/categories.
type CategoriesResponse struct {
	Categories map[string][]model.Recipe `json:"categories"`
}

// FollowResponse is the body of PUT/DELETE /v1/users/{id}/follow.
type FollowResponse struct {
	Followers int `json:"followers"`
}

// FavoriteResponse is the body of PUT/DELETE /v1/recipes/{id}/favorite.
type FavoriteResponse struct {
	FavoriteCount int `json:"favorite_count"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
