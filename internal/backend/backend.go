// Package backend is the boundary to the recipe service. The feed stores and
// the mutation controller only see the Backend interface; Client speaks the
// HTTP/JSON contract served by the recipe API (and by internal/devserver).
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/joestump/recipe-sync/internal/model"
)

var (
	// ErrNotFound is returned when the requested user or recipe does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the bearer token is missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// Backend is the recipe service as seen by the sync core. Implementations
// own transport, serialization and timeouts.
type Backend interface {
	FetchFeedPage(ctx context.Context, cursor model.FeedCursor) (model.Page, error)
	FetchCategories(ctx context.Context) (map[string][]model.Recipe, error)
	FetchRegion(ctx context.Context, region model.Region) ([]model.Recipe, error)
	SetFollow(ctx context.Context, userID string, follow bool) (int, error)
	SetFavorite(ctx context.Context, recipeID string, favorite bool) (int, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// APIError is a non-2xx response from the recipe API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("recipe API returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("recipe API returned %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto the package sentinels so callers can
// use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401, 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return nil
}
