package devserver

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/joestump/recipe-sync/internal/model"
)

var (
	// ErrNotFound is returned when a user or recipe does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSelfFollow is returned when a user tries to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// fixtureNamespace seeds deterministic fixture IDs so restarts keep links stable.
var fixtureNamespace = uuid.MustParse("6f1c1a52-4bb0-4b8e-9d8e-2f0f7f3b7c11")

// FixtureID returns the stable ID of the named fixture.
func FixtureID(kind, name string) string {
	return uuid.NewSHA1(fixtureNamespace, []byte(kind+"/"+name)).String()
}

// Store is the dev server's in-memory data. All methods are safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	recipes   []*model.Recipe
	byID      map[string]*model.Recipe
	users     map[string]*model.User
	favorites map[string]map[string]struct{} // recipe id -> user ids
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		byID:      make(map[string]*model.Recipe),
		users:     make(map[string]*model.User),
		favorites: make(map[string]map[string]struct{}),
	}
}

// AddUser inserts or replaces a user. A blank ID gets a fresh UUID.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := u
	cp.Followers = append([]string(nil), u.Followers...)
	cp.Following = append([]string(nil), u.Following...)
	s.users[u.ID] = &cp
	return u
}

// AddRecipe appends a recipe to the feed. A blank ID gets a fresh UUID.
func (s *Store) AddRecipe(r model.Recipe) model.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := r
	if old, ok := s.byID[r.ID]; ok {
		*old = cp
		return r
	}
	s.recipes = append(s.recipes, &cp)
	s.byID[r.ID] = &cp
	return r
}

// Page returns up to limit recipes starting at offset and whether more follow.
func (s *Store) Page(offset, limit int) ([]model.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 || offset >= len(s.recipes) {
		return []model.Recipe{}, false
	}
	end := offset + limit
	if end > len(s.recipes) {
		end = len(s.recipes)
	}
	out := make([]model.Recipe, 0, end-offset)
	for _, r := range s.recipes[offset:end] {
		out = append(out, copyRecipe(r))
	}
	return out, end < len(s.recipes)
}

// Categories groups every recipe by its category name. Recipes without a
// category are filed under "Uncategorized".
func (s *Store) Categories() map[string][]model.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.Recipe)
	for _, r := range s.recipes {
		name := r.Category
		if name == "" {
			name = "Uncategorized"
		}
		out[name] = append(out[name], copyRecipe(r))
	}
	return out
}

// InRegion returns the located recipes inside region.
func (s *Store) InRegion(region model.Region) []model.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Recipe{}
	for _, r := range s.recipes {
		if r.Location != nil && region.Contains(*r.Location) {
			out = append(out, copyRecipe(r))
		}
	}
	return out
}

// User returns a copy of the user with id.
func (s *Store) User(id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	cp := *u
	cp.Followers = append([]string{}, u.Followers...)
	cp.Following = append([]string{}, u.Following...)
	return cp, nil
}

// SetFollow makes follower follow (or stop following) target and returns
// target's follower count. Repeating the same request is a no-op.
func (s *Store) SetFollow(follower, target string, on bool) (int, error) {
	if follower == target {
		return 0, ErrSelfFollow
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.users[target]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", target, ErrNotFound)
	}
	t.Followers = setMember(t.Followers, follower, on)
	if f, ok := s.users[follower]; ok {
		f.Following = setMember(f.Following, target, on)
	}
	return len(t.Followers), nil
}

// SetFavorite marks recipeID as favorited (or not) by userID and returns the
// recipe's favorite count. Repeating the same request is a no-op.
func (s *Store) SetFavorite(userID, recipeID string, on bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[recipeID]
	if !ok {
		return 0, fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
	}
	fans := s.favorites[recipeID]
	if fans == nil {
		fans = make(map[string]struct{})
		s.favorites[recipeID] = fans
	}
	_, was := fans[userID]
	switch {
	case on && !was:
		fans[userID] = struct{}{}
		r.FavoriteCount++
	case !on && was:
		delete(fans, userID)
		r.FavoriteCount--
	}
	return r.FavoriteCount, nil
}

// Len returns the number of recipes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}

func setMember(ids []string, id string, on bool) []string {
	out := make([]string, 0, len(ids)+1)
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	if on {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func copyRecipe(r *model.Recipe) model.Recipe {
	cp := *r
	cp.Ingredients = append([]string(nil), r.Ingredients...)
	cp.Steps = append([]string(nil), r.Steps...)
	cp.Tags = append([]string(nil), r.Tags...)
	if r.Location != nil {
		loc := *r.Location
		cp.Location = &loc
	}
	return cp
}
