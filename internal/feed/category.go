package feed

import (
	"context"
	"sort"

	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
)

// CategoriesKey is the resource key of the category batch.
const CategoriesKey = "categories"

// CategorySnapshot is a read-only view of a CategoryStore. Keys is sorted;
// Names maps each key back to the first display name the backend used for it.
type CategorySnapshot struct {
	Keys       []string
	Names      map[string]string
	Categories map[string][]model.Recipe
	State      LoadState
	Err        error
}

// CategoryStore keeps the category-to-recipes mapping, always loaded and
// replaced as one batch so a view never shows old and new categories mixed.
type CategoryStore struct {
	base[CategorySnapshot]

	keys       []string
	names      map[string]string
	categories map[string][]model.Recipe
	state      LoadState
	err        error
}

// NewCategoryStore returns an empty CategoryStore.
func NewCategoryStore(deps Deps) (*CategoryStore, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &CategoryStore{
		base:       newBase[CategorySnapshot]("categories", deps),
		names:      map[string]string{},
		categories: map[string][]model.Recipe{},
	}, nil
}

// LoadAll fetches every category in a single request. It is a no-op while a
// batch is already loading.
func (s *CategoryStore) LoadAll() bool {
	if s.state.Loading() {
		return false
	}
	s.state = StateLoadingInitial
	s.err = nil
	token := s.issue(CategoriesKey)
	s.notify()

	dispatch.Go(s.ctx, s.exec, func(ctx context.Context) (map[string][]model.Recipe, error) {
		return s.backend.FetchCategories(ctx)
	}, func(batch map[string][]model.Recipe, err error) {
		s.apply(token, batch, err)
	})
	return true
}

func (s *CategoryStore) apply(token sequencer.Token, batch map[string][]model.Recipe, err error) {
	if !s.current(CategoriesKey, token) {
		return
	}
	if err != nil {
		s.failed(CategoriesKey, err)
		s.state = StateError
		s.err = err
		s.notify()
		return
	}

	// Build the replacement completely before swapping it in.
	names := make(map[string]string, len(batch))
	categories := make(map[string][]model.Recipe, len(batch))
	displayNames := make([]string, 0, len(batch))
	for name := range batch {
		displayNames = append(displayNames, name)
	}
	sort.Strings(displayNames)
	for _, name := range displayNames {
		key := model.CategoryKey(name)
		if key == "" {
			continue
		}
		if _, ok := names[key]; !ok {
			names[key] = name
		}
		categories[key] = appendDistinct(categories[key], batch[name])
	}
	keys := make([]string, 0, len(categories))
	for key := range categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s.keys = keys
	s.names = names
	s.categories = categories
	s.state = StateIdle
	s.notify()
}

// UpdateRecipe applies fn to every copy of the recipe across categories.
func (s *CategoryStore) UpdateRecipe(id string, fn func(*model.Recipe)) int {
	n := 0
	for _, records := range s.categories {
		n += updateCopies(records, id, fn)
	}
	if n > 0 {
		s.notify()
	}
	return n
}

// Snapshot returns a copy of the current state.
func (s *CategoryStore) Snapshot() CategorySnapshot {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	names := make(map[string]string, len(s.names))
	for k, v := range s.names {
		names[k] = v
	}
	categories := make(map[string][]model.Recipe, len(s.categories))
	for k, records := range s.categories {
		c := make([]model.Recipe, len(records))
		copy(c, records)
		categories[k] = c
	}
	return CategorySnapshot{
		Keys:       keys,
		Names:      names,
		Categories: categories,
		State:      s.state,
		Err:        s.err,
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *CategoryStore) Subscribe(fn func(CategorySnapshot)) func() {
	return s.subscribe(fn)
}

func (s *CategoryStore) notify() {
	if len(s.subs) == 0 {
		return
	}
	s.publish(s.Snapshot())
}

func appendDistinct(dst, src []model.Recipe) []model.Recipe {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, r := range dst {
		seen[r.ID] = struct{}{}
	}
	for _, r := range src {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		dst = append(dst, r)
	}
	return dst
}
