package feed_test

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/joestump/recipe-sync/internal/backend/backendtest"
	"github.com/joestump/recipe-sync/internal/feed"
	"github.com/joestump/recipe-sync/internal/model"
)

func newCategoryStore(t *testing.T, env *testEnv) *feed.CategoryStore {
	t.Helper()
	s, err := feed.NewCategoryStore(env.deps)
	if err != nil {
		t.Fatalf("NewCategoryStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCategory_LoadAllReplacesAtomically(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	if !s.LoadAll() {
		t.Fatal("LoadAll should issue a request")
	}
	env.backend.ExpectMethod(t, "FetchCategories").Respond(map[string][]model.Recipe{
		"Desserts":   backendtest.Recipes("d1", "d2"),
		"Main Dish":  backendtest.Recipes("m1"),
		"Soups_Stew": backendtest.Recipes("s1"),
	})
	env.step(t)

	snap := s.Snapshot()
	assert.Equal(t, snap.State, feed.StateIdle)
	assert.Equal(t, snap.Keys, []string{"desserts", "main-dish", "soups-stew"})
	assert.Equal(t, snap.Names["main-dish"], "Main Dish")
	equalIDs(t, snap.Categories["desserts"], "d1", "d2")

	s.LoadAll()
	env.backend.Next(t).Respond(map[string][]model.Recipe{
		"Breakfast": backendtest.Recipes("b1"),
	})
	env.step(t)

	snap = s.Snapshot()
	assert.Equal(t, snap.Keys, []string{"breakfast"})
	if _, ok := snap.Categories["desserts"]; ok {
		t.Error("old categories must not survive a batch replacement")
	}
}

func TestCategory_CollidingNamesMerge(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	s.LoadAll()
	env.backend.Next(t).Respond(map[string][]model.Recipe{
		"Main Dish": backendtest.Recipes("m1", "m2"),
		"main_dish": backendtest.Recipes("m2", "m3"),
	})
	env.step(t)

	snap := s.Snapshot()
	assert.Equal(t, snap.Keys, []string{"main-dish"})
	equalIDs(t, snap.Categories["main-dish"], "m1", "m2", "m3")
}

func TestCategory_LoadAllWhileLoadingIsNoop(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	s.LoadAll()
	if s.LoadAll() {
		t.Error("LoadAll while a batch is loading must be a no-op")
	}
	env.backend.Next(t).Respond(map[string][]model.Recipe{})
	env.step(t)
	env.backend.ExpectNone(t)
}

func TestCategory_FailureKeepsPriorMapping(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	s.LoadAll()
	env.backend.Next(t).Respond(map[string][]model.Recipe{"Desserts": backendtest.Recipes("d1")})
	env.step(t)

	s.LoadAll()
	env.backend.Next(t).Fail(errBoom)
	env.step(t)

	snap := s.Snapshot()
	assert.Equal(t, snap.State, feed.StateError)
	if !errors.Is(snap.Err, errBoom) {
		t.Errorf("Err = %v, want %v", snap.Err, errBoom)
	}
	equalIDs(t, snap.Categories["desserts"], "d1")
}

func TestCategory_StaleBatchIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	s.LoadAll()
	first := env.backend.Next(t)

	// Another holder of the same sequencer supersedes the batch.
	env.seq.Issue(feed.CategoriesKey)

	first.Respond(map[string][]model.Recipe{"Desserts": backendtest.Recipes("d1")})
	env.step(t)

	snap := s.Snapshot()
	assert.Equal(t, len(snap.Keys), 0)
	assert.Equal(t, snap.State, feed.StateLoadingInitial)
}

func TestCategory_UpdateRecipeTouchesEveryCopy(t *testing.T) {
	env := newTestEnv(t)
	s := newCategoryStore(t, env)

	s.LoadAll()
	env.backend.Next(t).Respond(map[string][]model.Recipe{
		"Desserts": {{ID: "x", FavoriteCount: 1}},
		"Quick":    {{ID: "x", FavoriteCount: 2}},
	})
	env.step(t)

	n := s.UpdateRecipe("x", func(r *model.Recipe) { r.FavoriteCount += 10 })
	assert.Equal(t, n, 2)
	snap := s.Snapshot()
	assert.Equal(t, snap.Categories["desserts"][0].FavoriteCount, 11)
	assert.Equal(t, snap.Categories["quick"][0].FavoriteCount, 12)
}
