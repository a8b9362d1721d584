package favorites_test

import (
	"context"
	"testing"

	"github.com/joestump/recipe-sync/internal/favorites"
	"github.com/joestump/recipe-sync/internal/testutil"
)

func TestSQLPersister_SaveAndLoad(t *testing.T) {
	p := favorites.NewSQLPersister(testutil.NewTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := p.Save(ctx, id, true); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}
	// Saving twice is idempotent.
	if err := p.Save(ctx, "a", true); err != nil {
		t.Fatalf("Save(a) again: %v", err)
	}
	if err := p.Save(ctx, "c", false); err != nil {
		t.Fatalf("Save(c, false): %v", err)
	}

	ids, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestSQLPersister_BacksCache(t *testing.T) {
	p := favorites.NewSQLPersister(testutil.NewTestDB(t))
	ctx := context.Background()

	c := favorites.NewCache(p)
	c.Set("r1", true)
	c.Persist("r1", true)
	c.Drain()

	reloaded := favorites.NewCache(p)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.Contains("r1") {
		t.Error("r1 should survive a reload from SQL")
	}
}
