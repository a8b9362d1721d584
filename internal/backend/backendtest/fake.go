// Package backendtest provides a scripted Backend for store and controller
// tests. Every call blocks until the test answers it, so tests decide the
// order in which responses arrive.
package backendtest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/model"
)

const waitTimeout = 2 * time.Second

// Call is one pending backend request.
type Call struct {
	Method string
	Cursor model.FeedCursor
	Region model.Region
	ID     string
	On     bool

	reply chan reply
}

type reply struct {
	value any
	err   error
}

// Respond completes the call with value, which must match the method's
// result type (model.Page, map[string][]model.Recipe, []model.Recipe, int or
// *model.User).
func (c *Call) Respond(value any) {
	c.reply <- reply{value: value}
}

// Fail completes the call with err.
func (c *Call) Fail(err error) {
	c.reply <- reply{err: err}
}

// Fake is a backend.Backend whose calls are answered by the test.
type Fake struct {
	calls chan *Call
	count atomic.Int64
}

var _ backend.Backend = (*Fake)(nil)

// New returns a Fake.
func New() *Fake {
	return &Fake{calls: make(chan *Call, 64)}
}

// Count returns the number of calls made so far.
func (f *Fake) Count() int {
	return int(f.count.Load())
}

// Next waits for the next call and fails the test if none arrives.
func (f *Fake) Next(t testing.TB) *Call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a backend call")
		return nil
	}
}

// ExpectMethod waits for the next call and checks its method.
func (f *Fake) ExpectMethod(t testing.TB, method string) *Call {
	t.Helper()
	c := f.Next(t)
	if c.Method != method {
		t.Fatalf("backend call = %s, want %s", c.Method, method)
	}
	return c
}

// ExpectNone fails the test if a call is pending or arrives shortly.
func (f *Fake) ExpectNone(t testing.TB) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected backend call %s", c.Method)
	case <-time.After(20 * time.Millisecond):
	}
}

func (f *Fake) call(ctx context.Context, c *Call) (any, error) {
	f.count.Add(1)
	c.reply = make(chan reply, 1)
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Fake) FetchFeedPage(ctx context.Context, cursor model.FeedCursor) (model.Page, error) {
	v, err := f.call(ctx, &Call{Method: "FetchFeedPage", Cursor: cursor})
	if err != nil {
		return model.Page{}, err
	}
	return v.(model.Page), nil
}

func (f *Fake) FetchCategories(ctx context.Context) (map[string][]model.Recipe, error) {
	v, err := f.call(ctx, &Call{Method: "FetchCategories"})
	if err != nil {
		return nil, err
	}
	return v.(map[string][]model.Recipe), nil
}

func (f *Fake) FetchRegion(ctx context.Context, region model.Region) ([]model.Recipe, error) {
	v, err := f.call(ctx, &Call{Method: "FetchRegion", Region: region})
	if err != nil {
		return nil, err
	}
	return v.([]model.Recipe), nil
}

func (f *Fake) SetFollow(ctx context.Context, userID string, follow bool) (int, error) {
	v, err := f.call(ctx, &Call{Method: "SetFollow", ID: userID, On: follow})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (f *Fake) SetFavorite(ctx context.Context, recipeID string, favorite bool) (int, error) {
	v, err := f.call(ctx, &Call{Method: "SetFavorite", ID: recipeID, On: favorite})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (f *Fake) GetUser(ctx context.Context, userID string) (*model.User, error) {
	v, err := f.call(ctx, &Call{Method: "GetUser", ID: userID})
	if err != nil {
		return nil, err
	}
	return v.(*model.User), nil
}

// Recipes builds minimal records with the given IDs.
func Recipes(ids ...string) []model.Recipe {
	out := make([]model.Recipe, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Recipe{ID: id, Title: "Recipe " + id})
	}
	return out
}
