package feed

import (
	"context"

	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
)

// DefaultFeedKey is the resource key of the main feed.
const DefaultFeedKey = "feed:main"

// PagedSnapshot is a read-only view of a PagedStore.
type PagedSnapshot struct {
	Records []model.Recipe
	Cursor  model.FeedCursor
	State   LoadState
	Err     error
}

type pagedOp int

const (
	opReload pagedOp = iota
	opLoadMore
)

// PagedStore keeps the append-only main feed and its continuation cursor.
type PagedStore struct {
	base[PagedSnapshot]
	key string

	records []model.Recipe
	seen    map[string]struct{}
	cursor  model.FeedCursor
	state   LoadState
	err     error
	lastOp  pagedOp

	// triggeredFor is the last record ID that already fired an edge-triggered
	// load-more; cleared whenever the boundary moves.
	triggeredFor string
}

// NewPagedStore returns an empty store for the feed identified by key
// (DefaultFeedKey when empty).
func NewPagedStore(deps Deps, key string) (*PagedStore, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if key == "" {
		key = DefaultFeedKey
	}
	return &PagedStore{
		base: newBase[PagedSnapshot]("paged", deps),
		key:  key,
		seen: make(map[string]struct{}),
	}, nil
}

// Key returns the store's resource key.
func (s *PagedStore) Key() string { return s.key }

// Reload fetches the first page and replaces the feed with it. It is a no-op
// unless the store is idle or in error; it reports whether a request was
// issued.
func (s *PagedStore) Reload() bool {
	if s.state != StateIdle && s.state != StateError {
		return false
	}
	s.state = StateLoadingInitial
	s.err = nil
	s.lastOp = opReload
	token := s.issue(s.key)
	s.notify()

	dispatch.Go(s.ctx, s.exec, func(ctx context.Context) (model.Page, error) {
		return s.backend.FetchFeedPage(ctx, model.FeedCursor{})
	}, func(page model.Page, err error) {
		s.applyReload(token, page, err)
	})
	return true
}

func (s *PagedStore) applyReload(token sequencer.Token, page model.Page, err error) {
	if !s.current(s.key, token) {
		return
	}
	if err != nil {
		s.fail(err)
		return
	}
	s.records = nil
	s.seen = make(map[string]struct{}, len(page.Records))
	s.appendUnique(page.Records)
	s.cursor = page.Next
	s.state = StateIdle
	s.triggeredFor = ""
	s.notify()
}

// LoadMore fetches the page after the current cursor and appends it. It is a
// no-op unless the store is idle and the cursor reports more pages, which
// keeps concurrent triggers from loading the same page twice.
func (s *PagedStore) LoadMore() bool {
	if s.state != StateIdle || !s.cursor.HasMore {
		return false
	}
	s.state = StateLoadingMore
	s.err = nil
	s.lastOp = opLoadMore
	cursor := s.cursor
	token := s.issue(s.key)
	s.notify()

	dispatch.Go(s.ctx, s.exec, func(ctx context.Context) (model.Page, error) {
		return s.backend.FetchFeedPage(ctx, cursor)
	}, func(page model.Page, err error) {
		s.applyMore(token, page, err)
	})
	return true
}

func (s *PagedStore) applyMore(token sequencer.Token, page model.Page, err error) {
	if !s.current(s.key, token) {
		return
	}
	if err != nil {
		// The cursor is left alone so a retry requests the same page.
		s.fail(err)
		return
	}
	s.appendUnique(page.Records)
	s.cursor = page.Next
	s.state = StateIdle
	s.triggeredFor = ""
	s.notify()
}

// Retry repeats the operation that put the store in the error state.
func (s *PagedStore) Retry() bool {
	if s.state != StateError {
		return false
	}
	s.state = StateIdle
	if s.lastOp == opLoadMore && s.cursor.HasMore {
		return s.LoadMore()
	}
	return s.Reload()
}

// Reset drops the feed and invalidates any in-flight request.
func (s *PagedStore) Reset() {
	s.issue(s.key)
	s.records = nil
	s.seen = make(map[string]struct{})
	s.cursor = model.FeedCursor{}
	s.state = StateIdle
	s.err = nil
	s.triggeredFor = ""
	s.notify()
}

// ItemVisible is the scroll trigger: views call it when a row becomes
// visible. It fires LoadMore only when id is the last record, and at most
// once per crossing of that boundary.
func (s *PagedStore) ItemVisible(id string) bool {
	if len(s.records) == 0 || s.records[len(s.records)-1].ID != id {
		return false
	}
	if s.triggeredFor == id {
		return false
	}
	if !s.LoadMore() {
		return false
	}
	s.triggeredFor = id
	return true
}

// UpdateRecipe applies fn to this store's copy of the recipe.
func (s *PagedStore) UpdateRecipe(id string, fn func(*model.Recipe)) int {
	if _, ok := s.seen[id]; !ok {
		return 0
	}
	n := updateCopies(s.records, id, fn)
	if n > 0 {
		s.notify()
	}
	return n
}

// Snapshot returns a copy of the current state.
func (s *PagedStore) Snapshot() PagedSnapshot {
	records := make([]model.Recipe, len(s.records))
	copy(records, s.records)
	return PagedSnapshot{
		Records: records,
		Cursor:  s.cursor,
		State:   s.state,
		Err:     s.err,
	}
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func unsubscribes.
func (s *PagedStore) Subscribe(fn func(PagedSnapshot)) func() {
	return s.subscribe(fn)
}

func (s *PagedStore) appendUnique(records []model.Recipe) {
	for _, r := range records {
		if _, dup := s.seen[r.ID]; dup {
			continue
		}
		s.seen[r.ID] = struct{}{}
		s.records = append(s.records, r)
	}
}

func (s *PagedStore) fail(err error) {
	s.failed(s.key, err)
	s.state = StateError
	s.err = err
	s.notify()
}

func (s *PagedStore) notify() {
	if len(s.subs) == 0 {
		return
	}
	s.publish(s.Snapshot())
}
