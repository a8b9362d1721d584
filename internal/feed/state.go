// Package feed implements the three read paths of the sync core: the
// paginated main feed, the category-grouped bulk load and the map region
// query.
//
// Every store is confined to the dispatch.Executor it was built with. Trigger
// methods (Reload, LoadMore, LoadAll, Search, ...) and Snapshot must be called
// on that executor; backend completions are posted back onto it. Callers on
// other goroutines must marshal onto the executor first.
package feed

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/metrics"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
)

// ErrMissingDeps is returned by constructors when a dependency is nil.
var ErrMissingDeps = errors.New("feed: backend, sequencer and executor are required")

// LoadState is the loading state a view renders spinners and error banners from.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoadingInitial
	StateLoadingMore
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingInitial:
		return "loading-initial"
	case StateLoadingMore:
		return "loading-more"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Loading reports whether a fetch is in flight.
func (s LoadState) Loading() bool {
	return s == StateLoadingInitial || s == StateLoadingMore
}

// Deps holds what every store needs.
type Deps struct {
	Backend   backend.Backend
	Sequencer *sequencer.Sequencer
	Executor  dispatch.Executor

	// Context bounds every backend call the store makes. Defaults to
	// context.Background().
	Context context.Context
}

func (d Deps) validate() error {
	if d.Backend == nil || d.Sequencer == nil || d.Executor == nil {
		return ErrMissingDeps
	}
	return nil
}

// base carries the plumbing shared by the stores: token bookkeeping, the
// off-thread call context and subscriber fan-out.
type base[S any] struct {
	name    string
	backend backend.Backend
	seq     *sequencer.Sequencer
	exec    dispatch.Executor
	ctx     context.Context
	cancel  context.CancelFunc

	subs   map[int]func(S)
	nextID int
}

func newBase[S any](name string, deps Deps) base[S] {
	parent := deps.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return base[S]{
		name:    name,
		backend: deps.Backend,
		seq:     deps.Sequencer,
		exec:    deps.Executor,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]func(S)),
	}
}

func (b *base[S]) issue(key string) sequencer.Token {
	metrics.RequestsIssuedTotal.WithLabelValues(sequencer.Kind(key)).Inc()
	return b.seq.Issue(key)
}

// current reports whether token is still the latest for key, counting and
// logging the discard when it is not.
func (b *base[S]) current(key string, token sequencer.Token) bool {
	if b.seq.IsCurrent(key, token) {
		return true
	}
	b.discard(key, token)
	return false
}

func (b *base[S]) discard(key string, token sequencer.Token) {
	metrics.StaleResponsesTotal.WithLabelValues(sequencer.Kind(key)).Inc()
	glog.V(1).Infof("%s: discarding stale response for %s (token %d, current %d)", b.name, key, token, b.seq.Current(key))
}

func (b *base[S]) failed(key string, err error) {
	metrics.FetchErrorsTotal.WithLabelValues(b.name).Inc()
	glog.Warningf("%s: fetch %s failed: %v", b.name, key, err)
}

func (b *base[S]) subscribe(fn func(S)) func() {
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() { delete(b.subs, id) }
}

func (b *base[S]) publish(snap S) {
	for _, fn := range b.subs {
		fn(snap)
	}
}

// Close cancels in-flight backend calls. Their completions still arrive and
// are handled like any failure.
func (b *base[S]) Close() {
	b.cancel()
}

// updateCopies applies fn to every record with the given id and returns how
// many copies changed.
func updateCopies(records []model.Recipe, id string, fn func(*model.Recipe)) int {
	n := 0
	for i := range records {
		if records[i].ID == id {
			fn(&records[i])
			n++
		}
	}
	return n
}
