// Package mutation applies follow and favorite actions optimistically: the
// visible state changes the moment the user acts, the backend is asked to
// confirm, and a rejected request rolls back exactly the change it made.
//
// A second toggle on the same entity while the first is in flight also
// applies immediately and sends its own absolute request. Each request
// carries an entity-scoped token; only the newest edge for an entity may
// change visible state when it resolves, so an older failure never clobbers
// a newer pending action.
//
// A failed edge first restores the value it replaced. Once the last edge in
// flight for an entity settles, the visible state is reconciled with the
// last value the server confirmed for it (or the value before the first
// edge when nothing was confirmed), so a run of failures never leaves a
// state the server never held.
//
// Only the newest confirmation per entity is written to the favorites
// persister, so the durable set follows the same order as the visible one.
//
// The Controller is confined to its dispatch.Executor like the feed stores.
package mutation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/favorites"
	"github.com/joestump/recipe-sync/internal/metrics"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
	"github.com/joestump/recipe-sync/internal/session"
)

var (
	// ErrMissingDeps is returned by New when a dependency is nil.
	ErrMissingDeps = errors.New("mutation: backend, sequencer, executor and favorites are required")

	// ErrNoSession is returned by ToggleFollow when nobody is signed in.
	ErrNoSession = errors.New("no signed-in user")

	// ErrSelfFollow is returned when the signed-in user tries to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")

	// ErrUnknownUser is returned when a user's follow state was never loaded.
	ErrUnknownUser = errors.New("user follow state not loaded")

	// ErrEmptyID is returned for an empty user or recipe ID.
	ErrEmptyID = errors.New("empty id")
)

// RecipeUpdater is a store holding copies of recipes. Favorite counts are
// adjusted on every registered store because each keeps its own copy.
type RecipeUpdater interface {
	UpdateRecipe(id string, fn func(*model.Recipe)) int
}

// FollowState is what a profile view renders for a user.
type FollowState struct {
	Username  string
	Following bool
	Followers int
}

// Deps holds the controller's collaborators.
type Deps struct {
	Backend   backend.Backend
	Sequencer *sequencer.Sequencer
	Executor  dispatch.Executor
	Favorites *favorites.Cache
	Session   *session.Identity
	Stores    []RecipeUpdater

	// Context bounds every backend call. Defaults to context.Background().
	Context context.Context
}

// Controller owns follow state and drives favorite membership.
type Controller struct {
	backend   backend.Backend
	seq       *sequencer.Sequencer
	exec      dispatch.Executor
	favorites *favorites.Cache
	session   *session.Identity
	stores    []RecipeUpdater
	ctx       context.Context
	cancel    context.CancelFunc
	now       func() time.Time

	follows map[string]FollowState

	// pending holds the newest unresolved edge per resource key. Older edges
	// still in flight are detached and only settle their own status.
	pending map[string]*Edge
	chains  map[string]*chain

	// loadErrs holds the last LoadUser failure per user.
	loadErrs map[string]error

	subs   map[int]func(Edge)
	nextID int
}

// New returns a Controller.
func New(deps Deps) (*Controller, error) {
	if deps.Backend == nil || deps.Sequencer == nil || deps.Executor == nil || deps.Favorites == nil {
		return nil, ErrMissingDeps
	}
	parent := deps.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Controller{
		backend:   deps.Backend,
		seq:       deps.Sequencer,
		exec:      deps.Executor,
		favorites: deps.Favorites,
		session:   deps.Session,
		stores:    deps.Stores,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		follows:   make(map[string]FollowState),
		pending:   make(map[string]*Edge),
		chains:    make(map[string]*chain),
		loadErrs:  make(map[string]error),
		subs:      make(map[int]func(Edge)),
	}, nil
}

// AddStore registers another store whose recipe copies track favorite counts.
func (c *Controller) AddStore(s RecipeUpdater) {
	c.stores = append(c.stores, s)
}

// Close cancels in-flight backend calls; their edges roll back as failures.
func (c *Controller) Close() {
	c.cancel()
}

// Subscribe registers fn to receive every edge transition: created,
// confirmed and rolled back.
func (c *Controller) Subscribe(fn func(Edge)) func() {
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

func (c *Controller) publish(e *Edge) {
	for _, fn := range c.subs {
		fn(*e)
	}
}

// Following returns the follow state for userID.
func (c *Controller) Following(userID string) (FollowState, bool) {
	st, ok := c.follows[userID]
	return st, ok
}

// IsFavorite reports whether recipeID is in the favorite set.
func (c *Controller) IsFavorite(recipeID string) bool {
	return c.favorites.Contains(recipeID)
}

// Edges returns the newest pending edge of every entity, oldest first.
func (c *Controller) Edges() []Edge {
	out := make([]Edge, 0, len(c.pending))
	for _, e := range c.pending {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Controller) newEdge(key, target string, kind Kind, prev, next Value) *Edge {
	metrics.RequestsIssuedTotal.WithLabelValues(sequencer.Kind(key)).Inc()
	e := &Edge{
		ID:        ulid.Make().String(),
		Target:    target,
		Kind:      kind,
		Prev:      prev,
		Next:      next,
		Status:    StatusPending,
		Token:     c.seq.Issue(key),
		CreatedAt: c.now(),
		key:       key,
	}
	c.pending[key] = e
	ch, ok := c.chains[key]
	if !ok {
		ch = &chain{base: prev}
		c.chains[key] = ch
	}
	ch.inflight++
	return e
}

// settle records the outcome of e. current reports whether e was still the
// newest edge for its entity; newest reports whether e is a confirmation
// newer than any confirmation seen so far, with count as the server's value.
func (c *Controller) settle(e *Edge, count int, err error) (current, newest bool) {
	current = c.seq.IsCurrent(e.key, e.Token)
	ch := c.chains[e.key]
	if ch != nil {
		ch.inflight--
		switch {
		case err == nil && e.Token > ch.confirmed:
			ch.confirmed = e.Token
			ch.base = Value{On: e.Next.On, Count: count}
			newest = true
		case err != nil && !current:
			ch.failed = append(ch.failed, e)
		}
	}
	outcome := "confirmed"
	if err != nil {
		e.Status = StatusRolledBack
		e.Err = err
		outcome = "rolled_back"
	} else {
		e.Status = StatusConfirmed
	}
	metrics.MutationsTotal.WithLabelValues(e.Kind.String(), outcome).Inc()
	if c.pending[e.key] == e {
		delete(c.pending, e.key)
	}
	if !current {
		metrics.StaleResponsesTotal.WithLabelValues(sequencer.Kind(e.key)).Inc()
		glog.V(1).Infof("mutation: %s %s edge %s settled %s after a newer edge; visible state left alone",
			e.Kind, e.Target, e.ID, e.Status)
	}
	if err != nil {
		glog.Warningf("mutation: %s %s failed: %v", e.Kind, e.Target, err)
	}
	return current, newest
}

// settled returns the chain for key once its last edge has settled, and
// forgets it. It returns nil while edges are still in flight.
func (c *Controller) settled(key string) *chain {
	ch := c.chains[key]
	if ch == nil || ch.inflight > 0 {
		return nil
	}
	delete(c.chains, key)
	return ch
}
