package mutation

import (
	"time"

	"github.com/joestump/recipe-sync/internal/sequencer"
)

// Kind is the user action an edge applies.
type Kind int

const (
	KindFollow Kind = iota
	KindUnfollow
	KindFavorite
	KindUnfavorite
)

func (k Kind) String() string {
	switch k {
	case KindFollow:
		return "follow"
	case KindUnfollow:
		return "unfollow"
	case KindFavorite:
		return "favorite"
	case KindUnfavorite:
		return "unfavorite"
	default:
		return "unknown"
	}
}

// Status is where an edge is in its lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Value is the visible state an edge moves between. For follow edges On is
// "following" and Count the follower count; for favorite edges On is
// membership in the favorite set and Count the favorite count of the first
// store copy that showed the recipe (0 if none did).
type Value struct {
	On    bool
	Count int
}

// Edge is one optimistic mutation: applied locally when the user acts,
// then confirmed or rolled back when the backend answers.
type Edge struct {
	ID        string
	Target    string
	Kind      Kind
	Prev      Value
	Next      Value
	Status    Status
	Token     sequencer.Token
	CreatedAt time.Time
	Err       error

	key string

	// applied holds, per registered store, the favorite counts the edge left
	// on that store's copies. Only copies still showing one of them are
	// reverted; a copy replaced by a reload keeps the server's count.
	applied []map[int]int
}

// Key returns the resource key the edge's token was issued for.
func (e Edge) Key() string { return e.key }

// delta is the favorite-count change the edge applied to every store copy.
func (e Edge) delta() int {
	if e.Next.On == e.Prev.On {
		return 0
	}
	if e.Next.On {
		return 1
	}
	return -1
}

// chain tracks the edges in flight for one resource key. base is the last
// value the server agreed with: the value before the first edge, replaced by
// every confirmation newer than the previous one.
type chain struct {
	inflight  int
	base      Value
	confirmed sequencer.Token

	// failed holds superseded edges that failed while a newer edge owned the
	// visible state.
	failed []*Edge
}
