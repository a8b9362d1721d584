package mutation

import (
	"context"

	"github.com/golang/glog"

	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/metrics"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
)

func followKey(userID string) string { return "follow:" + userID }
func favoriteKey(recipeID string) string { return "favorite:" + recipeID }
func userKey(userID string) string { return "user:" + userID }

// Seed records follow state already known to the caller, for example from a
// profile fetched elsewhere. It is ignored while a follow edge is pending.
func (c *Controller) Seed(userID string, st FollowState) {
	if _, busy := c.pending[followKey(userID)]; busy {
		return
	}
	c.follows[userID] = st
}

// LoadUser fetches userID's profile and derives follow state from it. It
// returns false when the request was not issued. A failed fetch is reported
// by LoadErr.
func (c *Controller) LoadUser(userID string) bool {
	if userID == "" {
		return false
	}
	key := userKey(userID)
	token := c.seq.Issue(key)
	metrics.RequestsIssuedTotal.WithLabelValues(sequencer.Kind(key)).Inc()
	dispatch.Go(c.ctx, c.exec,
		func(ctx context.Context) (*model.User, error) {
			return c.backend.GetUser(ctx, userID)
		},
		func(u *model.User, err error) {
			if !c.seq.IsCurrent(key, token) {
				metrics.StaleResponsesTotal.WithLabelValues(sequencer.Kind(key)).Inc()
				return
			}
			if err != nil {
				glog.Warningf("mutation: load user %s: %v", userID, err)
				c.loadErrs[userID] = err
				return
			}
			delete(c.loadErrs, userID)
			c.applyUser(u)
		})
	return true
}

// LoadErr returns the error of the last LoadUser call for userID that
// failed, or nil once a later call succeeded.
func (c *Controller) LoadErr(userID string) error {
	return c.loadErrs[userID]
}

func (c *Controller) applyUser(u *model.User) {
	st := c.follows[u.ID]
	st.Username = u.Username
	// A pending edge owns Following and Followers until it settles.
	if _, busy := c.pending[followKey(u.ID)]; !busy {
		st.Following = c.session != nil && u.FollowedBy(c.session.UserID)
		st.Followers = u.FollowerCount()
	}
	c.follows[u.ID] = st
}

// ToggleFollow flips whether the signed-in user follows userID. The new state
// is visible immediately; the returned edge is pending.
func (c *Controller) ToggleFollow(userID string) (Edge, error) {
	if userID == "" {
		return Edge{}, ErrEmptyID
	}
	if c.session == nil || c.session.UserID == "" {
		return Edge{}, ErrNoSession
	}
	if c.session.IsCurrentUser(userID) {
		return Edge{}, ErrSelfFollow
	}
	prev, ok := c.follows[userID]
	if !ok {
		return Edge{}, ErrUnknownUser
	}

	next := prev
	next.Following = !prev.Following
	kind := KindFollow
	if next.Following {
		next.Followers++
	} else {
		kind = KindUnfollow
		next.Followers--
	}
	c.follows[userID] = next

	e := c.newEdge(followKey(userID), userID, kind,
		Value{On: prev.Following, Count: prev.Followers},
		Value{On: next.Following, Count: next.Followers})
	c.publish(e)

	want := next.Following
	dispatch.Go(c.ctx, c.exec,
		func(ctx context.Context) (int, error) {
			return c.backend.SetFollow(ctx, userID, want)
		},
		func(followers int, err error) {
			c.resolveFollow(e, followers, err)
		})
	return *e, nil
}

func (c *Controller) resolveFollow(e *Edge, followers int, err error) {
	current, _ := c.settle(e, followers, err)
	st := c.follows[e.Target]
	if current {
		if err != nil {
			st.Following = e.Prev.On
			st.Followers = e.Prev.Count
		} else {
			st.Followers = followers
		}
	}
	if ch := c.settled(e.key); ch != nil && st.Following != ch.base.On {
		glog.V(1).Infof("mutation: %s %s reconciled to following=%t", e.Kind, e.Target, ch.base.On)
		st.Following = ch.base.On
		st.Followers = ch.base.Count
	}
	c.follows[e.Target] = st
	c.publish(e)
}

// ToggleFavorite flips membership of recipeID in the favorite set and adjusts
// the favorite count of every store copy. The returned edge is pending.
func (c *Controller) ToggleFavorite(recipeID string) (Edge, error) {
	if recipeID == "" {
		return Edge{}, ErrEmptyID
	}
	was := c.favorites.Contains(recipeID)
	c.favorites.Set(recipeID, !was)

	delta := 1
	kind := KindFavorite
	if was {
		delta = -1
		kind = KindUnfavorite
	}
	count, seen, applied := c.adjustCopies(recipeID, delta)
	prev := Value{On: was}
	next := Value{On: !was}
	if seen {
		prev.Count = count
		next.Count = count + delta
	}

	e := c.newEdge(favoriteKey(recipeID), recipeID, kind, prev, next)
	e.applied = applied
	c.publish(e)

	want := !was
	dispatch.Go(c.ctx, c.exec,
		func(ctx context.Context) (int, error) {
			return c.backend.SetFavorite(ctx, recipeID, want)
		},
		func(total int, err error) {
			c.resolveFavorite(e, total, err)
		})
	return *e, nil
}

func (c *Controller) resolveFavorite(e *Edge, total int, err error) {
	current, newest := c.settle(e, total, err)
	switch {
	case err != nil && current:
		c.favorites.Set(e.Target, e.Prev.On)
		c.revertCopies(e)
	case err == nil && newest:
		// A current confirmation is always the newest one.
		c.favorites.Persist(e.Target, e.Next.On)
		if current {
			c.setCopies(e.Target, total)
		}
	}
	if ch := c.settled(e.key); ch != nil && c.favorites.Contains(e.Target) != ch.base.On {
		glog.V(1).Infof("mutation: %s %s reconciled to favorite=%t", e.Kind, e.Target, ch.base.On)
		for i := len(ch.failed) - 1; i >= 0; i-- {
			if f := ch.failed[i]; f.Token > ch.confirmed {
				c.revertCopies(f)
			}
		}
		c.favorites.Set(e.Target, ch.base.On)
	}
	c.publish(e)
}

// adjustCopies adds delta to the favorite count of every copy of recipeID. It
// returns the count the first copy had before the change and, per store, the
// counts the change left behind.
func (c *Controller) adjustCopies(recipeID string, delta int) (before int, seen bool, applied []map[int]int) {
	applied = make([]map[int]int, len(c.stores))
	for i, s := range c.stores {
		left := make(map[int]int)
		s.UpdateRecipe(recipeID, func(r *model.Recipe) {
			if !seen {
				before, seen = r.FavoriteCount, true
			}
			r.FavoriteCount += delta
			left[r.FavoriteCount]++
		})
		applied[i] = left
	}
	return before, seen, applied
}

// revertCopies undoes e's count change on the copies that still show the
// count e left. A copy replaced since then, by a reload or a confirmation,
// already carries a server count and is left alone.
func (c *Controller) revertCopies(e *Edge) {
	delta := e.delta()
	for i, left := range e.applied {
		c.stores[i].UpdateRecipe(e.Target, func(r *model.Recipe) {
			if left[r.FavoriteCount] == 0 {
				return
			}
			left[r.FavoriteCount]--
			r.FavoriteCount -= delta
		})
	}
}

func (c *Controller) setCopies(recipeID string, total int) {
	for _, s := range c.stores {
		s.UpdateRecipe(recipeID, func(r *model.Recipe) {
			r.FavoriteCount = total
		})
	}
}
