package feed

import (
	"context"
	"fmt"
	"math"

	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/sequencer"
)

// DefaultGlyph marks recipes that have no emoji of their own.
const DefaultGlyph = "🍽️"

const (
	minSpan = 1.0 / 1024
	maxSpan = 360.0

	// gridDivisions is how many grid cells one span covers along each axis
	// when snapping the region center.
	gridDivisions = 4
)

// Annotation is a map pin for one recipe.
type Annotation struct {
	RecipeID   string
	Title      string
	Glyph      string
	Coordinate model.Coordinate
}

// GeoSnapshot is a read-only view of a GeoStore. Region is the area the
// visible recipes were fetched for; Viewport is wherever the map was last
// moved, which may differ until the user searches again.
type GeoSnapshot struct {
	Region      model.Region
	Viewport    model.Region
	Recipes     []model.Recipe
	Annotations []Annotation
	State       LoadState
	Err         error
}

// GeoStore keeps the recipes visible for a map viewport. It only queries the
// backend on an explicit Search; moving the map just records the viewport.
type GeoStore struct {
	base[GeoSnapshot]

	region      model.Region
	viewport    model.Region
	recipes     []model.Recipe
	annotations []Annotation
	state       LoadState
	err         error

	// latestKey is the bucket of the most recent search; responses for any
	// other bucket are stale even if their own token is current.
	latestKey string
}

// NewGeoStore returns an empty GeoStore.
func NewGeoStore(deps Deps) (*GeoStore, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &GeoStore{base: newBase[GeoSnapshot]("geo", deps)}, nil
}

// RegionKey discretizes region into a resource key. Spans round up to a
// power of two and the center snaps to a grid a quarter of that span wide,
// so nearby viewports share a key and the key space stays bounded.
func RegionKey(region model.Region) string {
	latSpan := snapSpan(region.LatDelta)
	lonSpan := snapSpan(region.LonDelta)
	latCell := int64(math.Round(region.Center.Lat / (latSpan / gridDivisions)))
	lonCell := int64(math.Round(region.Center.Lon / (lonSpan / gridDivisions)))
	return fmt.Sprintf("geo:%g:%g:%d:%d", latSpan, lonSpan, latCell, lonCell)
}

func snapSpan(v float64) float64 {
	if math.IsNaN(v) || v <= minSpan {
		return minSpan
	}
	if v >= maxSpan {
		return maxSpan
	}
	return math.Pow(2, math.Ceil(math.Log2(v)))
}

// SetViewport records where the map currently is. It never queries the
// backend; continuous panning must not turn into a request stream.
func (s *GeoStore) SetViewport(region model.Region) {
	s.viewport = region
	s.notify()
}

// SearchViewport searches the last recorded viewport.
func (s *GeoStore) SearchViewport() bool {
	if s.viewport.LatDelta <= 0 || s.viewport.LonDelta <= 0 {
		return false
	}
	return s.Search(s.viewport)
}

// Search queries recipes inside region and, if no newer search supersedes
// it, replaces the visible set and its annotations.
func (s *GeoStore) Search(region model.Region) bool {
	if region.LatDelta <= 0 || region.LonDelta <= 0 {
		return false
	}
	key := RegionKey(region)
	s.latestKey = key
	token := s.issue(key)
	s.state = StateLoadingInitial
	s.err = nil
	s.notify()

	dispatch.Go(s.ctx, s.exec, func(ctx context.Context) ([]model.Recipe, error) {
		return s.backend.FetchRegion(ctx, region)
	}, func(recipes []model.Recipe, err error) {
		s.apply(key, token, region, recipes, err)
	})
	return true
}

func (s *GeoStore) apply(key string, token sequencer.Token, region model.Region, recipes []model.Recipe, err error) {
	if key != s.latestKey {
		s.discard(key, token)
		return
	}
	if !s.current(key, token) {
		return
	}
	if err != nil {
		s.failed(key, err)
		s.state = StateError
		s.err = err
		s.notify()
		return
	}
	s.region = region
	s.recipes = recipes
	s.annotations = annotate(recipes)
	s.state = StateIdle
	s.notify()
}

// UpdateRecipe applies fn to this store's copy of the recipe.
func (s *GeoStore) UpdateRecipe(id string, fn func(*model.Recipe)) int {
	n := updateCopies(s.recipes, id, fn)
	if n > 0 {
		s.notify()
	}
	return n
}

// Snapshot returns a copy of the current state.
func (s *GeoStore) Snapshot() GeoSnapshot {
	recipes := make([]model.Recipe, len(s.recipes))
	copy(recipes, s.recipes)
	annotations := make([]Annotation, len(s.annotations))
	copy(annotations, s.annotations)
	return GeoSnapshot{
		Region:      s.region,
		Viewport:    s.viewport,
		Recipes:     recipes,
		Annotations: annotations,
		State:       s.state,
		Err:         s.err,
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *GeoStore) Subscribe(fn func(GeoSnapshot)) func() {
	return s.subscribe(fn)
}

func (s *GeoStore) notify() {
	if len(s.subs) == 0 {
		return
	}
	s.publish(s.Snapshot())
}

func annotate(recipes []model.Recipe) []Annotation {
	out := make([]Annotation, 0, len(recipes))
	for _, r := range recipes {
		if r.Location == nil {
			continue
		}
		glyph := r.Emoji
		if glyph == "" {
			glyph = DefaultGlyph
		}
		out = append(out, Annotation{
			RecipeID:   r.ID,
			Title:      r.Title,
			Glyph:      glyph,
			Coordinate: *r.Location,
		})
	}
	return out
}
