// Package devserver is a development backend that serves fixture recipes
// over the same HTTP/JSON contract backend.Client speaks. It exists so the
// CLI and the integration tests have something real to talk to.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/metrics"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

// Options configures a Server.
type Options struct {
	Store  *Store
	Secret []byte

	// Latency is added to every API response, to make optimistic updates
	// visible when driving the CLI by hand.
	Latency time.Duration

	// FailEvery makes every Nth follow or favorite request fail with 503.
	// Zero disables failure injection.
	FailEvery int
}

// Server serves the recipe API.
type Server struct {
	store     *Store
	secret    []byte
	latency   time.Duration
	failEvery int64
	mutations atomic.Int64
}

// New returns a Server over opts.Store, or over a fresh empty store when
// opts.Store is nil.
func New(opts Options) *Server {
	s := opts.Store
	if s == nil {
		s = NewStore()
	}
	return &Server{
		store:     s,
		secret:    opts.Secret,
		latency:   opts.Latency,
		failEvery: int64(opts.FailEvery),
	}
}

// Store returns the server's data.
func (s *Server) Store() *Store { return s.store }

// Handler returns the chi router for the API plus /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.instrument)
		r.Use(jsonContentType)
		r.Use(s.authenticate)

		r.Get("/recipes", s.listRecipes)
		r.Get("/recipes/region", s.regionRecipes)
		r.Put("/recipes/{id}/favorite", s.setFavorite(true))
		r.Delete("/recipes/{id}/favorite", s.setFavorite(false))
		r.Get("/categories", s.categories)
		r.Get("/users/{id}", s.getUser)
		r.Put("/users/{id}/follow", s.setFollow(true))
		r.Delete("/users/{id}/follow", s.setFollow(false))
	})
	return r
}

// IdentityFromContext returns the caller injected by the bearer middleware.
func IdentityFromContext(ctx context.Context) *session.Identity {
	id, _ := ctx.Value(identityKey).(*session.Identity)
	return id
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
			}
		}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = r.Method + " " + rc.RoutePattern()
		}
		metrics.DevServerRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		metrics.DevServerRequestDuration.Observe(time.Since(start).Seconds())
	})
}

// authenticate accepts only bearer JWTs signed with the server secret.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
			return
		}
		id, err := session.Verify(s.secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cursor", "BAD_REQUEST")
		return
	}
	recipes, more := s.store.Page(offset, limit)
	resp := backend.RecipeListResponse{Recipes: recipes}
	if more {
		next := encodeCursor(offset + len(recipes))
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) regionRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var vals [4]float64
	for i, name := range []string{"lat", "lon", "lat_span", "lon_span"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+name, "BAD_REQUEST")
			return
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		writeError(w, http.StatusBadRequest, "spans must be positive", "BAD_REQUEST")
		return
	}
	region := model.Region{
		Center:   model.Coordinate{Lat: vals[0], Lon: vals[1]},
		LatDelta: vals[2],
		LonDelta: vals[3],
	}
	writeJSON(w, http.StatusOK, backend.RecipeListResponse{Recipes: s.store.InRegion(region)})
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.CategoriesResponse{Categories: s.store.Categories()})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) setFollow(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.injectFailure(w) {
			return
		}
		caller := IdentityFromContext(r.Context())
		n, err := s.store.SetFollow(caller.UserID, chi.URLParam(r, "id"), on)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, backend.FollowResponse{Followers: n})
	}
}

func (s *Server) setFavorite(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.injectFailure(w) {
			return
		}
		caller := IdentityFromContext(r.Context())
		n, err := s.store.SetFavorite(caller.UserID, chi.URLParam(r, "id"), on)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, backend.FavoriteResponse{FavoriteCount: n})
	}
}

func (s *Server) injectFailure(w http.ResponseWriter) bool {
	if s.failEvery <= 0 {
		return false
	}
	if s.mutations.Add(1)%s.failEvery != 0 {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, "injected failure", "UNAVAILABLE")
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrSelfFollow):
		writeError(w, http.StatusBadRequest, err.Error(), "SELF_FOLLOW")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, backend.ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
