package devserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/devserver"
	"github.com/joestump/recipe-sync/internal/model"
	"github.com/joestump/recipe-sync/internal/session"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	Server *devserver.Server
	Router http.Handler
	Token  string
	UserID string
}

// newTestEnv builds a server over the fixtures and a token for the "ada"
// fixture user.
func newTestEnv(t *testing.T, opts devserver.Options) *testEnv {
	t.Helper()
	store := devserver.NewStore()
	devserver.LoadFixtures(store)
	opts.Store = store
	opts.Secret = testSecret
	srv := devserver.New(opts)

	userID := devserver.FixtureID("user", "ada")
	token, err := session.Sign(testSecret, userID, "ada", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return &testEnv{Server: srv, Router: srv.Handler(), Token: token, UserID: userID}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+e.Token)
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestRecipes_PaginatesToTheEnd(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	total := env.Server.Store().Len()

	seen := map[string]bool{}
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > total {
			t.Fatal("pagination did not terminate")
		}
		path := "/v1/recipes?limit=5"
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		rec := env.do(t, "GET", path)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp backend.RecipeListResponse
		decode(t, rec, &resp)
		for _, r := range resp.Recipes {
			if seen[r.ID] {
				t.Errorf("recipe %s served twice", r.ID)
			}
			seen[r.ID] = true
		}
		if resp.NextCursor == nil {
			break
		}
		cursor = *resp.NextCursor
	}
	if len(seen) != total {
		t.Errorf("served %d recipes, want %d", len(seen), total)
	}
}

func TestRecipes_InvalidCursor(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	rec := env.do(t, "GET", "/v1/recipes?cursor=%21%21")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAPI_RequiresValidBearer(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})

	req := httptest.NewRequest("GET", "/v1/recipes", nil)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	forged, err := session.Sign([]byte("other-secret"), env.UserID, "ada", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	env.Token = forged
	rec = env.do(t, "GET", "/v1/recipes")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body backend.ErrorResponse
	decode(t, rec, &body)
	if body.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
	}
}

func TestCategories_GroupsByName(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	rec := env.do(t, "GET", "/v1/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp backend.CategoriesResponse
	decode(t, rec, &resp)
	if len(resp.Categories["Desserts"]) != 2 {
		t.Errorf("Desserts = %d recipes, want 2", len(resp.Categories["Desserts"]))
	}
	for name, recipes := range resp.Categories {
		for _, r := range recipes {
			if r.Category != name {
				t.Errorf("recipe %s in %q has category %q", r.ID, name, r.Category)
			}
		}
	}
}

func TestRegion_FiltersByBoundingBox(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	rec := env.do(t, "GET", "/v1/recipes/region?lat=40.7&lon=-74.0&lat_span=0.2&lon_span=0.2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp backend.RecipeListResponse
	decode(t, rec, &resp)
	if len(resp.Recipes) != 3 {
		t.Fatalf("recipes in New York = %d, want 3", len(resp.Recipes))
	}

	rec = env.do(t, "GET", "/v1/recipes/region?lat=abc&lon=0&lat_span=1&lon_span=1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad lat status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestFollow_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	target := devserver.FixtureID("user", "bao")

	for i := 0; i < 2; i++ {
		rec := env.do(t, "PUT", "/v1/users/"+target+"/follow")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
		}
		var resp backend.FollowResponse
		decode(t, rec, &resp)
		if resp.Followers != 1 {
			t.Errorf("followers after PUT %d = %d, want 1", i+1, resp.Followers)
		}
	}

	rec := env.do(t, "GET", "/v1/users/"+target)
	var u model.User
	decode(t, rec, &u)
	if !u.FollowedBy(env.UserID) {
		t.Errorf("followers = %v, want to include %s", u.Followers, env.UserID)
	}

	rec = env.do(t, "DELETE", "/v1/users/"+target+"/follow")
	var resp backend.FollowResponse
	decode(t, rec, &resp)
	if resp.Followers != 0 {
		t.Errorf("followers after DELETE = %d, want 0", resp.Followers)
	}
}

func TestFollow_Errors(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})

	rec := env.do(t, "PUT", "/v1/users/"+env.UserID+"/follow")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self follow status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = env.do(t, "PUT", "/v1/users/nobody/follow")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFavorite_CountsOncePerUser(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	id := devserver.FixtureID("recipe", "Mochi")

	var resp backend.FavoriteResponse
	decode(t, env.do(t, "PUT", "/v1/recipes/"+id+"/favorite"), &resp)
	if resp.FavoriteCount != 1 {
		t.Errorf("count = %d, want 1", resp.FavoriteCount)
	}
	decode(t, env.do(t, "PUT", "/v1/recipes/"+id+"/favorite"), &resp)
	if resp.FavoriteCount != 1 {
		t.Errorf("repeated PUT count = %d, want 1", resp.FavoriteCount)
	}
	decode(t, env.do(t, "DELETE", "/v1/recipes/"+id+"/favorite"), &resp)
	if resp.FavoriteCount != 0 {
		t.Errorf("count after DELETE = %d, want 0", resp.FavoriteCount)
	}

	rec := env.do(t, "PUT", "/v1/recipes/missing/favorite")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown recipe status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFailEvery_InjectsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, devserver.Options{FailEvery: 2})
	id := devserver.FixtureID("recipe", "Mochi")

	if rec := env.do(t, "PUT", "/v1/recipes/"+id+"/favorite"); rec.Code != http.StatusOK {
		t.Errorf("first mutation status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := env.do(t, "PUT", "/v1/recipes/"+id+"/favorite"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second mutation status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	env := newTestEnv(t, devserver.Options{})
	env.do(t, "GET", "/v1/categories")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "recipesync_devserver_requests_total") {
		t.Error("metrics output should include the request counter")
	}

	req = httptest.NewRequest("GET", "/healthz", nil)
	rec = httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}
