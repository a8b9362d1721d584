package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/joestump/recipe-sync/internal/build"
	"github.com/joestump/recipe-sync/internal/model"
)

const defaultPageSize = 20

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int

	// HTTPClient is the base transport; the bearer token is layered on top.
	HTTPClient *http.Client
}

// Client implements Backend over the recipe service's HTTP/JSON API.
type Client struct {
	baseURL   string
	pageSize  int
	client    *http.Client
	userAgent string
}

var _ Backend = (*Client)(nil)

// NewClient returns a Client that sends opts.Token as a bearer token on every
// request.
func NewClient(opts ClientOptions) *Client {
	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	var hc *http.Client
	if opts.Token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
	} else if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		hc = &c
	} else {
		hc = &http.Client{}
	}
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		pageSize:  pageSize,
		client:    hc,
		userAgent: "recipe-sync/" + build.Version,
	}
}

// FetchFeedPage requests the page after cursor, or the first page for the
// zero cursor.
func (c *Client) FetchFeedPage(ctx context.Context, cursor model.FeedCursor) (model.Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor.Token != "" {
		q.Set("cursor", cursor.Token)
	}
	var resp RecipeListResponse
	if err := c.do(ctx, http.MethodGet, "/v1/recipes?"+q.Encode(), nil, &resp); err != nil {
		return model.Page{}, err
	}
	page := model.Page{Records: resp.Recipes}
	if resp.NextCursor != nil && *resp.NextCursor != "" {
		page.Next = model.FeedCursor{Token: *resp.NextCursor, HasMore: true}
	}
	return page, nil
}

// FetchCategories loads every category in one response.
func (c *Client) FetchCategories(ctx context.Context) (map[string][]model.Recipe, error) {
	var resp CategoriesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/categories", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Categories == nil {
		resp.Categories = map[string][]model.Recipe{}
	}
	return resp.Categories, nil
}

// FetchRegion returns recipes located inside region's bounding box.
func (c *Client) FetchRegion(ctx context.Context, region model.Region) ([]model.Recipe, error) {
	q := url.Values{}
	q.Set("lat", formatDegrees(region.Center.Lat))
	q.Set("lon", formatDegrees(region.Center.Lon))
	q.Set("lat_span", formatDegrees(region.LatDelta))
	q.Set("lon_span", formatDegrees(region.LonDelta))
	var resp RecipeListResponse
	if err := c.do(ctx, http.MethodGet, "/v1/recipes/region?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recipes, nil
}

// SetFollow follows or unfollows userID and returns the confirmed follower count.
func (c *Client) SetFollow(ctx context.Context, userID string, follow bool) (int, error) {
	var resp FollowResponse
	path := "/v1/users/" + url.PathEscape(userID) + "/follow"
	if err := c.do(ctx, putOrDelete(follow), path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Followers, nil
}

// SetFavorite favorites or unfavorites recipeID and returns the confirmed
// favorite count.
func (c *Client) SetFavorite(ctx context.Context, recipeID string, favorite bool) (int, error) {
	var resp FavoriteResponse
	path := "/v1/recipes/" + url.PathEscape(recipeID) + "/favorite"
	if err := c.do(ctx, putOrDelete(favorite), path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.FavoriteCount, nil
}

// GetUser fetches a user's public profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var eb ErrorResponse
		if json.Unmarshal(respBody, &eb) == nil && eb.Error != "" {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func putOrDelete(on bool) string {
	if on {
		return http.MethodPut
	}
	return http.MethodDelete
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
