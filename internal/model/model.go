// Package model defines the records shared by the feed stores, the mutation
// controller and the backend client.
package model

import (
	"regexp"
	"strings"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Region is a map viewport: a center plus latitude/longitude spans in degrees.
type Region struct {
	Center   Coordinate `json:"center"`
	LatDelta float64    `json:"lat_delta"`
	LonDelta float64    `json:"lon_delta"`
}

// Contains reports whether c falls inside the region's bounding box.
func (r Region) Contains(c Coordinate) bool {
	return c.Lat >= r.Center.Lat-r.LatDelta/2 && c.Lat <= r.Center.Lat+r.LatDelta/2 &&
		c.Lon >= r.Center.Lon-r.LonDelta/2 && c.Lon <= r.Center.Lon+r.LonDelta/2
}

// Recipe is a snapshot of a recipe as returned by the backend. Every store
// keeps its own copy, so favorite counts may diverge between stores until the
// next reload.
type Recipe struct {
	ID            string      `json:"id"`
	AuthorID      string      `json:"author_id"`
	AuthorName    string      `json:"author_name"`
	Title         string      `json:"title"`
	Emoji         string      `json:"emoji"`
	Category      string      `json:"category,omitempty"`
	Ingredients   []string    `json:"ingredients"`
	Steps         []string    `json:"steps"`
	Location      *Coordinate `json:"location,omitempty"`
	Rating        float64     `json:"rating"`
	FavoriteCount int         `json:"favorite_count"`
	Tags          []string    `json:"tags"`
}

// FeedCursor is the continuation marker for the paginated feed. The zero
// value requests the first page.
type FeedCursor struct {
	Token   string
	HasMore bool
}

// Page is one page of the paginated feed.
type Page struct {
	Records []Recipe
	Next    FeedCursor
}

// User is the public profile of a recipe author.
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// FollowerCount is the number of users following u.
func (u *User) FollowerCount() int {
	return len(u.Followers)
}

// FollowedBy reports whether userID appears in u's followers.
func (u *User) FollowedBy(userID string) bool {
	for _, id := range u.Followers {
		if id == userID {
			return true
		}
	}
	return false
}

var categoryKeyStripRe = regexp.MustCompile(`[^a-z0-9-]`)

// CategoryKey derives the stable key for a category name:
// lowercase, spaces/underscores to hyphens, strip non-[a-z0-9-].
func CategoryKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = categoryKeyStripRe.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
