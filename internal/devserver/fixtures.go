package devserver

import "github.com/joestump/recipe-sync/internal/model"

type fixtureUser struct {
	name string
}

type fixtureRecipe struct {
	title    string
	emoji    string
	category string
	author   string
	lat, lon float64
	rating   float64
	tags     []string
}

var fixtureUsers = []fixtureUser{{"ada"}, {"bao"}, {"chiara"}, {"dev"}}

var fixtureRecipes = []fixtureRecipe{
	{"Shakshuka", "🍳", "Breakfast", "ada", 40.7128, -74.0060, 4.6, []string{"eggs", "one-pan"}},
	{"Buttermilk Pancakes", "🥞", "Breakfast", "bao", 40.7306, -73.9866, 4.4, []string{"sweet"}},
	{"Pork Bao", "🥟", "Main Dish", "bao", 37.7749, -122.4194, 4.8, []string{"steamed"}},
	{"Cacio e Pepe", "🍝", "Main Dish", "chiara", 41.9028, 12.4964, 4.9, []string{"pasta", "quick"}},
	{"Ribollita", "🥣", "Soups & Stews", "chiara", 43.7696, 11.2558, 4.5, []string{"vegetarian"}},
	{"Pho Bo", "🍜", "Soups & Stews", "dev", 21.0278, 105.8342, 4.7, []string{"broth"}},
	{"Tarte Tatin", "🥧", "Desserts", "ada", 48.8566, 2.3522, 4.3, []string{"apples"}},
	{"Mochi", "🍡", "Desserts", "dev", 35.6762, 139.6503, 4.2, []string{"gluten-free"}},
	{"Fish Tacos", "🌮", "Main Dish", "ada", 32.7157, -117.1611, 4.5, []string{"quick"}},
	{"Bagels", "🥯", "Breakfast", "dev", 40.6782, -73.9442, 4.1, []string{"baking"}},
	{"Afternoon Scones", "🫖", "Baking", "bao", 51.5074, -0.1278, 4.0, []string{"baking", "sweet"}},
	{"Margherita", "🍕", "Main Dish", "chiara", 40.8518, 14.2681, 4.8, []string{"baking"}},
}

// LoadFixtures fills s with a small, deterministic set of users and
// recipes spread over a handful of cities and categories.
func LoadFixtures(s *Store) {
	for _, u := range fixtureUsers {
		s.AddUser(model.User{ID: FixtureID("user", u.name), Username: u.name})
	}
	for _, f := range fixtureRecipes {
		loc := model.Coordinate{Lat: f.lat, Lon: f.lon}
		s.AddRecipe(model.Recipe{
			ID:          FixtureID("recipe", f.title),
			AuthorID:    FixtureID("user", f.author),
			AuthorName:  f.author,
			Title:       f.title,
			Emoji:       f.emoji,
			Category:    f.category,
			Ingredients: []string{},
			Steps:       []string{},
			Location:    &loc,
			Rating:      f.rating,
			Tags:        f.tags,
		})
	}
}
