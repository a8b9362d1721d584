package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joestump/recipe-sync/internal/feed"
	"github.com/joestump/recipe-sync/internal/model"
)

func newFeedCmd() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the paginated recipe feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := feed.NewPagedStore(a.feedDeps(ctx), feed.DefaultFeedKey)
			if err != nil {
				return err
			}
			defer s.Close()

			idle := func() bool { return !s.Snapshot().State.Loading() }
			s.Reload()
			if err := a.until(ctx, idle); err != nil {
				return err
			}
			for loaded := 1; loaded < pages && s.LoadMore(); loaded++ {
				if err := a.until(ctx, idle); err != nil {
					return err
				}
			}

			snap := s.Snapshot()
			if snap.State == feed.StateError {
				return fmt.Errorf("load feed: %w", snap.Err)
			}
			out := cmd.OutOrStdout()
			for _, r := range snap.Records {
				printRecipe(out, r)
			}
			if snap.Cursor.HasMore {
				fmt.Fprintln(out, "… more recipes available, use --pages to load them")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print recipes grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := feed.NewCategoryStore(a.feedDeps(ctx))
			if err != nil {
				return err
			}
			defer s.Close()

			s.LoadAll()
			if err := a.until(ctx, func() bool { return !s.Snapshot().State.Loading() }); err != nil {
				return err
			}

			snap := s.Snapshot()
			if snap.State == feed.StateError {
				return fmt.Errorf("load categories: %w", snap.Err)
			}
			out := cmd.OutOrStdout()
			for _, key := range snap.Keys {
				fmt.Fprintf(out, "%s (%s)\n", snap.Names[key], key)
				for _, r := range snap.Categories[key] {
					fmt.Fprint(out, "  ")
					printRecipe(out, r)
				}
			}
			return nil
		},
	}
}

func newGeoCmd() *cobra.Command {
	var lat, lon, span float64
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Print recipes located inside a map region",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := feed.NewGeoStore(a.feedDeps(ctx))
			if err != nil {
				return err
			}
			defer s.Close()

			s.SetViewport(model.Region{
				Center:   model.Coordinate{Lat: lat, Lon: lon},
				LatDelta: span,
				LonDelta: span,
			})
			if !s.SearchViewport() {
				return fmt.Errorf("invalid region: span must be positive")
			}
			if err := a.until(ctx, func() bool { return !s.Snapshot().State.Loading() }); err != nil {
				return err
			}

			snap := s.Snapshot()
			if snap.State == feed.StateError {
				return fmt.Errorf("search region: %w", snap.Err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d recipes near %.4f,%.4f\n", len(snap.Recipes), lat, lon)
			for _, an := range snap.Annotations {
				fmt.Fprintf(out, "%s %-28s %9.4f %9.4f  %s\n", an.Glyph, an.Title, an.Coordinate.Lat, an.Coordinate.Lon, an.RecipeID)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 40.7128, "latitude of the region center")
	cmd.Flags().Float64Var(&lon, "lon", -74.0060, "longitude of the region center")
	cmd.Flags().Float64Var(&span, "span", 0.5, "width and height of the region in degrees")
	return cmd
}

func printRecipe(w io.Writer, r model.Recipe) {
	emoji := r.Emoji
	if emoji == "" {
		emoji = feed.DefaultGlyph
	}
	tags := ""
	if len(r.Tags) > 0 {
		tags = " #" + strings.Join(r.Tags, " #")
	}
	fmt.Fprintf(w, "%s %-28s by %-10s ★%.1f ♥%d  %s%s\n", emoji, r.Title, r.AuthorName, r.Rating, r.FavoriteCount, r.ID, tags)
}
