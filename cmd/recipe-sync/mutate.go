package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joestump/recipe-sync/internal/favorites"
	"github.com/joestump/recipe-sync/internal/mutation"
)

func newFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow USER_ID",
		Short: "Toggle following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ctrl, err := a.controller(ctx, favorites.NewCache(nil))
			if err != nil {
				return err
			}
			defer ctrl.Close()

			userID := args[0]
			ctrl.LoadUser(userID)
			if err := a.queue.Step(ctx); err != nil {
				return err
			}
			if err := ctrl.LoadErr(userID); err != nil {
				return fmt.Errorf("load user %s: %w", userID, err)
			}

			edge, err := ctrl.ToggleFollow(userID)
			if err != nil {
				return fmt.Errorf("follow %s: %w", userID, err)
			}
			out := cmd.OutOrStdout()
			st, _ := ctrl.Following(userID)
			fmt.Fprintf(out, "%s %s: %d followers (pending)\n", edge.Kind, nameOr(st.Username, userID), st.Followers)

			settled := settledEdge(ctrl, edge.ID)
			if err := a.until(ctx, settled.done); err != nil {
				return err
			}
			st, _ = ctrl.Following(userID)
			fmt.Fprintf(out, "%s %s: %d followers (%s)\n", edge.Kind, nameOr(st.Username, userID), st.Followers, settled.edge.Status)
			return settled.edge.Err
		},
	}
}

func newFavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite RECIPE_ID",
		Short: "Toggle a recipe in the local favorite set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cache, database, err := a.openFavorites(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctrl, err := a.controller(ctx, cache)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			recipeID := args[0]
			edge, err := ctrl.ToggleFavorite(recipeID)
			if err != nil {
				return fmt.Errorf("favorite %s: %w", recipeID, err)
			}
			settled := settledEdge(ctrl, edge.ID)
			if err := a.until(ctx, settled.done); err != nil {
				return err
			}
			cache.Drain()

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s, favorited=%t\n",
				edge.Kind, recipeID, settled.edge.Status, ctrl.IsFavorite(recipeID))
			return settled.edge.Err
		},
	}
}

func newFavoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List the locally stored favorite recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cache, database, err := a.openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			out := cmd.OutOrStdout()
			for _, id := range cache.IDs() {
				fmt.Fprintln(out, id)
			}
			fmt.Fprintf(out, "%d favorites\n", cache.Len())
			return nil
		},
	}
}

// edgeWatch records the final state of one edge.
type edgeWatch struct {
	id   string
	edge mutation.Edge
	set  bool
}

func settledEdge(ctrl *mutation.Controller, id string) *edgeWatch {
	w := &edgeWatch{id: id}
	ctrl.Subscribe(func(e mutation.Edge) {
		if e.ID == w.id && e.Status != mutation.StatusPending {
			w.edge, w.set = e, true
		}
	})
	return w
}

func (w *edgeWatch) done() bool { return w.set }

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
