package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recipe-sync",
		Short: "Keep a local view of the recipe feed in sync with the recipe service",
		Long:  "recipe-sync: paged, category and map feeds plus optimistic follows and favorites.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// glog complains about logging before flag.Parse; cobra already
			// parsed the glog flags through the shared flag set.
			_ = flag.CommandLine.Parse(nil)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newGeoCmd())
	rootCmd.AddCommand(newFollowCmd())
	rootCmd.AddCommand(newFavoriteCmd())
	rootCmd.AddCommand(newFavoritesCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newDevServerCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
