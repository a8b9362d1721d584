package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/recipe-sync/internal/config"
	"github.com/joestump/recipe-sync/internal/devserver"
	"github.com/joestump/recipe-sync/internal/session"
)

func newDevServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devserver",
		Short: "Serve fixture recipes over the recipe API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			store := devserver.NewStore()
			devserver.LoadFixtures(store)
			srv := devserver.New(devserver.Options{
				Store:     store,
				Secret:    []byte(cfg.DevServer.Secret),
				Latency:   cfg.DevServer.Latency,
				FailEvery: cfg.DevServer.FailEvery,
			})

			httpSrv := &http.Server{
				Addr:              cfg.DevServer.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(ctx)
			}()

			log.Printf("serving %d fixture recipes on %s", store.Len(), cfg.DevServer.Addr)
			log.Printf("get a token with: recipe-sync token --user ada")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		user string
		id   string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a dev server bearer token for a fixture user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}
			if id == "" {
				id = devserver.FixtureID("user", user)
			}
			token, err := session.Sign([]byte(cfg.DevServer.Secret), id, user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "ada", "fixture username to sign for")
	cmd.Flags().StringVar(&id, "id", "", "user id to sign for; defaults to the fixture id of --user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 for no expiry")
	return cmd
}
