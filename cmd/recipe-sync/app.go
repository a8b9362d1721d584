package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/recipe-sync/internal/backend"
	"github.com/joestump/recipe-sync/internal/config"
	"github.com/joestump/recipe-sync/internal/db"
	"github.com/joestump/recipe-sync/internal/dispatch"
	"github.com/joestump/recipe-sync/internal/favorites"
	"github.com/joestump/recipe-sync/internal/feed"
	"github.com/joestump/recipe-sync/internal/mutation"
	"github.com/joestump/recipe-sync/internal/sequencer"
	"github.com/joestump/recipe-sync/internal/session"
)

// app is the client side wired from config: one backend client, one shared
// sequencer, and the queue every store completion runs on. Commands drive
// the queue themselves until the state they wait for is reached.
type app struct {
	cfg     *config.Config
	backend *backend.Client
	seq     *sequencer.Sequencer
	queue   *dispatch.Queue
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg: cfg,
		backend: backend.NewClient(backend.ClientOptions{
			BaseURL:  cfg.API.URL,
			Token:    cfg.API.Token,
			Timeout:  cfg.API.Timeout,
			PageSize: cfg.Feed.PageSize,
		}),
		seq:   sequencer.New(),
		queue: dispatch.NewQueue(),
	}, nil
}

func (a *app) feedDeps(ctx context.Context) feed.Deps {
	return feed.Deps{Backend: a.backend, Sequencer: a.seq, Executor: a.queue, Context: ctx}
}

// until runs queued completions until done reports true.
func (a *app) until(ctx context.Context, done func() bool) error {
	for !done() {
		if err := a.queue.Step(ctx); err != nil {
			return fmt.Errorf("waiting for the recipe service: %w", err)
		}
	}
	return nil
}

// openFavorites opens the favorites database, migrates it and loads the
// persisted set into a cache.
func (a *app) openFavorites(ctx context.Context) (*favorites.Cache, *sqlx.DB, error) {
	database, err := db.New(a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(database, a.cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	cache := favorites.NewCache(favorites.NewSQLPersister(database))
	if err := cache.Load(ctx); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return cache, database, nil
}

// controller builds a mutation controller for the identity carried by the
// configured API token.
func (a *app) controller(ctx context.Context, cache *favorites.Cache, stores ...mutation.RecipeUpdater) (*mutation.Controller, error) {
	var id *session.Identity
	if a.cfg.API.Token != "" {
		parsed, err := session.FromToken(a.cfg.API.Token)
		if err != nil {
			return nil, err
		}
		id = parsed
	}
	return mutation.New(mutation.Deps{
		Backend:   a.backend,
		Sequencer: a.seq,
		Executor:  a.queue,
		Favorites: cache,
		Session:   id,
		Stores:    stores,
		Context:   ctx,
	})
}
