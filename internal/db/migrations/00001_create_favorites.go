package migrations

// The favorites table stores confirmed favorite membership only; optimistic
// state lives in memory. Column types differ per driver, so this is a Go
// migration rather than SQL.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateFavorites, downCreateFavorites)
}

func upCreateFavorites(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS favorites (
    recipe_id    TEXT PRIMARY KEY,
    favorited_at TIMESTAMPTZ NOT NULL
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS favorites (
    recipe_id    VARCHAR(191) PRIMARY KEY,
    favorited_at TIMESTAMP(6) NOT NULL
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS favorites (
    recipe_id    TEXT PRIMARY KEY,
    favorited_at DATETIME NOT NULL
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create favorites table: %w", err)
	}
	return nil
}

func downCreateFavorites(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS favorites`)
	return err
}
