package favorites

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLPersister stores favorites in the favorites table.
type SQLPersister struct {
	db *sqlx.DB
}

// NewSQLPersister returns a Persister on db. The favorites migration must
// have run.
func NewSQLPersister(db *sqlx.DB) *SQLPersister {
	return &SQLPersister{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *SQLPersister) q(query string) string { return s.db.Rebind(query) }

// Load returns every favorited recipe ID.
func (s *SQLPersister) Load(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `SELECT recipe_id FROM favorites ORDER BY recipe_id ASC`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Save inserts or removes the row for recipeID. Delete-then-insert keeps the
// statement portable across sqlite, postgres and mysql.
func (s *SQLPersister) Save(ctx context.Context, recipeID string, favorite bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM favorites WHERE recipe_id = ?`), recipeID); err != nil {
		return err
	}
	if favorite {
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO favorites (recipe_id, favorited_at) VALUES (?, ?)`),
			recipeID, time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MemoryPersister is a Persister kept in memory, for tests and for running
// without a database.
type MemoryPersister struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemoryPersister returns a MemoryPersister seeded with ids.
func NewMemoryPersister(ids ...string) *MemoryPersister {
	m := &MemoryPersister{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return m
}

func (m *MemoryPersister) Load(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryPersister) Save(_ context.Context, recipeID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if favorite {
		m.ids[recipeID] = struct{}{}
	} else {
		delete(m.ids, recipeID)
	}
	return nil
}

// Has reports whether recipeID is stored.
func (m *MemoryPersister) Has(recipeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[recipeID]
	return ok
}
