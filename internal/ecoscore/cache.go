package ecoscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache keeps eco-score grades in a local SQLite file so repeated reads of
// the same product do not hit the remote API.
type Cache struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCache opens (or creates) the SQLite cache at path. Use ":memory:" for a
// throwaway cache.
func NewCache(path string) (*Cache, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ecoscore_cache (
		barcode TEXT PRIMARY KEY,
		grade TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ecoscore_expires_at ON ecoscore_cache (expires_at);
	`
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the cached grade for barcode. found is false on a miss or when
// the entry has expired. An empty grade means the product has no eco-score.
func (c *Cache) Get(ctx context.Context, barcode string) (grade string, found bool, err error) {
	var item struct {
		Grade     string `db:"grade"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err = c.db.GetContext(ctx, &item, `SELECT grade, expires_at FROM ecoscore_cache WHERE barcode = ?`, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get item from cache: %w", err)
	}

	if c.now().Unix() > item.ExpiresAt {
		_ = c.Delete(ctx, barcode)
		return "", false, nil
	}
	return item.Grade, true, nil
}

// Set stores grade for barcode for ttl.
func (c *Cache) Set(ctx context.Context, barcode, grade string, ttl time.Duration) error {
	expiresAt := c.now().Add(ttl).Unix()
	query := `INSERT OR REPLACE INTO ecoscore_cache (barcode, grade, expires_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, barcode, grade, expiresAt); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Delete removes barcode from the cache.
func (c *Cache) Delete(ctx context.Context, barcode string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM ecoscore_cache WHERE barcode = ?`, barcode); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM ecoscore_cache WHERE expires_at < ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
