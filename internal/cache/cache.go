// Package cache implements the --cache decompilation-output cache (spec
// §2/§6): a database/sql-backed store keyed by a content hash of a
// class's raw bytes, so re-running javadec over an unchanged class file
// skips the decompile pipeline entirely. Grounded on the teacher's
// db_manager.go DBManager: dial once, tune the pool the same way, and
// dispatch to one of the same three driver packages by DSN scheme.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"golang.org/x/crypto/blake2b"
)

// Cache is one opened decompilation-output store. Safe for concurrent
// use by multiple goroutines, same as the *sql.DB it wraps.
type Cache struct {
	db     *sql.DB
	driver string
}

// Open dials dsn, picking the driver from its scheme the way DBManager's
// Connect switches on a caller-supplied dbType: "postgres://" and
// "postgresql://" go to lib/pq, "mysql://" goes to go-sql-driver/mysql,
// anything else is treated as a sqlite file path (--cache's common case:
// a plain path like build/javadec-cache.db).
func Open(dsn string) (*Cache, error) {
	driver, source := resolveDriver(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{db: db, driver: driver}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func resolveDriver(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql", strings.TrimPrefix(dsn, "mysql://")
	default:
		return "sqlite", dsn
	}
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS javadec_cache (
		hash       TEXT PRIMARY KEY,
		class_name TEXT NOT NULL,
		source     TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}

// Hash returns the cache key for a class file's raw bytes (content-
// addressed rather than path-addressed, so a byte-identical class
// recompiled under a different path still hits).
func Hash(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// placeholder returns this driver's positional-parameter marker: lib/pq
// wants $1, $2, ...; sqlite and go-sql-driver/mysql both accept "?".
func (c *Cache) placeholder(n int) string {
	if c.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Get returns the previously cached source for hash, if present.
func (c *Cache) Get(ctx context.Context, hash string) (string, bool, error) {
	q := fmt.Sprintf("SELECT source FROM javadec_cache WHERE hash = %s", c.placeholder(1))
	row := c.db.QueryRowContext(ctx, q, hash)
	var src string
	switch err := row.Scan(&src); {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("cache: get %s: %w", hash, err)
	}
	return src, true, nil
}

// Put stores className's rendered source under hash, replacing whatever
// was there before — a class's source can change across javadec
// versions even when its bytes, and therefore its hash, don't.
func (c *Cache) Put(ctx context.Context, hash, className, source string) error {
	del := fmt.Sprintf("DELETE FROM javadec_cache WHERE hash = %s", c.placeholder(1))
	if _, err := c.db.ExecContext(ctx, del, hash); err != nil {
		return fmt.Errorf("cache: evict %s: %w", hash, err)
	}
	ins := fmt.Sprintf("INSERT INTO javadec_cache (hash, class_name, source, created_at) VALUES (%s, %s, %s, %s)",
		c.placeholder(1), c.placeholder(2), c.placeholder(3), c.placeholder(4))
	if _, err := c.db.ExecContext(ctx, ins, hash, className, source, time.Now()); err != nil {
		return fmt.Errorf("cache: put %s: %w", hash, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error { return c.db.Close() }
