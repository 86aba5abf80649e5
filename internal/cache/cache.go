// Package cache stores transpiled units keyed by the content of their AST
// document and the options that shaped them, so unchanged inputs are not
// transpiled twice.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/funvibe/boxpiler/internal/logging"
)

// formatVersion is bumped when the stored entry layout or the generated
// code format changes, so stale entries stop matching.
const formatVersion = "v1"

const schema = `
CREATE TABLE IF NOT EXISTS units (
	key        TEXT PRIMARY KEY,
	class_name TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// Entry is one cached unit.
type Entry struct {
	CompileID string   `cbor:"1,keyasint"`
	ClassName string   `cbor:"2,keyasint"`
	Package   string   `cbor:"3,keyasint"`
	Source    string   `cbor:"4,keyasint"`
	Callables []string `cbor:"5,keyasint,omitempty"`
	Keys      []string `cbor:"6,keyasint,omitempty"`
}

// Cache is a SQLite-backed store of transpiled units. It is safe for
// concurrent use.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	enc    cbor.EncMode

	// SQLite allows one writer at a time.
	writeMu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(l *slog.Logger) Option { return func(c *Cache) { c.logger = l } }

// Open opens or creates the cache database at path.
func Open(path string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising cache %s: %w", path, err)
	}
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	c := &Cache{db: db, path: path, logger: logging.Discard(), enc: enc}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "cache")
	return c, nil
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Close() error { return c.db.Close() }

// Key computes the cache key of an AST document transpiled with the given
// settings. Settings are order-sensitive.
func Key(document []byte, settings ...string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(formatVersion))
	h.Write([]byte{0})
	h.Write(document)
	for _, s := range settings {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the entry stored under key. A miss is not an error.
func (c *Cache) Lookup(ctx context.Context, key string) (*Entry, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM units WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	var e Entry
	if err := cbor.Unmarshal(payload, &e); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	c.logger.Debug("cache hit", "key", key, "class", e.ClassName)
	return &e, true, nil
}

// Store saves e under key, replacing any previous entry.
func (c *Cache) Store(ctx context.Context, key string, e *Entry) error {
	payload, err := c.enc.Marshal(e)
	if err != nil {
		return fmt.Errorf("CBOR encoding failed: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO units (key, class_name, payload, created_at) VALUES (?, ?, ?, ?)`,
		key, e.ClassName, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Len counts the stored entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Clean removes every entry.
func (c *Cache) Clean(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.db.ExecContext(ctx, `DELETE FROM units`); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}
