package remote

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (records table)
const currentSchemaVersion = 1

// SQLite is a durable backend storing the tree in a SQLite database.
// Subscriptions are in-process: writers going through the same client
// notify listeners after each committed update.
type SQLite struct {
	db  *sql.DB
	hub *hub

	// Serializes Update commit with listener snapshot reads so a
	// subscriber never observes a half-ordered sequence.
	writeMu sync.Mutex
}

// OpenSQLite creates or opens a tree database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, hub: newHub()}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Ref implements Client.
func (c *SQLite) Ref(path string) Ref {
	return sqliteRef{client: c, path: CleanPath(path)}
}

// Update implements Client. All paths commit in one transaction; on any
// error the transaction rolls back and no listener fires.
func (c *SQLite) Update(ctx context.Context, paths map[string]any) error {
	if len(paths) == 0 {
		return fmt.Errorf("update: empty payload")
	}

	cleaned := make(map[string]any, len(paths))
	for p, v := range paths {
		cp := CleanPath(p)
		if cp == "" {
			return fmt.Errorf("update: empty path %q", p)
		}
		cleaned[cp] = v
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	written := make([]string, 0, len(cleaned))
	for p, v := range cleaned {
		if err := applyPath(ctx, tx, p, v); err != nil {
			return err
		}
		written = append(written, p)
	}
	sort.Strings(written)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update: commit: %w", err)
	}

	for _, s := range c.hub.affected(written) {
		snap, err := c.snapshot(ctx, s.path)
		if err != nil {
			// Commit already happened; a read failure here only costs
			// the notification, not the write.
			continue
		}
		c.hub.dispatch(s, snap)
	}
	return nil
}

// applyPath writes one path inside the transaction: delete the subtree,
// then insert the new leaves (none for nil).
func applyPath(ctx context.Context, tx *sql.Tx, path string, v any) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE path = ? OR path LIKE ? || '/%'`,
		path, path,
	)
	if err != nil {
		return fmt.Errorf("update %s: delete subtree: %w", path, err)
	}
	if v == nil {
		return nil
	}

	leaves := make(map[string]any)
	flattenInto(leaves, path, v)
	for p, leaf := range leaves {
		encoded, err := json.Marshal(leaf)
		if err != nil {
			return fmt.Errorf("update %s: encode value: %w", p, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (path, value) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET value = excluded.value
		`, p, string(encoded))
		if err != nil {
			return fmt.Errorf("update %s: insert: %w", p, err)
		}
	}
	return nil
}

// Close implements Client.
func (c *SQLite) Close() error {
	c.hub.closeAll()
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Settle blocks until every pending listener callback has run.
func (c *SQLite) Settle() {
	c.hub.settle()
}

// Get reads the current snapshot at path without subscribing.
func (c *SQLite) Get(ctx context.Context, path string) (Snapshot, error) {
	return c.snapshot(ctx, CleanPath(path))
}

func (c *SQLite) snapshot(ctx context.Context, path string) (Snapshot, error) {
	var encoded string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE path = ?`, path,
	).Scan(&encoded)
	switch {
	case err == nil:
		var v any
		if err := json.Unmarshal([]byte(encoded), &v); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: decode: %w", path, err)
		}
		return Snapshot{Path: path, Value: v, Exists: true}, nil
	case err != sql.ErrNoRows:
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT path, value FROM records WHERE path LIKE ? || '/%'`, path,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	defer rows.Close()

	tree := make(map[string]any)
	found := false
	prefix := path + "/"
	for rows.Next() {
		var leafPath, leafJSON string
		if err := rows.Scan(&leafPath, &leafJSON); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: scan: %w", path, err)
		}
		var v any
		if err := json.Unmarshal([]byte(leafJSON), &v); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: decode %s: %w", path, leafPath, err)
		}
		found = true
		insertNested(tree, strings.Split(strings.TrimPrefix(leafPath, prefix), "/"), v)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if !found {
		return Snapshot{Path: path}, nil
	}
	return Snapshot{Path: path, Value: tree, Exists: true}, nil
}

type sqliteRef struct {
	client *SQLite
	path   string
}

func (r sqliteRef) Path() string { return r.path }

// Listen implements Ref. The initial snapshot is read under the write
// lock so it serializes against concurrent updates.
func (r sqliteRef) Listen(fn func(Snapshot)) Subscription {
	sub := r.client.hub.add(r.path, fn)

	r.client.writeMu.Lock()
	snap, err := r.client.snapshot(context.Background(), r.path)
	r.client.writeMu.Unlock()
	if err != nil {
		snap = Snapshot{Path: r.path}
	}

	r.client.hub.dispatch(sub, snap)
	return sub
}

var (
	_ Client = (*Memory)(nil)
	_ Client = (*SQLite)(nil)
)
