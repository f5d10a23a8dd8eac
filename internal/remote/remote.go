// Package remote defines the boundary to the remote hierarchical
// key-value store and provides two backends: an in-memory tree and a
// SQLite-durable tree. Both deliver live snapshots to listeners in
// order, and both apply multi-path updates atomically.
package remote

import (
	"context"
	"strings"
)

// Snapshot is one observation of a path. Value is nil when the path
// does not exist (Exists false). For interior paths the value is a
// nested map[string]any built from the leaves beneath it.
type Snapshot struct {
	Path   string
	Value  any
	Exists bool
}

// Map returns the snapshot value as an attribute map, or nil if the
// value is absent or not an object.
func (s Snapshot) Map() map[string]any {
	m, _ := s.Value.(map[string]any)
	return m
}

// Subscription is a live listener registration. Close detaches it; no
// callbacks are delivered after Close returns and the dispatch queue
// drains.
type Subscription interface {
	Close() error
}

// Ref addresses one path in the remote tree.
type Ref interface {
	// Path returns the cleaned absolute path this ref addresses.
	Path() string

	// Listen registers fn for snapshots of this path: the current
	// snapshot first, then one per subsequent change, in delivery
	// order, until the subscription is closed. Writes to child paths
	// are observed as changes to this path.
	Listen(fn func(Snapshot)) Subscription
}

// Client is a connection to the remote store.
type Client interface {
	// Ref returns a ref for path.
	Ref(path string) Ref

	// Update applies paths as one atomic write: every entry applies or
	// none do. A nil value removes the path and everything beneath it.
	Update(ctx context.Context, paths map[string]any) error

	// Close releases the connection and detaches all subscriptions.
	Close() error
}

// CleanPath normalizes a path to segment/segment form with no leading
// or trailing slashes. Empty segments collapse.
func CleanPath(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// pathsOverlap reports whether a write at w affects a listener at p:
// same path, w beneath p, or p beneath w.
func pathsOverlap(p, w string) bool {
	if p == w {
		return true
	}
	return strings.HasPrefix(w, p+"/") || strings.HasPrefix(p, w+"/")
}
