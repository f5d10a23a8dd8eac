package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process backend holding the tree as leaf paths.
// Writes apply atomically under one mutex; listeners receive snapshots
// through per-subscriber ordered queues.
type Memory struct {
	mu     sync.Mutex
	leaves map[string]any
	hub    *hub
	closed bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		leaves: make(map[string]any),
		hub:    newHub(),
	}
}

// Ref implements Client.
func (m *Memory) Ref(path string) Ref {
	return memoryRef{client: m, path: CleanPath(path)}
}

// Update implements Client. All paths are validated before any leaf
// changes, so a bad entry leaves the tree untouched.
func (m *Memory) Update(ctx context.Context, paths map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("update: client closed")
	}
	written := make([]string, 0, len(cleaned))
	for p, v := range cleaned {
		m.applyLocked(p, v)
		written = append(written, p)
	}
	sort.Strings(written)

	// Dispatch before unlocking so snapshots enter each subscriber's
	// queue in application order. dispatch only enqueues, so holding the
	// lock here cannot deadlock.
	for _, s := range m.hub.affected(written) {
		m.hub.dispatch(s, m.snapshotLocked(s.path))
	}
	m.mu.Unlock()
	return nil
}

// Close implements Client.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.hub.closeAll()
	return nil
}

// Settle blocks until every pending listener callback has run. Lets
// tests assert on state after a write without sleeping.
func (m *Memory) Settle() {
	m.hub.settle()
}

// Snapshot reads the current value at path without subscribing.
func (m *Memory) Snapshot(path string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(CleanPath(path))
}

// applyLocked writes one path. Maps flatten into leaves beneath the
// path; nil removes the subtree; scalars replace it.
func (m *Memory) applyLocked(path string, v any) {
	m.removeSubtreeLocked(path)
	if v == nil {
		return
	}
	flattenInto(m.leaves, path, v)
}

func (m *Memory) removeSubtreeLocked(path string) {
	delete(m.leaves, path)
	prefix := path + "/"
	for p := range m.leaves {
		if strings.HasPrefix(p, prefix) {
			delete(m.leaves, p)
		}
	}
}

func (m *Memory) snapshotLocked(path string) Snapshot {
	if v, ok := m.leaves[path]; ok {
		return Snapshot{Path: path, Value: v, Exists: true}
	}
	prefix := path + "/"
	tree := make(map[string]any)
	found := false
	for p, v := range m.leaves {
		if strings.HasPrefix(p, prefix) {
			found = true
			insertNested(tree, strings.Split(p[len(prefix):], "/"), v)
		}
	}
	if !found {
		return Snapshot{Path: path}
	}
	return Snapshot{Path: path, Value: tree, Exists: true}
}

type memoryRef struct {
	client *Memory
	path   string
}

func (r memoryRef) Path() string { return r.path }

// Listen implements Ref. The initial snapshot is delivered through the
// subscriber's queue, so it is asynchronous but always first.
func (r memoryRef) Listen(fn func(Snapshot)) Subscription {
	sub := r.client.hub.add(r.path, fn)

	r.client.mu.Lock()
	r.client.hub.dispatch(sub, r.client.snapshotLocked(r.path))
	r.client.mu.Unlock()
	return sub
}

// flattenInto decomposes v into leaf entries under path.
func flattenInto(leaves map[string]any, path string, v any) {
	if m, ok := v.(map[string]any); ok {
		for k, child := range m {
			flattenInto(leaves, path+"/"+CleanPath(k), child)
		}
		return
	}
	leaves[path] = v
}

// insertNested places v into tree at the given segment path, creating
// intermediate maps.
func insertNested(tree map[string]any, segments []string, v any) {
	if len(segments) == 1 {
		tree[segments[0]] = v
		return
	}
	child, ok := tree[segments[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		tree[segments[0]] = child
	}
	insertNested(child, segments[1:], v)
}
