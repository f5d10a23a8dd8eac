package store

import (
	"context"
	"sync"

	"github.com/roach88/firemap/internal/model"
	"github.com/roach88/firemap/internal/remote"
)

func userDescriptor() *model.Descriptor {
	return &model.Descriptor{
		Name: "User",
		Schema: map[string]model.Attribute{
			"name": model.StringAttribute{Key: "name"},
			"age":  model.IntAttribute{Key: "age"},
		},
	}
}

func teamDescriptor() *model.Descriptor {
	return &model.Descriptor{
		Name:  "Team",
		Group: "core",
		Schema: map[string]model.Attribute{
			"name": model.StringAttribute{Key: "name"},
		},
	}
}

func testConfig() Config {
	return Config{
		BasePath:   "app",
		GroupPaths: map[string]string{"core": "core"},
		IDStyle:    IDStyleUUID,
	}
}

// fakeClient is a scriptable remote client. Listens register silently
// (no initial snapshot); the test delivers snapshots synchronously with
// push, so every interleaving is under test control.
type fakeClient struct {
	mu        sync.Mutex
	listeners map[string][]*fakeSub
	updates   []map[string]any
	failErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{listeners: make(map[string][]*fakeSub)}
}

func (c *fakeClient) Ref(path string) remote.Ref {
	return fakeRef{client: c, path: remote.CleanPath(path)}
}

func (c *fakeClient) Update(ctx context.Context, paths map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	copied := make(map[string]any, len(paths))
	for p, v := range paths {
		copied[p] = v
	}
	c.updates = append(c.updates, copied)
	return nil
}

func (c *fakeClient) Close() error { return nil }

// push delivers one snapshot to every listener registered at path.
func (c *fakeClient) push(path string, value any, exists bool) {
	c.mu.Lock()
	subs := append([]*fakeSub(nil), c.listeners[remote.CleanPath(path)]...)
	c.mu.Unlock()
	for _, s := range subs {
		s.fn(remote.Snapshot{Path: path, Value: value, Exists: exists})
	}
}

// listenerCount reports the live listeners at path.
func (c *fakeClient) listenerCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[remote.CleanPath(path)])
}

type fakeRef struct {
	client *fakeClient
	path   string
}

func (r fakeRef) Path() string { return r.path }

func (r fakeRef) Listen(fn func(remote.Snapshot)) remote.Subscription {
	s := &fakeSub{client: r.client, path: r.path, fn: fn}
	r.client.mu.Lock()
	r.client.listeners[r.path] = append(r.client.listeners[r.path], s)
	r.client.mu.Unlock()
	return s
}

type fakeSub struct {
	client *fakeClient
	path   string
	fn     func(remote.Snapshot)
	closed bool
}

func (s *fakeSub) Close() error {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.closed = true
	subs := s.client.listeners[s.path]
	for i, sub := range subs {
		if sub == s {
			s.client.listeners[s.path] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

var _ remote.Client = (*fakeClient)(nil)
