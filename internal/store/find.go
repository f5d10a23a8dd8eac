package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/firemap/internal/model"
	"github.com/roach88/firemap/internal/remote"
)

// Handle is the pending-load value FindRecord returns. It carries the
// record's identity before data arrives; Wait blocks until the first
// remote snapshot resolves or rejects the load.
//
// For a cache hit the handle comes back already resolved, so Wait
// returns without touching the remote store.
type Handle struct {
	// ID is the requested record id.
	ID string

	// Path is the computed remote path for the record.
	Path string

	record *model.Record
	done   chan struct{}

	mu       sync.Mutex
	err      error
	resolved bool
	sub      remote.Subscription
}

func newHandle(r *model.Record) *Handle {
	return &Handle{
		ID:     r.ID(),
		Path:   r.Path(),
		record: r,
		done:   make(chan struct{}),
	}
}

// resolve settles the handle exactly once.
func (h *Handle) resolve(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	h.resolved = true
	h.err = err
	close(h.done)
}

// Resolved reports whether the first snapshot has arrived.
func (h *Handle) Resolved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolved
}

// Done returns a channel closed when the handle settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Subscription returns the live subscription backing the load, or nil
// for a cache hit. It stays open after resolution so the record keeps
// receiving remote updates; unloading the record closes it.
func (h *Handle) Subscription() remote.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub
}

// Wait blocks until the handle settles or ctx is done, then returns the
// record or the load error.
func (h *Handle) Wait(ctx context.Context) (*model.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	return h.record, nil
}

// FindRecord returns the record for (desc, id). A cached id resolves
// immediately from the identity map. Otherwise a placeholder record is
// inserted into the map first — concurrent finds for the same id during
// loading observe the same placeholder — and a live subscription to the
// record's path feeds it until unload.
//
// The first snapshot settles the handle:
//   - data present: merged into the record, record marked valid
//   - absent, record flagged deleted: resolves with no data
//   - absent otherwise: rejects with RECORD_NOT_FOUND
//
// Later snapshots keep the cached instance in sync, and are discarded
// once the record is no longer the mapped instance for its id.
func (s *Store) FindRecord(desc *model.Descriptor, id string) *Handle {
	if desc == nil || desc.Name == "" {
		h := &Handle{ID: id, done: make(chan struct{})}
		h.resolve(newMissingModelName())
		return h
	}

	s.mu.Lock()
	if cached := s.peekLocked(desc.Name, id); cached != nil {
		// A load already in flight hands out its existing handle, so
		// every concurrent caller waits on the same resolution.
		if h := s.pending[cached]; h != nil {
			s.mu.Unlock()
			return h
		}
		s.mu.Unlock()
		h := newHandle(cached)
		h.resolve(nil)
		return h
	}

	r := model.NewRecord(desc, id, s.cfg.recordPath(desc, id))
	r.BeginLoading()
	if err := s.storeRecordLocked(r); err != nil {
		s.mu.Unlock()
		h := newHandle(r)
		h.resolve(err)
		return h
	}
	h := newHandle(r)
	s.pending[r] = h
	s.mu.Unlock()
	sub := s.linkRecord(r, func(snap remote.Snapshot) {
		s.applySnapshot(r, h, snap)
	})
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()

	slog.Debug("record loading", "model", desc.Name, "id", id, "path", r.Path())
	return h
}

// linkRecord subscribes r to its remote path, closing any subscription
// it already holds first. At most one subscription is live per record.
//
// An unload can race the Listen call: it finds no slot to close, so the
// membership re-check below closes the fresh subscription instead of
// leaking it.
func (s *Store) linkRecord(r *model.Record, fn func(remote.Snapshot)) remote.Subscription {
	sub := s.client.Ref(r.Path()).Listen(fn)

	s.mu.Lock()
	prev := s.subs[r]
	current := s.peekLocked(r.ModelName(), r.ID()) == r
	if current {
		s.subs[r] = sub
	}
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if !current {
		sub.Close()
	}
	return sub
}

// applySnapshot handles one inbound snapshot for a loading or loaded
// record.
func (s *Store) applySnapshot(r *model.Record, h *Handle, snap remote.Snapshot) {
	// Stale-update race: the record was unloaded while this snapshot
	// was queued. Drop it.
	if !s.isCurrentInstance(r) {
		slog.Debug("dropping snapshot for unloaded record",
			"model", r.ModelName(), "id", r.ID())
		return
	}

	if !h.Resolved() {
		switch {
		case snap.Exists:
			r.SetAttributesFrom(snap.Map())
			r.MarkLoaded()
			h.resolve(nil)
		case r.IsDeleted():
			// Deleted while loading is not an error; resolve with the
			// record untouched.
			r.CancelLoading()
			h.resolve(nil)
		default:
			r.CancelLoading()
			h.resolve(newNotFound(r.ModelName(), r.ID(), r.Path()))
			s.mu.Lock()
			delete(s.pending, r)
			s.mu.Unlock()
			// The placeholder never held data; evict it so the failed id
			// stays absent from the identity map.
			s.UnloadRecord(r)
			return
		}
		s.mu.Lock()
		delete(s.pending, r)
		s.mu.Unlock()
		return
	}

	if snap.Exists {
		r.SetAttributesFrom(snap.Map())
	}
}
