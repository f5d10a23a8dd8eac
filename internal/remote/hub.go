package remote

import "sync"

// hub tracks live subscribers for one backend and delivers snapshots to
// each through its own ordered queue. Delivery order per subscriber
// matches dispatch order; subscribers never observe each other's
// callbacks.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}

	// in-flight snapshot accounting for Settle
	flightMu sync.Mutex
	flight   int
	idle     *sync.Cond
}

func newHub() *hub {
	h := &hub{subs: make(map[*subscriber]struct{})}
	h.idle = sync.NewCond(&h.flightMu)
	return h
}

// subscriber is one Listen registration: a path, a callback, and a
// dispatch goroutine draining the queue in order.
type subscriber struct {
	hub   *hub
	path  string
	fn    func(Snapshot)
	queue *snapshotQueue
	once  sync.Once
}

// add registers a subscriber for path and starts its dispatcher.
func (h *hub) add(path string, fn func(Snapshot)) *subscriber {
	s := &subscriber{
		hub:   h,
		path:  path,
		fn:    fn,
		queue: newSnapshotQueue(),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		for {
			snap, ok := s.queue.Dequeue()
			if !ok {
				return
			}
			s.fn(snap)
			h.release(1)
		}
	}()

	return s
}

// Close implements Subscription: detaches the subscriber and discards
// anything still queued.
func (s *subscriber) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()

		s.hub.release(s.queue.Close())
	})
	return nil
}

// dispatch enqueues one snapshot for one subscriber.
func (h *hub) dispatch(s *subscriber, snap Snapshot) {
	h.flightMu.Lock()
	h.flight++
	h.flightMu.Unlock()

	if !s.queue.Enqueue(snap) {
		h.release(1)
	}
}

// affected returns subscribers whose path overlaps any written path.
func (h *hub) affected(written []string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*subscriber
	for s := range h.subs {
		for _, w := range written {
			if pathsOverlap(s.path, w) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// closeAll detaches every subscriber. Used by Client.Close.
func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

// release settles n delivered or discarded snapshots.
func (h *hub) release(n int) {
	if n == 0 {
		return
	}
	h.flightMu.Lock()
	h.flight -= n
	if h.flight <= 0 {
		h.idle.Broadcast()
	}
	h.flightMu.Unlock()
}

// settle blocks until every dispatched snapshot has been delivered or
// discarded. Test determinism hook.
func (h *hub) settle() {
	h.flightMu.Lock()
	for h.flight > 0 {
		h.idle.Wait()
	}
	h.flightMu.Unlock()
}
