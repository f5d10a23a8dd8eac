package remote

import "sync"

// snapshotQueue is a thread-safe FIFO of snapshots awaiting delivery to
// one subscriber.
//
// The queue is unbounded so a burst of writes never blocks the writer
// on a slow subscriber. A buffered signal channel (size 1) coalesces
// wakeups for the dispatch goroutine.
type snapshotQueue struct {
	mu     sync.Mutex
	snaps  []Snapshot
	closed bool
	signal chan struct{}
}

func newSnapshotQueue() *snapshotQueue {
	return &snapshotQueue{
		snaps:  make([]Snapshot, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a snapshot. Returns false if the queue is closed.
func (q *snapshotQueue) Enqueue(s Snapshot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.snaps = append(q.snaps, s)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Dequeue removes and returns the front snapshot, blocking until one is
// available. Returns (Snapshot{}, false) once the queue is closed.
func (q *snapshotQueue) Dequeue() (Snapshot, bool) {
	for {
		q.mu.Lock()
		if len(q.snaps) > 0 {
			s := q.snaps[0]
			// Nil out the slot so the backing array does not retain
			// the snapshot's value map.
			q.snaps[0] = Snapshot{}
			if len(q.snaps) == 1 {
				q.snaps = q.snaps[:0]
			} else {
				q.snaps = q.snaps[1:]
			}
			q.mu.Unlock()
			return s, true
		}
		if q.closed {
			q.mu.Unlock()
			return Snapshot{}, false
		}
		q.mu.Unlock()

		<-q.signal
	}
}

// Close stops the queue and returns the number of undelivered snapshots
// it discarded, so the hub can settle its in-flight accounting.
func (q *snapshotQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	discarded := len(q.snaps)
	q.closed = true
	q.snaps = nil
	close(q.signal)
	return discarded
}
