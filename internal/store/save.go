package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/firemap/internal/model"
)

// SaveRecord persists r and every record reachable through atomic
// links, in one atomic write.
//
// The closure walk is breadth-first with a seen-set keyed by record
// identity, so link cycles terminate and a record merges its paths at
// most once however many other records reference it. Each participant
// gets exactly one WillSave before the write and one DidSave after the
// write acknowledges; DidSave hooks run in parallel.
//
// On write failure nothing was applied remotely (the write is
// all-or-nothing) and no DidSave fires, so dirty state is intact and
// the save can be retried.
func (s *Store) SaveRecord(ctx context.Context, r *model.Record) error {
	if r == nil {
		return nil
	}

	payload := make(map[string]any)
	seen := map[*model.Record]bool{r: true}
	worklist := []*model.Record{r}
	var participants []*model.Record

	for len(worklist) > 0 {
		rec := worklist[0]
		worklist = worklist[1:]

		rec.WillSave()
		for path, v := range rec.PathsToSave() {
			payload[path] = v
		}
		participants = append(participants, rec)

		for _, linked := range rec.AtomicallyLinked() {
			if !seen[linked] {
				seen[linked] = true
				worklist = append(worklist, linked)
			}
		}
	}

	return s.commit(ctx, payload, participants)
}

// SaveAll persists every record in the identity map that has pending
// changes. Unlike SaveRecord it does not follow atomic links: only
// independently-dirty records participate.
func (s *Store) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	var dirty []*model.Record
	for _, byID := range s.records {
		for _, r := range byID {
			if r.HasPendingChanges() {
				dirty = append(dirty, r)
			}
		}
	}
	s.mu.Unlock()

	payload := make(map[string]any)
	for _, r := range dirty {
		r.WillSave()
		for path, v := range r.PathsToSave() {
			payload[path] = v
		}
	}

	return s.commit(ctx, payload, dirty)
}

// commit issues the merged atomic write, then finalizes every
// participant. The write is fully acknowledged before any DidSave
// begins; DidSave order across participants is unspecified.
func (s *Store) commit(ctx context.Context, payload map[string]any, participants []*model.Record) error {
	if len(payload) == 0 {
		// Nothing to write: every participant already ran WillSave, so
		// clear their mid-save flags rather than leaving them stuck.
		for _, r := range participants {
			r.CancelSave()
		}
		return nil
	}

	if err := s.client.Update(ctx, payload); err != nil {
		return &WriteError{Payload: payload, Err: err}
	}
	slog.Debug("atomic write committed",
		"paths", len(payload), "records", len(participants))

	var wg sync.WaitGroup
	for _, r := range participants {
		wg.Add(1)
		go func(rec *model.Record) {
			defer wg.Done()
			rec.DidSave()
		}(r)
	}
	wg.Wait()

	// A saved deletion leaves nothing to keep cached.
	for _, r := range participants {
		if r.IsDeleted() {
			s.UnloadRecord(r)
		}
	}
	return nil
}
