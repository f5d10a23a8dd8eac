package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/firemap/internal/model"
	"github.com/roach88/firemap/internal/remote"
)

// Store is the identity map and synchronization layer over a remote
// tree client. It guarantees one live record instance per (model, id),
// keeps cached instances updated from remote pushes, and persists
// linked records in single atomic writes.
//
// All identity map access is mutex-guarded; subscription callbacks and
// application goroutines may drive the same store concurrently.
type Store struct {
	cfg    Config
	client remote.Client

	mu      sync.Mutex
	records map[string]map[string]*model.Record
	subs    map[*model.Record]remote.Subscription
	pending map[*model.Record]*Handle
}

// New constructs a store over client. The config is validated and
// defaulted in place.
func New(client remote.Client, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:     cfg,
		client:  client,
		records: make(map[string]map[string]*model.Record),
		subs:    make(map[*model.Record]remote.Subscription),
		pending: make(map[*model.Record]*Handle),
	}, nil
}

// CreateRecord builds a new, unsaved record with a generated id and
// applies initial through the attribute router, so declared attributes
// marshal and mark dirty. The record enters the identity map
// immediately.
func (s *Store) CreateRecord(desc *model.Descriptor, initial map[string]any) (*model.Record, error) {
	if desc == nil || desc.Name == "" {
		return nil, newMissingModelName()
	}

	id := s.cfg.newID()
	r := model.NewRecord(desc, id, s.cfg.recordPath(desc, id))
	r.MarkCreated()

	// Apply in sorted key order so marshal errors are deterministic.
	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.Set(k, initial[k]); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	err := s.storeRecordLocked(r)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slog.Debug("record created", "model", desc.Name, "id", id)
	return r, nil
}

// PushRecord upserts inbound data for (desc, id): if the id is cached
// the existing instance absorbs the data, otherwise a fresh valid
// record enters the identity map. Idempotent.
func (s *Store) PushRecord(desc *model.Descriptor, id string, data map[string]any) (*model.Record, error) {
	if desc == nil || desc.Name == "" {
		return nil, newMissingModelName()
	}

	s.mu.Lock()
	if existing := s.peekLocked(desc.Name, id); existing != nil {
		s.mu.Unlock()
		existing.SetAttributesFrom(data)
		return existing, nil
	}

	r := model.NewRecord(desc, id, s.cfg.recordPath(desc, id))
	r.SetAttributesFrom(data)
	r.MarkLoaded()
	err := s.storeRecordLocked(r)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slog.Debug("record pushed", "model", desc.Name, "id", id)
	return r, nil
}

// PushRecordData merges inbound data into an already-held record
// without dirty tracking.
func (s *Store) PushRecordData(r *model.Record, data map[string]any) {
	r.SetAttributesFrom(data)
}

// PeekRecord returns the cached instance for (desc, id) or nil. Pure
// cache lookup; never subscribes or fetches.
func (s *Store) PeekRecord(desc *model.Descriptor, id string) *model.Record {
	if desc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked(desc.Name, id)
}

// UnloadRecord runs the record's teardown hook, detaches its
// subscription, and evicts it from the identity map. Inbound data
// arriving afterwards is dropped.
func (s *Store) UnloadRecord(r *model.Record) {
	if r == nil {
		return
	}

	r.WillUnload()

	s.mu.Lock()
	byID := s.records[r.ModelName()]
	if byID != nil && byID[r.ID()] == r {
		delete(byID, r.ID())
		if len(byID) == 0 {
			delete(s.records, r.ModelName())
		}
	}
	sub := s.subs[r]
	delete(s.subs, r)
	delete(s.pending, r)
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	slog.Debug("record unloaded", "model", r.ModelName(), "id", r.ID())
}

// UnloadAll evicts every record of the given model types, or every
// record in the store when no type is given.
func (s *Store) UnloadAll(descs ...*model.Descriptor) {
	s.mu.Lock()
	var victims []*model.Record
	if len(descs) == 0 {
		for _, byID := range s.records {
			for _, r := range byID {
				victims = append(victims, r)
			}
		}
	} else {
		for _, desc := range descs {
			for _, r := range s.records[desc.Name] {
				victims = append(victims, r)
			}
		}
	}
	s.mu.Unlock()

	for _, r := range victims {
		s.UnloadRecord(r)
	}
}

// Close unloads everything and closes the remote client.
func (s *Store) Close() error {
	s.UnloadAll()
	return s.client.Close()
}

// storeRecordLocked indexes r in the identity map, overwriting any
// previous instance in its slot. Fails fast on an unnamed model.
func (s *Store) storeRecordLocked(r *model.Record) error {
	name := r.ModelName()
	if name == "" {
		return newMissingModelName()
	}
	byID := s.records[name]
	if byID == nil {
		byID = make(map[string]*model.Record)
		s.records[name] = byID
	}
	byID[r.ID()] = r
	return nil
}

// peekLocked is the lookup used before creating new instances, so a
// given (model, id) resolves to at most one live record.
func (s *Store) peekLocked(modelName, id string) *model.Record {
	byID := s.records[modelName]
	if byID == nil {
		return nil
	}
	return byID[id]
}

// isCurrentInstance reports whether r is still the mapped instance for
// its id. Subscription callbacks check this before applying inbound
// data, so evicted instances never mutate.
func (s *Store) isCurrentInstance(r *model.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked(r.ModelName(), r.ID()) == r
}
