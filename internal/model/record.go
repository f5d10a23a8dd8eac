package model

import (
	"fmt"
	"sort"
	"sync"
)

// Record is one live instance of a model type. Identity (descriptor,
// id, path) is fixed at construction; everything else is guarded by an
// internal mutex so subscription callbacks and application goroutines
// can touch the same instance.
type Record struct {
	desc *Descriptor
	id   string
	path string

	mu        sync.Mutex
	attrs     map[string]any
	dirty     map[string]struct{}
	links     []*Record
	isNew     bool
	isValid   bool
	isLoading bool
	isDeleted bool
	saving    bool
}

// NewRecord constructs a record with fixed identity. The record starts
// with no lifecycle flags set; the store marks it created, loading, or
// loaded depending on how it entered the identity map.
func NewRecord(desc *Descriptor, id, path string) *Record {
	return &Record{
		desc:  desc,
		id:    id,
		path:  path,
		attrs: make(map[string]any),
		dirty: make(map[string]struct{}),
	}
}

// Descriptor returns the model descriptor this record was built from.
func (r *Record) Descriptor() *Descriptor { return r.desc }

// ModelName returns the descriptor's type name.
func (r *Record) ModelName() string {
	if r.desc == nil {
		return ""
	}
	return r.desc.Name
}

// ID returns the record's identifier.
func (r *Record) ID() string { return r.id }

// Path returns the record's absolute remote path.
func (r *Record) Path() string { return r.path }

// Lifecycle flags.

func (r *Record) IsNew() bool     { r.mu.Lock(); defer r.mu.Unlock(); return r.isNew }
func (r *Record) IsValid() bool   { r.mu.Lock(); defer r.mu.Unlock(); return r.isValid }
func (r *Record) IsLoading() bool { r.mu.Lock(); defer r.mu.Unlock(); return r.isLoading }
func (r *Record) IsDeleted() bool { r.mu.Lock(); defer r.mu.Unlock(); return r.isDeleted }
func (r *Record) IsSaving() bool  { r.mu.Lock(); defer r.mu.Unlock(); return r.saving }

// MarkCreated flags a record built by createRecord: new, unsaved, and
// immediately usable.
func (r *Record) MarkCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isNew = true
	r.isValid = true
}

// BeginLoading flags a placeholder awaiting its first remote snapshot.
func (r *Record) BeginLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isLoading = true
}

// MarkLoaded flags a record whose data is known: valid, not loading.
func (r *Record) MarkLoaded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isValid = true
	r.isLoading = false
}

// CancelLoading clears the loading flag without validating the record.
// Used when a load resolves with no data (deleted while loading).
func (r *Record) CancelLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isLoading = false
}

// MarkDeleted flags the record for deletion. The next save writes nil
// to the record's path, removing it remotely.
func (r *Record) MarkDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isDeleted = true
}

// Get routes attribute access. Declared keys go through their schema
// handler; undeclared keys return raw storage.
func (r *Record) Get(key string) any {
	if r.desc.Declares(key) {
		return r.desc.Schema[key].Get(r)
	}
	raw, _ := r.RawAttribute(key)
	return raw
}

// Set routes attribute mutation. Declared keys delegate to the schema
// handler, which marshals and marks dirty. Undeclared keys assign raw
// storage directly and bypass dirty tracking.
func (r *Record) Set(key string, v any) error {
	if r.desc.Declares(key) {
		return r.desc.Schema[key].Set(r, v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[key] = v
	return nil
}

// Has reports whether key is declared in the record's schema.
func (r *Record) Has(key string) bool {
	return r.desc.Declares(key)
}

// RawAttribute reads the stored (marshaled) form of an attribute.
// Attribute handlers use this from Get.
func (r *Record) RawAttribute(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[key]
	return v, ok
}

// StoreAttribute writes the marshaled form of an attribute and marks it
// dirty. Attribute handlers use this from Set.
func (r *Record) StoreAttribute(key string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[key] = v
	r.dirty[key] = struct{}{}
}

// HasPendingChanges reports whether any attribute changed since the
// last successful save. A deleted record always has a pending change
// (its removal).
func (r *Record) HasPendingChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirty) > 0 || r.isDeleted
}

// DirtyAttributes returns the names of changed attributes, sorted.
func (r *Record) DirtyAttributes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.dirty))
	for name := range r.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LinkAtomically marks other as atomically linked: its pending changes
// commit in the same write as this record's. Links are directional;
// cycles are fine (the save closure walk carries a seen-set).
func (r *Record) LinkAtomically(other *Record) {
	if other == nil || other == r {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l == other {
			return
		}
	}
	r.links = append(r.links, other)
}

// AtomicallyLinked returns the linked records in link order.
func (r *Record) AtomicallyLinked() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, len(r.links))
	copy(out, r.links)
	return out
}

// PathsToSave returns the absolute paths this record contributes to an
// atomic write: one child path per dirty attribute, or the record's
// whole path mapped to nil when it is deleted.
func (r *Record) PathsToSave() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDeleted {
		return map[string]any{r.path: nil}
	}
	paths := make(map[string]any, len(r.dirty))
	for name := range r.dirty {
		paths[r.path+"/"+name] = r.attrs[name]
	}
	return paths
}

// SetAttributesFrom merges inbound remote data into raw storage. Data
// arrives already in marshaled form, so it bypasses attribute setters
// and clears dirty state for the keys it overwrites.
func (r *Record) SetAttributesFrom(data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, v := range data {
		r.attrs[key] = v
		delete(r.dirty, key)
	}
}

// WillSave runs the pre-save phase: flags the record as mid-save and
// fires the descriptor hook.
func (r *Record) WillSave() {
	r.mu.Lock()
	r.saving = true
	hook := r.desc.OnWillSave
	r.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

// DidSave runs the post-save phase after the atomic write acknowledged:
// clears dirty state and the new/saving flags, then fires the hook.
func (r *Record) DidSave() {
	r.mu.Lock()
	r.dirty = make(map[string]struct{})
	r.isNew = false
	r.saving = false
	if !r.isDeleted {
		r.isValid = true
	}
	hook := r.desc.OnDidSave
	r.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

// CancelSave clears the mid-save flag without finalizing. Used when a
// save turns out to have nothing to write, so no DidSave will run.
func (r *Record) CancelSave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saving = false
}

// WillUnload runs before eviction from the identity map: fires the hook
// and drops atomic links so the record cannot pull others into a later
// save closure.
func (r *Record) WillUnload() {
	r.mu.Lock()
	hook := r.desc.OnWillUnload
	r.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	r.mu.Lock()
	r.links = nil
	r.isValid = false
	r.mu.Unlock()
}

// String implements fmt.Stringer for log output.
func (r *Record) String() string {
	return fmt.Sprintf("%s/%s", r.ModelName(), r.id)
}
