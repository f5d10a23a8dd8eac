package model

import (
	"fmt"
	"time"
)

// Attribute is the capability interface for one declared field. Get
// unmarshals the stored form into the surfaced value; Set marshals the
// incoming value, stores it, and marks the attribute dirty (via
// Record.StoreAttribute). The record itself has no per-type branches:
// all marshaling lives behind this interface.
type Attribute interface {
	// Name is the attribute key this handler serves.
	Name() string

	// Get returns the surfaced value for r, or nil if unset.
	Get(r *Record) any

	// Set marshals v and stores it on r, marking the attribute dirty.
	// Returns an error if v cannot be marshaled for this attribute.
	Set(r *Record, v any) error
}

// StringAttribute stores a plain string.
type StringAttribute struct {
	Key string
}

func (a StringAttribute) Name() string { return a.Key }

func (a StringAttribute) Get(r *Record) any {
	raw, ok := r.RawAttribute(a.Key)
	if !ok {
		return nil
	}
	return raw
}

func (a StringAttribute) Set(r *Record, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("attribute %q: want string, got %T", a.Key, v)
	}
	r.StoreAttribute(a.Key, s)
	return nil
}

// IntAttribute stores an integer. All numeric input forms normalize to
// int64 so inbound JSON numbers and Go ints index identically.
type IntAttribute struct {
	Key string
}

func (a IntAttribute) Name() string { return a.Key }

func (a IntAttribute) Get(r *Record) any {
	raw, ok := r.RawAttribute(a.Key)
	if !ok {
		return nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil
	}
	return n
}

func (a IntAttribute) Set(r *Record, v any) error {
	n, err := toInt64(v)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", a.Key, err)
	}
	r.StoreAttribute(a.Key, n)
	return nil
}

// BoolAttribute stores a boolean.
type BoolAttribute struct {
	Key string
}

func (a BoolAttribute) Name() string { return a.Key }

func (a BoolAttribute) Get(r *Record) any {
	raw, ok := r.RawAttribute(a.Key)
	if !ok {
		return nil
	}
	return raw
}

func (a BoolAttribute) Set(r *Record, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("attribute %q: want bool, got %T", a.Key, v)
	}
	r.StoreAttribute(a.Key, b)
	return nil
}

// TimeAttribute stores a timestamp as epoch milliseconds (the remote
// store holds only primitives) and surfaces it as a UTC time.Time.
type TimeAttribute struct {
	Key string
}

func (a TimeAttribute) Name() string { return a.Key }

func (a TimeAttribute) Get(r *Record) any {
	raw, ok := r.RawAttribute(a.Key)
	if !ok {
		return nil
	}
	millis, err := toInt64(raw)
	if err != nil {
		return nil
	}
	return time.UnixMilli(millis).UTC()
}

func (a TimeAttribute) Set(r *Record, v any) error {
	switch t := v.(type) {
	case time.Time:
		r.StoreAttribute(a.Key, t.UnixMilli())
		return nil
	default:
		millis, err := toInt64(v)
		if err != nil {
			return fmt.Errorf("attribute %q: want time.Time or epoch millis, got %T", a.Key, v)
		}
		r.StoreAttribute(a.Key, millis)
		return nil
	}
}

// toInt64 normalizes the numeric forms that arrive from Go callers and
// JSON decoding. Fractional floats are rejected rather than truncated.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("want integer, got fractional %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
