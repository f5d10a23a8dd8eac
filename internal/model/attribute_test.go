package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		Name: "User",
		Schema: map[string]Attribute{
			"name":    StringAttribute{Key: "name"},
			"age":     IntAttribute{Key: "age"},
			"admin":   BoolAttribute{Key: "admin"},
			"created": TimeAttribute{Key: "created"},
		},
	}
}

func TestRecord_DeclaredKeyRoutesThroughHandler(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	require.NoError(t, r.Set("name", "Ada"))

	assert.Equal(t, "Ada", r.Get("name"))
	assert.Equal(t, []string{"name"}, r.DirtyAttributes(), "handler set should mark dirty")
}

func TestRecord_UndeclaredKeyIsRawStorage(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	require.NoError(t, r.Set("nickname", "ada99"))

	assert.Equal(t, "ada99", r.Get("nickname"), "raw round-trip")
	assert.Empty(t, r.DirtyAttributes(), "raw set bypasses dirty tracking")
}

func TestRecord_Has(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	assert.True(t, r.Has("name"))
	assert.True(t, r.Has("created"))
	assert.False(t, r.Has("nickname"))
}

func TestStringAttribute_RejectsWrongType(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	err := r.Set("name", 42)
	require.Error(t, err)
	assert.Empty(t, r.DirtyAttributes(), "failed set must not mark dirty")
}

func TestIntAttribute_NormalizesNumericForms(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	// JSON decoding hands us float64; the stored form must be int64.
	require.NoError(t, r.Set("age", float64(36)))
	assert.Equal(t, int64(36), r.Get("age"))

	require.NoError(t, r.Set("age", 37))
	assert.Equal(t, int64(37), r.Get("age"))
}

func TestIntAttribute_RejectsFractional(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	err := r.Set("age", 36.5)
	require.Error(t, err)
}

func TestBoolAttribute_RoundTrip(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	require.NoError(t, r.Set("admin", true))
	assert.Equal(t, true, r.Get("admin"))
}

func TestTimeAttribute_StoresEpochMillis(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")
	when := time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)

	require.NoError(t, r.Set("created", when))

	raw, ok := r.RawAttribute("created")
	require.True(t, ok)
	assert.Equal(t, when.UnixMilli(), raw, "marshaled form is epoch millis")
	assert.Equal(t, when, r.Get("created"), "surfaced form is UTC time")
}

func TestTimeAttribute_AcceptsInboundMillis(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")
	when := time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)

	// Inbound sync delivers the marshaled form as a JSON number.
	require.NoError(t, r.Set("created", float64(when.UnixMilli())))
	assert.Equal(t, when, r.Get("created"))
}

func TestAttribute_GetUnsetReturnsNil(t *testing.T) {
	r := NewRecord(testDescriptor(), "u1", "app/User/u1")

	assert.Nil(t, r.Get("name"))
	assert.Nil(t, r.Get("created"))
	assert.Nil(t, r.Get("nope"))
}
