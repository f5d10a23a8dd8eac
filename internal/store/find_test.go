package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firemap/internal/model"
	"github.com/roach88/firemap/internal/remote"
)

func TestFindRecord_CachedReturnsResolvedHandle(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	r, err := s.PushRecord(desc, "u1", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	h := s.FindRecord(desc, "u1")
	assert.True(t, h.Resolved(), "cache hit resolves without waiting")
	assert.Nil(t, h.Subscription(), "cache hit never subscribes")
	assert.Zero(t, client.listenerCount(r.Path()))

	got, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, r, got)
}

func TestFindRecord_LoadsAndStaysLive(t *testing.T) {
	m := remote.NewMemory()
	s, err := New(m, testConfig())
	require.NoError(t, err)
	defer s.Close()
	desc := userDescriptor()
	ctx := context.Background()

	require.NoError(t, m.Update(ctx, map[string]any{
		"app/User/u1/name": "Ada",
		"app/User/u1/age":  int64(36),
	}))

	h := s.FindRecord(desc, "u1")
	r, err := h.Wait(ctx)
	require.NoError(t, err)

	assert.True(t, r.IsValid())
	assert.False(t, r.IsNew())
	assert.Equal(t, "Ada", r.Get("name"))
	assert.Equal(t, int64(36), r.Get("age"))
	assert.False(t, r.HasPendingChanges(), "loaded data is not dirty")

	// The subscription stays open; remote changes flow into the cached
	// instance.
	require.NoError(t, m.Update(ctx, map[string]any{"app/User/u1/name": "Grace"}))
	m.Settle()
	assert.Equal(t, "Grace", r.Get("name"))
}

func TestFindRecord_NotFound(t *testing.T) {
	m := remote.NewMemory()
	s, err := New(m, testConfig())
	require.NoError(t, err)
	defer s.Close()

	h := s.FindRecord(userDescriptor(), "missing")
	_, err = h.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	assert.Nil(t, s.PeekRecord(userDescriptor(), "missing"),
		"failed load leaves nothing in the identity map")
}

func TestFindRecord_MissingModelName(t *testing.T) {
	s, err := New(newFakeClient(), testConfig())
	require.NoError(t, err)

	h := s.FindRecord(&model.Descriptor{}, "u1")
	_, err = h.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsMissingModelName(err))
}

func TestFindRecord_ConcurrentFindsShareHandle(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	h1 := s.FindRecord(desc, "u1")
	require.False(t, h1.Resolved(), "no snapshot delivered yet")

	// A second find while the first load is in flight joins it instead
	// of starting another subscription.
	h2 := s.FindRecord(desc, "u1")
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, client.listenerCount("app/User/u1"))

	client.push("app/User/u1", map[string]any{"name": "Ada"}, true)

	r1, err := h1.Wait(context.Background())
	require.NoError(t, err)
	r2, err := h2.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	// After resolution a fresh find is a plain cache hit.
	h3 := s.FindRecord(desc, "u1")
	assert.NotSame(t, h1, h3)
	assert.True(t, h3.Resolved())
}

func TestFindRecord_DeletedWhileLoading(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	h := s.FindRecord(desc, "u1")
	placeholder := s.PeekRecord(desc, "u1")
	require.NotNil(t, placeholder)
	placeholder.MarkDeleted()

	client.push("app/User/u1", nil, false)

	r, err := h.Wait(context.Background())
	require.NoError(t, err, "deleted while loading is not a load failure")
	assert.Same(t, placeholder, r)
	assert.True(t, r.IsDeleted())
	assert.Nil(t, r.Get("name"), "no data was merged")
}

func TestFindRecord_WaitHonorsContext(t *testing.T) {
	s, err := New(newFakeClient(), testConfig())
	require.NoError(t, err)

	h := s.FindRecord(userDescriptor(), "u1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnloadRecord_DropsLaterUpdates(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	h := s.FindRecord(desc, "u1")
	client.push("app/User/u1", map[string]any{"name": "Ada"}, true)
	r, err := h.Wait(context.Background())
	require.NoError(t, err)

	s.UnloadRecord(r)
	assert.Zero(t, client.listenerCount("app/User/u1"), "unload closes the subscription")

	// A snapshot already in flight when the record was unloaded must not
	// mutate the evicted instance.
	s.applySnapshot(r, h, remote.Snapshot{
		Path:   "app/User/u1",
		Value:  map[string]any{"name": "Grace"},
		Exists: true,
	})
	assert.Equal(t, "Ada", r.Get("name"))
	assert.False(t, r.IsValid(), "unloaded record stays invalid")
}

func TestLinkRecord_ClosesSubscriptionForEvictedRecord(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	r, err := s.PushRecord(desc, "u1", nil)
	require.NoError(t, err)
	s.UnloadRecord(r)

	// Unload won the race: the record is gone from the identity map, so
	// the subscription must not be kept open on its behalf.
	sub := s.linkRecord(r, func(remote.Snapshot) {}).(*fakeSub)
	assert.True(t, sub.closed)
	assert.Zero(t, client.listenerCount("app/User/u1"))
}

func TestLinkRecord_ClosesPreviousSubscription(t *testing.T) {
	client := newFakeClient()
	s, err := New(client, testConfig())
	require.NoError(t, err)
	desc := userDescriptor()

	h := s.FindRecord(desc, "u1")
	client.push("app/User/u1", map[string]any{"name": "Ada"}, true)
	_, err = h.Wait(context.Background())
	require.NoError(t, err)
	first := h.Subscription().(*fakeSub)

	r := s.PeekRecord(desc, "u1")
	s.linkRecord(r, func(remote.Snapshot) {})

	assert.True(t, first.closed, "relinking closes the previous subscription")
	assert.Equal(t, 1, client.listenerCount("app/User/u1"))
}
