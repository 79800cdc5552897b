package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu        sync.Mutex
	published []Key
	incoming  chan Key
	err       error
}

func (f *fakeBroadcaster) Publish(ctx context.Context, key Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, key)
	return f.err
}

func (f *fakeBroadcaster) Listen(ctx context.Context, fn func(Key)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case k := <-f.incoming:
			fn(k)
		}
	}
}

func TestJobsKey(t *testing.T) {
	d := time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, Key("jobs:org-1:2024-01-07"), JobsKey("org-1", d))
}

func TestRefetchStoresValue(t *testing.T) {
	c := New(nil)
	key := Key("jobs:a:2024-01-01")

	_, ok := c.Get(key)
	assert.False(t, ok)

	v, err := c.Refetch(context.Background(), key, func(context.Context) (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	cached, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42, cached)
}

func TestRefetchErrorKeepsPreviousValue(t *testing.T) {
	c := New(nil)
	key := Key("k")
	_, err := c.Refetch(context.Background(), key, func(context.Context) (any, error) { return "v1", nil })
	require.NoError(t, err)

	_, err = c.Refetch(context.Background(), key, func(context.Context) (any, error) { return nil, errors.New("down") })
	require.Error(t, err)

	cached, _ := c.Get(key)
	assert.Equal(t, "v1", cached)
}

func TestGetOrFetch(t *testing.T) {
	c := New(nil)
	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrFetch(context.Background(), "k", fetch)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestConcurrentRefetchesCollapse(t *testing.T) {
	c := New(nil)
	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Refetch(context.Background(), "k", fetch)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidateDuringFetchDiscardsResult(t *testing.T) {
	c := New(nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan any)
	go func() {
		v, _ := c.Refetch(context.Background(), "k", func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate(context.Background(), "k")

	v, err := c.Refetch(context.Background(), "k", func(context.Context) (any, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v, "refetch after invalidation must not join the older flight")

	close(release)
	assert.Equal(t, "old", <-done)

	cached, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", cached)
}

func TestInvalidateNotifiesSubscribersAndBroadcasts(t *testing.T) {
	b := &fakeBroadcaster{}
	c := New(b)
	key := Key("jobs:a:2024-01-01")
	_, _ = c.Refetch(context.Background(), key, func(context.Context) (any, error) { return 1, nil })

	var got []Key
	cancel := c.Subscribe(key, func(k Key) { got = append(got, k) })
	other := 0
	c.Subscribe("other", func(Key) { other++ })

	c.Invalidate(context.Background(), key)

	assert.Equal(t, []Key{key}, got)
	assert.Zero(t, other)
	assert.Equal(t, []Key{key}, b.published)
	_, ok := c.Get(key)
	assert.False(t, ok)

	cancel()
	c.Invalidate(context.Background(), key)
	assert.Len(t, got, 1)
}

func TestInvalidateBroadcastFailureIsLogged(t *testing.T) {
	c := New(&fakeBroadcaster{err: errors.New("redis down")})
	called := false
	c.Subscribe("k", func(Key) { called = true })
	c.Invalidate(context.Background(), "k")
	assert.True(t, called)
}

func TestRunAppliesRemoteInvalidations(t *testing.T) {
	b := &fakeBroadcaster{incoming: make(chan Key)}
	c := New(b)
	_, _ = c.Refetch(context.Background(), "k", func(context.Context) (any, error) { return 1, nil })

	notified := make(chan Key, 1)
	c.Subscribe("k", func(k Key) { notified <- k })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	b.incoming <- "k"
	assert.Equal(t, Key("k"), <-notified)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Empty(t, b.published, "remote invalidations are not re-broadcast")
}

func TestRefetchCallerCancellation(t *testing.T) {
	c := New(nil)
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error)
	go func() {
		_, err := c.Refetch(ctx, "k", func(context.Context) (any, error) {
			<-release
			return "late", nil
		})
		errCh <- err
	}()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		v, ok := c.Get("k")
		return ok && v == "late"
	}, time.Second, time.Millisecond)
}

func TestMessageCodec(t *testing.T) {
	origin, key, ok := decodeMessage(encodeMessage("inst-1", "jobs:o:2024-01-01"))
	require.True(t, ok)
	assert.Equal(t, "inst-1", origin)
	assert.Equal(t, Key("jobs:o:2024-01-01"), key)

	for _, bad := range []string{"", "no-separator", "|key", "origin|"} {
		_, _, ok := decodeMessage(bad)
		assert.False(t, ok, bad)
	}
}
