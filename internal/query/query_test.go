package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct {
	calls atomic.Int32
}

func (c *counter) fetch(v []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		c.calls.Add(1)
		return v, nil
	}
}

func TestKeyPrefix(t *testing.T) {
	k := K("backlogs", "project", 7)
	assert.Equal(t, "backlogs/project/7", k.String())
	assert.True(t, k.HasPrefix(Key{"backlogs"}))
	assert.True(t, k.HasPrefix(K("backlogs", "project", 7)))
	assert.False(t, k.HasPrefix(K("backlogs", "project", 70)))
	assert.False(t, K("backlog").HasPrefix(K("backlog", 1)))
	assert.True(t, k.HasPrefix(nil))
}

func TestRunCachesResult(t *testing.T) {
	c := NewCache(nil)
	var n counter
	q := New(c, K("users"), n.fetch([]string{"ana"}))

	r := q.Run(context.Background())
	require.False(t, r.IsError)
	require.True(t, r.HasData)
	require.Equal(t, []string{"ana"}, r.Data)

	q.Run(context.Background())
	assert.Equal(t, int32(1), n.calls.Load())
}

func TestDisabledQueryNeverFetches(t *testing.T) {
	c := NewCache(nil)
	var n counter
	q := New(c, K("backlogs", "project", ""), n.fetch([]string{"x"}))
	q.Enabled = false

	r := q.Run(context.Background())
	assert.Nil(t, r.Data)
	assert.False(t, r.HasData)
	assert.False(t, r.IsLoading)
	assert.Zero(t, n.calls.Load())
	assert.Zero(t, c.Len())
}

func TestConcurrentReadersShareOneFetch(t *testing.T) {
	c := NewCache(nil)
	var calls atomic.Int32
	release := make(chan struct{})
	q := New(c, K("roles"), func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"admin"}, nil
	})

	var wg sync.WaitGroup
	results := make([]Result[[]string], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = q.Run(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return q.Peek().IsLoading }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"admin"}, r.Data)
	}
	assert.False(t, q.Peek().IsLoading)
}

func TestInvalidatePrefixTriggersRefetch(t *testing.T) {
	c := NewCache(nil)
	var a, b, other counter
	qa := New(c, K("backlogs", "project", 1), a.fetch([]string{"a"}))
	qb := New(c, K("backlogs", "project", 2), b.fetch([]string{"b"}))
	qo := New(c, K("users"), other.fetch([]string{"u"}))
	ctx := context.Background()
	qa.Run(ctx)
	qb.Run(ctx)
	qo.Run(ctx)

	var notified []string
	c.Subscribe(func(k Key) { notified = append(notified, k.String()) })

	assert.Equal(t, 2, c.Invalidate(K("backlogs")))
	assert.True(t, c.IsStale(qa.Key))
	assert.False(t, c.IsStale(qo.Key))
	assert.ElementsMatch(t, []string{"backlogs/project/1", "backlogs/project/2"}, notified)

	qa.Run(ctx)
	qb.Run(ctx)
	qo.Run(ctx)
	assert.Equal(t, int32(2), a.calls.Load())
	assert.Equal(t, int32(2), b.calls.Load())
	assert.Equal(t, int32(1), other.calls.Load())
}

func TestErrorIsExposedWithoutRetry(t *testing.T) {
	c := NewCache(nil)
	boom := errors.New("boom")
	var calls atomic.Int32
	q := New(c, K("project"), func(context.Context) ([]string, error) {
		calls.Add(1)
		return nil, boom
	})

	r := q.Run(context.Background())
	require.True(t, r.IsError)
	require.ErrorIs(t, r.Err, boom)

	r = q.Run(context.Background())
	require.True(t, r.IsError)
	assert.Equal(t, int32(1), calls.Load())

	_, err := q.Get(context.Background())
	require.ErrorIs(t, err, boom)

	c.Invalidate(K("project"))
	q.Run(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestFailedRefetchKeepsLastData(t *testing.T) {
	c := NewCache(nil)
	fail := false
	q := New(c, K("users"), func(context.Context) ([]string, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return []string{"ana"}, nil
	})
	q.Run(context.Background())
	fail = true
	r := q.Refetch(context.Background())
	assert.True(t, r.IsError)
	assert.Equal(t, []string{"ana"}, r.Data)
}

func TestInvalidateDuringFetchLeavesEntryStale(t *testing.T) {
	c := NewCache(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q := New(c, K("backlog", 5), func(context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return []string{"v"}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(context.Background())
	}()
	<-started
	c.Invalidate(K("backlog"))
	close(release)
	<-done

	assert.True(t, c.IsStale(q.Key))
	q.Run(context.Background())
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, c.IsStale(q.Key))
}

func TestTypeMismatchIsReported(t *testing.T) {
	c := NewCache(nil)
	New(c, K("shared"), func(context.Context) (int, error) { return 1, nil }).Run(context.Background())
	r := Query[string]{Cache: c, Key: K("shared"), Enabled: true}.Peek()
	assert.True(t, r.IsError)
}

func TestClear(t *testing.T) {
	c := NewCache(nil)
	var n counter
	q := New(c, K("users"), n.fetch(nil))
	q.Run(context.Background())
	require.Equal(t, 1, c.Len())
	c.Clear()
	assert.Zero(t, c.Len())
	q.Run(context.Background())
	assert.Equal(t, int32(2), n.calls.Load())
}

func TestRefetchAfterInvalidateDoesNotJoinOlderFetch(t *testing.T) {
	c := NewCache(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q := New(c, K("project", 3), func(context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return []string{"before save"}, nil
		}
		return []string{"after save"}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(context.Background())
	}()
	<-started
	c.Invalidate(K("project"))

	r := q.Refetch(context.Background())
	assert.Equal(t, []string{"after save"}, r.Data)
	assert.Equal(t, int32(2), calls.Load())

	close(release)
	<-done
	// The older response lands last but does not replace the newer one.
	assert.Equal(t, []string{"after save"}, q.Peek().Data)
	assert.False(t, c.IsStale(q.Key))
}

func TestClearDuringFetchStartsAFreshOne(t *testing.T) {
	c := NewCache(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q := New(c, K("users"), func(context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return []string{"ana"}, nil
		}
		return []string{"bob"}, nil
	})

	done := make(chan Result[[]string], 1)
	go func() { done <- q.Run(context.Background()) }()
	<-started
	c.Clear()

	r := q.Run(context.Background())
	assert.True(t, r.HasData)
	assert.False(t, r.IsLoading)
	assert.Equal(t, []string{"bob"}, r.Data)
	assert.Equal(t, int32(2), calls.Load())

	close(release)
	first := <-done
	assert.True(t, first.HasData)
	assert.NoError(t, first.Err)
	assert.Equal(t, []string{"bob"}, q.Peek().Data)
}

func TestClearWhileFetchingStillReturnsTheResponse(t *testing.T) {
	c := NewCache(nil)
	q := New(c, K("users"), func(context.Context) ([]string, error) {
		c.Clear()
		return nil, errors.New("unauthorized")
	})
	r := q.Run(context.Background())
	assert.True(t, r.IsError)
	assert.EqualError(t, r.Err, "unauthorized")
	assert.Zero(t, c.Len())
}

func TestSubscribeCancel(t *testing.T) {
	c := NewCache(nil)
	New(c, K("users"), func(context.Context) (int, error) { return 1, nil }).Run(context.Background())

	var hits atomic.Int32
	cancel := c.Subscribe(func(Key) { hits.Add(1) })
	c.Invalidate(K("users"))
	cancel()
	c.Invalidate(K("users"))
	assert.Equal(t, int32(1), hits.Load())
}
