package liststate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestViewsMountAndResume(t *testing.T) {
	views := NewViews(testSchema(t), staticFetch(), Options{}, time.Minute)
	defer views.Close()

	id, ctrl := views.Mount(context.Background(), "p1")
	require.NotEmpty(t, id)

	got, ok := views.Get(id, "p1")
	require.True(t, ok)
	assert.Same(t, ctrl, got)

	_, ok = views.Get(id, "p2")
	assert.False(t, ok, "a view belongs to the profile that mounted it")

	views.Unmount(id)
	_, ok = views.Get(id, "p1")
	assert.False(t, ok)
	assert.True(t, ctrl.Closed())
}

func TestViewsSweepClosesIdleViews(t *testing.T) {
	views := NewViews(testSchema(t), staticFetch(), Options{}, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	views.now = func() time.Time { return now }

	idleID, idle := views.Mount(context.Background(), "p1")
	now = now.Add(45 * time.Second)
	activeID, _ := views.Mount(context.Background(), "p1")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, views.Sweep())
	assert.True(t, idle.Closed())
	_, ok := views.Get(idleID, "p1")
	assert.False(t, ok)
	_, ok = views.Get(activeID, "p1")
	assert.True(t, ok)
	assert.Equal(t, 1, views.Len())
}

func TestViewsRehydrateFollowsOtherViews(t *testing.T) {
	storage := newMemStorage()
	views := NewViews(testSchema(t), staticFetch(), Options{Storage: storage}, time.Minute)
	defer views.Close()
	ctx := context.Background()

	_, tabA := views.Mount(ctx, "p1")
	_, tabB := views.Mount(ctx, "p1")
	_, other := views.Mount(ctx, "p2")

	_, err := tabA.Sort(ctx, "rank")
	require.NoError(t, err)
	assert.Equal(t, "name", tabB.View().Sort.OrderBy)

	assert.Equal(t, 0, views.Rehydrate(ctx, "p1", "bannersSortBy"))
	assert.Equal(t, 2, views.Rehydrate(ctx, "p1", SortByKey("items")))
	assert.Equal(t, "rank", tabB.View().Sort.OrderBy)
	assert.Equal(t, "name", other.View().Sort.OrderBy)

	require.NoError(t, tabA.SetRowsPerPage(ctx, 25))
	assert.Equal(t, 2, views.Rehydrate(ctx, "p1", PageSizeKey))
	assert.Equal(t, 25, tabB.View().Page.RowsPerPage)
}

func TestDebouncerRunsLatestOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls, last int32
	d := NewDebouncer(40 * time.Millisecond)
	for i := int32(1); i <= 5; i++ {
		v := i
		d.Debounce(func() {
			atomic.StoreInt32(&last, v)
			atomic.AddInt32(&calls, 1)
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	var calls int32
	d := NewDebouncer(30 * time.Millisecond)
	d.Debounce(func() { atomic.AddInt32(&calls, 1) })
	assert.True(t, d.Pending())
	d.Cancel()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDebouncerImmediate(t *testing.T) {
	var calls int32
	d := NewDebouncer(30 * time.Millisecond)
	d.Debounce(func() { atomic.AddInt32(&calls, 10) })
	d.Immediate(func() { atomic.AddInt32(&calls, 1) })
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
