package liststate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultViewTTL is how long an untouched view stays mounted.
const DefaultViewTTL = 30 * time.Minute

type viewEntry[T any] struct {
	profile  string
	ctrl     *Controller[T]
	lastUsed time.Time
}

// Views tracks the mounted controllers of one list. A page load mounts a view;
// a view idle for longer than the TTL is unmounted on the next sweep.
type Views[T any] struct {
	mu      sync.Mutex
	schema  *Schema[T]
	fetch   Fetcher[T]
	opts    Options
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*viewEntry[T]
}

// NewViews builds a registry. opts.Profile is ignored; every view gets the
// profile passed to Mount.
func NewViews[T any](schema *Schema[T], fetch Fetcher[T], opts Options, ttl time.Duration) *Views[T] {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	return &Views[T]{
		schema:  schema,
		fetch:   fetch,
		opts:    opts,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*viewEntry[T]),
	}
}

// Schema returns the list schema shared by every view.
func (v *Views[T]) Schema() *Schema[T] { return v.schema }

// Mount creates a hydrated controller for profile and returns its view id.
func (v *Views[T]) Mount(ctx context.Context, profile string) (string, *Controller[T]) {
	v.Sweep()
	opts := v.opts
	opts.Profile = profile
	ctrl := NewController(ctx, v.schema, v.fetch, opts)
	id := uuid.NewString()

	v.mu.Lock()
	v.entries[id] = &viewEntry[T]{profile: profile, ctrl: ctrl, lastUsed: v.now()}
	v.mu.Unlock()
	return id, ctrl
}

// Get resumes a mounted view owned by profile.
func (v *Views[T]) Get(id, profile string) (*Controller[T], bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.entries[id]
	if !ok || entry.profile != profile {
		return nil, false
	}
	if v.now().Sub(entry.lastUsed) > v.ttl {
		delete(v.entries, id)
		entry.ctrl.Close()
		return nil, false
	}
	entry.lastUsed = v.now()
	return entry.ctrl, true
}

// Unmount closes and forgets a view.
func (v *Views[T]) Unmount(id string) {
	v.mu.Lock()
	entry, ok := v.entries[id]
	delete(v.entries, id)
	v.mu.Unlock()
	if ok {
		entry.ctrl.Close()
	}
}

// Sweep unmounts idle views and returns how many were closed.
func (v *Views[T]) Sweep() int {
	v.mu.Lock()
	var idle []*Controller[T]
	now := v.now()
	for id, entry := range v.entries {
		if now.Sub(entry.lastUsed) > v.ttl {
			idle = append(idle, entry.ctrl)
			delete(v.entries, id)
		}
	}
	v.mu.Unlock()
	for _, ctrl := range idle {
		ctrl.Close()
	}
	return len(idle)
}

// Rehydrate reloads preferences of every view of profile after key changed
// elsewhere. Keys of other lists are ignored.
func (v *Views[T]) Rehydrate(ctx context.Context, profile, key string) int {
	if list, ok := ListOfKey(key); ok && list != v.schema.List {
		return 0
	} else if !ok && key != PageSizeKey {
		return 0
	}
	v.mu.Lock()
	var targets []*Controller[T]
	for _, entry := range v.entries {
		if entry.profile == profile {
			targets = append(targets, entry.ctrl)
		}
	}
	v.mu.Unlock()
	for _, ctrl := range targets {
		ctrl.Hydrate(ctx)
	}
	return len(targets)
}

// Len returns the number of mounted views.
func (v *Views[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// Close unmounts every view.
func (v *Views[T]) Close() {
	v.mu.Lock()
	entries := v.entries
	v.entries = make(map[string]*viewEntry[T])
	v.mu.Unlock()
	for _, entry := range entries {
		entry.ctrl.Close()
	}
}
