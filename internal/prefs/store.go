// Package prefs persists per-profile console preferences and signals changes
// so that other open views of the same profile can re-hydrate.
package prefs

import (
	"context"
	"errors"

	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
)

// ErrInvalidKey rejects empty profiles and keys.
var ErrInvalidKey = errors.New("prefs: profile and key required")

// Change announces that a preference was written or removed.
type Change struct {
	Profile string `json:"profile"`
	Key     string `json:"key"`
}

// Store is the durable preference storage used by list controllers.
type Store interface {
	liststate.Storage
	Delete(ctx context.Context, profile, key string) error
	// Scan visits every profile holding key.
	Scan(ctx context.Context, key string, fn func(profile, value string) error) error
	// Watch delivers changes until ctx is done. The returned channel is
	// closed once fn will no longer be called.
	Watch(ctx context.Context, fn func(Change)) (<-chan struct{}, error)
}

func validKey(profile, key string) error {
	if profile == "" || key == "" {
		return ErrInvalidKey
	}
	return nil
}
