// Package console serves the list, form and confirmation pages of every
// resource kind over one generic handler.
package console

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/confirm"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/observability"
	"github.com/maxidea1024/gatrix-sub012/internal/prefs"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
)

// Resource is one backend collection exposed by the console.
type Resource[T any] interface {
	List() string
	Schema() *liststate.Schema[T]
	Fetch(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id string, v T) (T, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (T, error)
	Key(v T) string
	Describe(v T) string
	Enabled(v T) bool
	Blank() T
	Decode(form url.Values, base T) T
}

// Deps are shared by every resource handler.
type Deps struct {
	Logger      *slog.Logger
	Templates   *view.Engine
	CSRF        *shared.CSRFManager
	Catalog     *resources.Catalog
	Store       prefs.Store
	Confirm     *confirm.Registry
	Validator   *entityform.Validator
	Idempotency shared.IdempotencyKeys
	Audit       shared.AuditRecorder
	Metrics     *observability.Metrics
	Debounce    time.Duration
	ViewTTL     time.Duration
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
