package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/maxidea1024/gatrix-sub012/internal/jobs"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/prefs"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PrefsReconcileJob merges every stored column preference with the current
// catalog defaults so new columns show up and pinned columns return to their
// declared positions without waiting for the next page visit. Saved ids the
// catalog no longer declares are kept, appended after the known columns.
type PrefsReconcileJob struct {
	Store   prefs.Store
	Catalog *resources.Catalog
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPrefsReconcileJob initialises the reconcile handler.
func NewPrefsReconcileJob(store prefs.Store, cat *resources.Catalog, logger *slog.Logger, metrics *jobmetrics.Metrics) *PrefsReconcileJob {
	return &PrefsReconcileJob{Store: store, Catalog: cat, Logger: logger, Metrics: metrics}
}

// Handle executes the reconcile task.
func (j *PrefsReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil || j.Catalog == nil {
		return errors.New("prefs reconcile: handler not configured")
	}
	var payload PrefsReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskPrefsReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	lists := payload.Lists
	if len(lists) == 0 {
		for name := range j.Catalog.Lists {
			lists = append(lists, name)
		}
		sort.Strings(lists)
	}

	logger := j.logger()
	total := 0
	for _, list := range lists {
		n, err := j.Reconcile(ctx, list)
		if err != nil {
			resultErr = err
			logger.Error("reconcile failed", slog.String("list", list), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddReconciled(list, n)
		total += n
	}
	logger.Info("completed preference reconcile",
		slog.Int("lists", len(lists)),
		slog.Int("rewritten", total),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

// Reconcile rewrites the stored columns of list for every profile whose
// saved array differs from its merge with the defaults. Corrupt entries are
// deleted. It returns the number of profiles touched.
func (j *PrefsReconcileJob) Reconcile(ctx context.Context, list string) (int, error) {
	def, err := j.Catalog.List(list)
	if err != nil {
		return 0, err
	}
	key := liststate.ColumnsKey(list)
	touched := 0
	err = j.Store.Scan(ctx, key, func(profile, value string) error {
		var saved []liststate.ColumnConfig
		if err := json.Unmarshal([]byte(value), &saved); err != nil {
			j.logger().Warn("drop corrupt column preference", slog.String("list", list), slog.String("profile", profile))
			if err := j.Store.Delete(ctx, profile, key); err != nil {
				return err
			}
			touched++
			return nil
		}
		merged := liststate.ApplyPinned(def.Columns, def.Pinned, liststate.MergeColumns(def.Columns, saved))
		if slices.Equal(merged, saved) {
			return nil
		}
		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		if err := j.Store.Set(ctx, profile, key, string(raw)); err != nil {
			return err
		}
		touched++
		return nil
	})
	if err != nil {
		return touched, fmt.Errorf("prefs reconcile: %s: %w", list, err)
	}
	return touched, nil
}

func (j *PrefsReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPrefsReconcile))
	}
	return slog.Default().With(slog.String("job", TaskPrefsReconcile))
}

func (j *PrefsReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
