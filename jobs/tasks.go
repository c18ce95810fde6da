package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPrefsReconcile rewrites stored column preferences against the list catalog.
	TaskPrefsReconcile = "prefs:reconcile"
	// TaskIdempotencyCleanup purges expired create-form idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// PrefsReconcilePayload selects the lists to reconcile; empty means all.
type PrefsReconcilePayload struct {
	Lists []string `json:"lists,omitempty"`
}

// NewPrefsReconcileTask constructs a reconcile task.
func NewPrefsReconcileTask(lists ...string) (*asynq.Task, error) {
	data, err := json.Marshal(PrefsReconcilePayload{Lists: lists})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrefsReconcile, data), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"olderThan"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
