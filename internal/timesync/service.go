// Package timesync tracks the offset between local time and backend time so
// that schedule windows are judged on the backend's clock.
package timesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
)

// DefaultInterval between sync rounds.
const DefaultInterval = 5 * time.Minute

var ErrRunning = errors.New("timesync: already started")

// Clock is anything that tells the current time.
type Clock interface {
	Now() time.Time
}

// Source reports the backend's current time.
type Source interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Status is delivered to subscribers after every sync round.
type Status struct {
	Offset   time.Duration
	SyncedAt time.Time
	Err      error
}

// Service polls Source on an interval. It is constructed explicitly and owned
// by whoever calls Start and Stop.
type Service struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	offset    time.Duration
	synced    time.Time
	listeners map[int]func(Status)
	nextID    int

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(source Source, interval time.Duration, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:    source,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func(Status)),
	}
}

// Now returns local time corrected by the last known offset.
func (s *Service) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Add(s.offset)
}

// Offset is backend time minus local time.
func (s *Service) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// LastSync is zero until the first successful round.
func (s *Service) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// Subscribe registers fn for sync results and returns its unsubscribe func.
func (s *Service) Subscribe(fn func(Status)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Sync runs one round. The offset is corrected by half the round trip.
func (s *Service) Sync(ctx context.Context) error {
	sent := s.now()
	server, err := s.source.ServerTime(ctx)
	received := s.now()
	if err != nil {
		s.logger.Warn("time sync failed", slog.Any("error", err))
		s.notify(Status{Offset: s.Offset(), SyncedAt: s.LastSync(), Err: err})
		return err
	}
	rtt := received.Sub(sent)
	offset := server.Add(rtt / 2).Sub(received)

	s.mu.Lock()
	s.offset = offset
	s.synced = received
	s.mu.Unlock()
	s.logger.Debug("time synced", slog.Duration("offset", offset), slog.Duration("rtt", rtt))
	s.notify(Status{Offset: offset, SyncedAt: received})
	return nil
}

// Start syncs immediately and then on every interval until Stop or ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

// Stop ends the polling loop and waits for it. Safe to call repeatedly.
func (s *Service) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	_ = s.Sync(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Sync(ctx)
		}
	}
}

func (s *Service) notify(status Status) {
	s.mu.RLock()
	fns := make([]func(Status), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(status)
	}
}

// BackendSource reads GET /api/v1/time.
type BackendSource struct {
	Client *backend.Client
}

func (b BackendSource) ServerTime(ctx context.Context) (time.Time, error) {
	var out struct {
		ServerTime time.Time `json:"serverTime"`
	}
	if err := b.Client.Get(ctx, "/api/v1/time", nil, &out); err != nil {
		return time.Time{}, err
	}
	if out.ServerTime.IsZero() {
		return time.Time{}, errors.New("timesync: empty server time")
	}
	return out.ServerTime, nil
}
