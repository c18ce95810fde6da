package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds how long an armed confirmation page stays valid.
const DefaultTTL = 5 * time.Minute

var ErrExpired = errors.New("confirm: token expired")

// Action describes what a token confirms.
type Action struct {
	Kind     string // delete, toggle
	Resource string
	ID       string
	Label    string
}

type pending struct {
	session string
	action  Action
	gate    *Gate
	expires time.Time
}

// Registry keeps gates armed across the confirm page round trip. A token is
// only valid for the session that armed it.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*pending
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{ttl: ttl, pending: make(map[string]*pending), now: time.Now}
}

// Arm opens a gate for action and returns its token.
func (r *Registry) Arm(session string, action Action) string {
	gate := &Gate{}
	_ = gate.Open()
	token := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.pending[token] = &pending{session: session, action: action, gate: gate, expires: r.now().Add(r.ttl)}
	return token
}

// Lookup returns the armed action for token.
func (r *Registry) Lookup(session, token string) (Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.findLocked(session, token)
	if err != nil {
		return Action{}, err
	}
	return p.action, nil
}

// Confirm runs fn through the token's gate; the token is spent afterwards.
// A second submit while fn runs gets ErrInFlight.
func (r *Registry) Confirm(ctx context.Context, session, token string, fn func(context.Context, Action) error) error {
	r.mu.Lock()
	p, err := r.findLocked(session, token)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	err = p.gate.Confirm(ctx, func(ctx context.Context) error {
		return fn(ctx, p.action)
	})
	if errors.Is(err, ErrInFlight) || errors.Is(err, ErrNotArmed) {
		return err
	}
	r.mu.Lock()
	delete(r.pending, token)
	r.mu.Unlock()
	return err
}

// Cancel disarms token.
func (r *Registry) Cancel(session, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.findLocked(session, token)
	if err != nil {
		return err
	}
	if err := p.gate.Cancel(); err != nil {
		return err
	}
	delete(r.pending, token)
	return nil
}

// Len counts armed tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Registry) findLocked(session, token string) (*pending, error) {
	p, ok := r.pending[token]
	if !ok || p.session != session {
		return nil, ErrNotArmed
	}
	if r.now().After(p.expires) {
		delete(r.pending, token)
		return nil, ErrExpired
	}
	return p, nil
}

func (r *Registry) sweepLocked() {
	now := r.now()
	for token, p := range r.pending {
		if now.After(p.expires) && !p.gate.Busy() {
			delete(r.pending, token)
		}
	}
}
