// Package confirm puts destructive actions behind an explicit confirmation.
package confirm

import (
	"context"
	"errors"
	"sync"
)

// State of a Gate.
type State int

const (
	Closed State = iota
	Open
	Running
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Running:
		return "running"
	default:
		return "closed"
	}
}

var (
	ErrNotArmed = errors.New("confirm: not armed")
	ErrInFlight = errors.New("confirm: action in flight")
)

// Gate moves closed -> open -> {confirmed, cancelled} -> closed. The confirmed
// callback runs at most once per open cycle.
type Gate struct {
	mu    sync.Mutex
	state State
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Busy reports whether a confirmed action is running.
func (g *Gate) Busy() bool { return g.State() == Running }

// Open arms the gate. Opening an armed gate is a no-op.
func (g *Gate) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Running {
		return ErrInFlight
	}
	g.state = Open
	return nil
}

// Cancel closes an armed gate without running anything.
func (g *Gate) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case Running:
		return ErrInFlight
	case Closed:
		return ErrNotArmed
	}
	g.state = Closed
	return nil
}

// Confirm runs fn once and closes the gate whatever fn returns.
func (g *Gate) Confirm(ctx context.Context, fn func(context.Context) error) error {
	g.mu.Lock()
	switch g.state {
	case Running:
		g.mu.Unlock()
		return ErrInFlight
	case Closed:
		g.mu.Unlock()
		return ErrNotArmed
	}
	g.state = Running
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.state = Closed
		g.mu.Unlock()
	}()
	return fn(ctx)
}
