package listener

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"markestedt/winchord/keys"
)

// PointerKind identifies a pointer notification
type PointerKind int

const (
	Moved PointerKind = iota
	LeftClick
)

// PointerEvent is published by PointerLoop
type PointerEvent struct {
	Kind PointerKind
	X, Y int
	At   time.Time
}

// PointerLoop watches the pointer. Moves are coalesced and published at most
// once per poll; left clicks are published only while click listening is on.
type PointerLoop struct {
	poll   time.Duration
	out    chan PointerEvent
	clicks atomic.Bool

	pending *PointerEvent
}

// NewPointerLoop creates a pointer loop publishing moves every poll interval
func NewPointerLoop(poll time.Duration) *PointerLoop {
	if poll <= 0 {
		poll = time.Second
	}
	return &PointerLoop{
		poll: poll,
		out:  make(chan PointerEvent, 16),
	}
}

// Events returns the published pointer events. Closed when Run returns.
func (p *PointerLoop) Events() <-chan PointerEvent {
	return p.out
}

// ListenClicks turns left-click publishing on or off
func (p *PointerLoop) ListenClicks(on bool) {
	if p.clicks.Swap(on) != on {
		slog.Debug("Pointer click listening", "enabled", on)
	}
}

// Run consumes raw pointer events until ctx is cancelled or the source closes
func (p *PointerLoop) Run(ctx context.Context, events <-chan keys.RawPointerEvent) error {
	defer close(p.out)

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handle(ctx, ev)

		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *PointerLoop) handle(ctx context.Context, ev keys.RawPointerEvent) {
	switch ev.Action {
	case keys.PointerMove:
		p.pending = &PointerEvent{Kind: Moved, X: ev.X, Y: ev.Y}
	case keys.PointerDown:
		if !p.clicks.Load() || ev.Button != keys.ButtonLeft {
			return
		}
		slog.Debug("Left button clicked", "x", ev.X, "y", ev.Y)
		select {
		case p.out <- PointerEvent{Kind: LeftClick, X: ev.X, Y: ev.Y, At: time.Now()}:
		case <-ctx.Done():
		}
	}
}

func (p *PointerLoop) flush() {
	if p.pending == nil {
		return
	}
	ev := *p.pending
	ev.At = time.Now()
	p.pending = nil
	select {
	case p.out <- ev:
	default:
	}
}
