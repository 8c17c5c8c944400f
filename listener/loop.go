package listener

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"markestedt/winchord/action"
	"markestedt/winchord/chord"
	"markestedt/winchord/keys"
)

// ErrSourceClosed is returned by Run when the key event channel is closed
var ErrSourceClosed = errors.New("key event source closed")

// Options tunes the poll cadence of the loop
type Options struct {
	ActivePoll     time.Duration
	IdlePoll       time.Duration
	IdleResetPolls int
}

// DefaultOptions returns the stock poll cadence
func DefaultOptions() Options {
	return Options{
		ActivePoll:     150 * time.Millisecond,
		IdlePoll:       250 * time.Millisecond,
		IdleResetPolls: 3,
	}
}

type controlKind int

const (
	ctlSetMode controlKind = iota
	ctlPause
	ctlResume
	ctlReplaceTable
)

type controlMsg struct {
	kind  controlKind
	mode  Mode
	table *chord.Table
}

// Loop turns raw key events into chord notifications.
//
// All recognition state (held keys, chord table, mode) belongs to the
// goroutine running Run. Other goroutines talk to it only through the control
// methods, which queue a message the loop applies between events.
type Loop struct {
	opts       Options
	dispatcher *action.Dispatcher
	out        chan Notification
	control    chan controlMsg
	done       chan struct{}

	table      *chord.Table
	pressed    chord.PressedSet
	mode       Mode
	armed      bool
	paused     bool
	emptyPolls int
	timeout    time.Duration
}

// NewLoop creates a listener loop over a chord table
func NewLoop(table *chord.Table, dispatcher *action.Dispatcher, opts Options) *Loop {
	if opts.ActivePoll <= 0 || opts.IdlePoll <= 0 || opts.IdleResetPolls <= 0 {
		opts = DefaultOptions()
	}
	return &Loop{
		opts:       opts,
		dispatcher: dispatcher,
		out:        make(chan Notification, 64),
		control:    make(chan controlMsg, 16),
		done:       make(chan struct{}),
		table:      table,
		timeout:    opts.IdlePoll,
	}
}

// Notifications returns the channel the loop publishes on. It is closed
// when Run returns.
func (l *Loop) Notifications() <-chan Notification {
	return l.out
}

// SetMode switches how presses are interpreted. Held keys are forgotten.
func (l *Loop) SetMode(m Mode) {
	l.send(controlMsg{kind: ctlSetMode, mode: m})
}

// Pause makes the loop discard key events until Resume
func (l *Loop) Pause() {
	l.send(controlMsg{kind: ctlPause})
}

// Resume restarts recognition after Pause
func (l *Loop) Resume() {
	l.send(controlMsg{kind: ctlResume})
}

// ReplaceTable swaps the chord table between two events
func (l *Loop) ReplaceTable(t *chord.Table) {
	l.send(controlMsg{kind: ctlReplaceTable, table: t})
}

func (l *Loop) send(msg controlMsg) {
	select {
	case l.control <- msg:
	case <-l.done:
	}
}

// Run processes events until ctx is cancelled, the event source closes or a
// shutdown is requested from the keyboard.
func (l *Loop) Run(ctx context.Context, events <-chan keys.RawKeyEvent) error {
	defer close(l.out)
	defer close(l.done)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg := <-l.control:
			l.apply(msg)

		case ev, ok := <-events:
			if !ok {
				return ErrSourceClosed
			}
			if l.paused {
				continue
			}
			if l.handle(ctx, ev) {
				return nil
			}

		case <-timer.C:
			l.idle()
		}

		timer.Reset(l.timeout)
	}
}

func (l *Loop) apply(msg controlMsg) {
	switch msg.kind {
	case ctlSetMode:
		slog.Debug("Listener mode changed", "from", l.mode, "to", msg.mode)
		l.mode = msg.mode
		l.reset()
	case ctlPause:
		l.paused = true
		l.reset()
		slog.Info("Listening paused")
	case ctlResume:
		l.paused = false
		l.reset()
		slog.Info("Listening resumed")
	case ctlReplaceTable:
		if msg.table != nil {
			l.table = msg.table
			l.reset()
			slog.Info("Chord table replaced", "chords", msg.table.Len())
		}
	}
}

// idle counts an empty poll. Enough of them in a row forget held keys, which
// covers releases lost while focus was elsewhere.
func (l *Loop) idle() {
	l.emptyPolls++
	if l.emptyPolls < l.opts.IdleResetPolls {
		return
	}
	if l.pressed.Len() > 0 {
		slog.Debug("Idle reset", "held", l.pressed.String())
	}
	l.reset()
	l.emptyPolls = 0
	l.timeout = l.opts.IdlePoll
}

func (l *Loop) reset() {
	l.pressed.Clear()
	l.armed = false
}

// handle processes one event and reports whether the loop must stop.
// A panic while handling an event drops the event and clears held keys.
func (l *Loop) handle(ctx context.Context, ev keys.RawKeyEvent) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic while handling key event", "panic", r, "event", ev)
			l.reset()
			stop = false
		}
	}()

	l.emptyPolls = 0
	l.timeout = l.opts.ActivePoll

	if ev.Kind == keys.Release && ev.IsSpecial(keys.Esc) {
		slog.Info("Escape released, shutting down")
		l.emit(ctx, Notification{Kind: ShutdownRequested})
		return true
	}

	if l.mode == ModeChord {
		return l.handleChord(ctx, ev)
	}
	l.handleAwait(ctx, ev)
	return false
}

func (l *Loop) handleChord(ctx context.Context, ev keys.RawKeyEvent) bool {
	switch ev.Kind {
	case keys.Press:
		if ev.IsSpecial(keys.Esc) || l.pressed.Has(ev.Key) {
			return false
		}
		token := keys.Normalize(ev)
		l.emit(ctx, Notification{Kind: KeyToken, Token: token})
		l.pressed.Press(ev.Key, token)
		l.armed = true
		slog.Debug("Key pressed", "token", token, "held", l.pressed.String())

	case keys.Release:
		if !l.pressed.Has(ev.Key) {
			return false
		}
		if l.armed {
			held := l.pressed.Values()
			if c, ok := l.table.Match(held); ok {
				l.reset()
				return l.fire(ctx, c.Name, held)
			}
		}
		l.pressed.Release(ev.Key)
		l.armed = false
	}
	return false
}

func (l *Loop) fire(ctx context.Context, name string, held []keys.Token) bool {
	slog.Info("Chord detected", "chord", name, "keys", held)
	l.emit(ctx, Notification{Kind: ChordDetected, Chord: name, Tokens: held})

	act, ok := l.dispatcher.Dispatch(name)
	if !ok {
		slog.Warn("No action bound to chord", "chord", name)
		return false
	}
	l.emit(ctx, Notification{Kind: ActionRequested, Chord: name, Action: act})

	if act.Kind == action.ExitProgram {
		l.emit(ctx, Notification{Kind: ShutdownRequested})
		return true
	}
	return false
}

func (l *Loop) handleAwait(ctx context.Context, ev keys.RawKeyEvent) {
	if ev.Kind == keys.Release {
		l.pressed.Release(ev.Key)
		return
	}
	if ev.IsSpecial(keys.Esc) || l.pressed.Has(ev.Key) {
		return
	}

	if ev.IsSpecial(keys.Enter) {
		l.emit(ctx, Notification{Kind: Confirmed})
		l.pressed.Clear()
		return
	}

	if l.mode != ModeSlotNumber {
		token := keys.Normalize(ev)
		l.pressed.Press(ev.Key, token)
		l.emit(ctx, Notification{Kind: KeyToken, Token: token})
		l.emit(ctx, Notification{Kind: Declined, Token: token})
		return
	}

	token := keys.Literal(ev)
	l.pressed.Press(ev.Key, token)
	l.emit(ctx, Notification{Kind: KeyToken, Token: token})
	l.emit(ctx, Notification{Kind: NumberChosen, Token: token, Number: slotNumber(token)})
}

func slotNumber(t keys.Token) int {
	n, err := strconv.Atoi(string(t))
	if err != nil {
		return InvalidSlot
	}
	return n
}

// emit publishes a notification. Key tokens are display-only and are dropped
// when the consumer lags; everything else waits for room.
func (l *Loop) emit(ctx context.Context, n Notification) {
	n.At = time.Now()
	if n.Kind == KeyToken {
		select {
		case l.out <- n:
		default:
			slog.Debug("Dropped key token notification", "token", n.Token)
		}
		return
	}

	select {
	case l.out <- n:
	case <-ctx.Done():
	}
}
