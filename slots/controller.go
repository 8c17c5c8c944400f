package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"markestedt/winchord/action"
	"markestedt/winchord/platform"
	"markestedt/winchord/storage"
)

const msgConfigureFirst = "No window found for this index, please configure it first"

// Store persists slots
type Store interface {
	SaveSlots(records []storage.SlotRecord) error
	LoadSlots() ([]storage.SlotRecord, error)
}

// RequestKind selects what the controller does
type RequestKind int

const (
	RunVerb RequestKind = iota
	RunActiveVerb
	AssignWindow
	CacheSlots
)

func (k RequestKind) String() string {
	switch k {
	case RunVerb:
		return "run_verb"
	case RunActiveVerb:
		return "run_active_verb"
	case AssignWindow:
		return "assign_window"
	case CacheSlots:
		return "cache_slots"
	default:
		return "unknown"
	}
}

// Request asks the controller to act on windows. Chord and Keys only travel
// along for the history record.
type Request struct {
	Kind   RequestKind
	Slot   int
	Verb   action.Verb
	Window *platform.Window
	Chord  string
	Keys   string
	At     time.Time
}

// Result reports how a request went
type Result struct {
	Request Request
	Outcome string
	Message string
	Err     error
	Latency time.Duration
}

// Controller owns the slot table and performs all window I/O on its own
// goroutine so that slow launches never stall key recognition.
type Controller struct {
	windows     platform.WindowControl
	store       Store
	openTimeout time.Duration

	table      *Table
	lastActive *platform.Window

	requests chan Request
	results  chan Result
	snapshot atomic.Pointer[[]Slot]
}

// NewController creates a controller for count slots
func NewController(windows platform.WindowControl, store Store, count int, openTimeout time.Duration) *Controller {
	c := &Controller{
		windows:     windows,
		store:       store,
		openTimeout: openTimeout,
		table:       NewTable(count),
		requests:    make(chan Request, 16),
		results:     make(chan Result, 16),
	}
	c.publish()
	return c
}

// Restore loads the persisted slots. Call it before Run.
func (c *Controller) Restore() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	records, err := c.store.LoadSlots()
	if err != nil {
		return 0, fmt.Errorf("failed to load slots: %w", err)
	}
	n := c.table.Restore(records)
	c.publish()
	return n, nil
}

// Submit queues a request, waiting for room until ctx is done
func (c *Controller) Submit(ctx context.Context, req Request) error {
	if req.At.IsZero() {
		req.At = time.Now()
	}
	select {
	case c.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel results are published on. Closed when Run returns.
func (c *Controller) Results() <-chan Result {
	return c.results
}

// Snapshot returns a copy of the slots as of the last finished request
func (c *Controller) Snapshot() []Slot {
	return *c.snapshot.Load()
}

// Len returns the number of slots
func (c *Controller) Len() int {
	return c.table.Len()
}

// Run processes requests until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.results)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.requests:
			res := c.handle(ctx, req)
			c.publish()

			select {
			case c.results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (c *Controller) publish() {
	s := c.table.Copy()
	c.snapshot.Store(&s)
}

func (c *Controller) handle(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	res = Result{Request: req, Outcome: storage.OutcomeOK}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in window request", "panic", r, "kind", req.Kind)
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Latency = time.Since(start)
		switch {
		case res.Err == nil:
		case errors.Is(res.Err, platform.ErrWindowNotFound):
			res.Outcome = storage.OutcomeNotFound
		default:
			res.Outcome = storage.OutcomeFailed
		}
	}()

	switch req.Kind {
	case RunVerb:
		res.Message, res.Err = c.runVerb(ctx, req.Slot, req.Verb)
	case RunActiveVerb:
		res.Message, res.Err = c.runActiveVerb(req.Verb)
	case AssignWindow:
		res.Message, res.Err = c.assign(req.Slot, req.Window)
	case CacheSlots:
		res.Message, res.Err = c.cache()
	default:
		res.Err = fmt.Errorf("unknown request kind %d", req.Kind)
	}
	return res
}

func (c *Controller) runVerb(ctx context.Context, index int, verb action.Verb) (string, error) {
	slot := c.table.At(index)
	if slot == nil {
		return "", fmt.Errorf("slot %d out of range 1..%d", index, c.table.Len())
	}

	if w, err := c.windows.ActiveWindow(); err == nil && w != nil {
		c.lastActive = w
	}

	switch verb {
	case action.Control:
		return c.control(ctx, slot)
	case action.Open:
		return c.open(ctx, slot)
	case action.Close:
		if !slot.Live() {
			return msgConfigureFirst, platform.ErrWindowNotFound
		}
		err := c.windows.Close(slot.Window)
		slot.dropWindow()
		return "", err
	case action.CloseAll:
		if slot.Title == "" {
			return "No window title found for this index, please configure it first", platform.ErrWindowNotFound
		}
		n, err := c.windows.CloseAll(slot.Title)
		slot.dropWindow()
		return fmt.Sprintf("Closed %d windows", n), err
	case action.Maximize:
		if !slot.Live() {
			return msgConfigureFirst, platform.ErrWindowNotFound
		}
		return "", c.liveOp(slot, c.windows.Maximize)
	case action.Minimize:
		if !slot.Live() {
			return msgConfigureFirst, platform.ErrWindowNotFound
		}
		return "", c.liveOp(slot, c.windows.Minimize)
	default:
		return "", fmt.Errorf("unknown verb %q", verb)
	}
}

// liveOp runs op on the slot window and forgets the window if it is gone
func (c *Controller) liveOp(slot *Slot, op func(*platform.Window) error) error {
	err := op(slot.Window)
	if errors.Is(err, platform.ErrWindowNotFound) {
		slot.dropWindow()
	}
	return err
}

// control toggles the slot window, launching the program when no window is live
func (c *Controller) control(ctx context.Context, slot *Slot) (string, error) {
	if slot.Live() {
		err := c.liveOp(slot, c.windows.ToggleMinimizedRestore)
		if !errors.Is(err, platform.ErrWindowNotFound) || slot.ExePath == "" {
			return "", err
		}
	}
	if slot.ExePath != "" {
		return c.launch(ctx, slot)
	}
	return msgConfigureFirst, platform.ErrWindowNotFound
}

// open launches the slot program, resolving it from the window handle if needed
func (c *Controller) open(ctx context.Context, slot *Slot) (string, error) {
	if slot.ExePath != "" {
		return c.launch(ctx, slot)
	}
	if slot.Live() || slot.Handle != 0 {
		path, err := c.windows.ExecutablePath(slot.Handle)
		if err != nil {
			return "Could not resolve the program for this window", err
		}
		slot.ExePath = path
		return c.launch(ctx, slot)
	}
	slot.Clear()
	return msgConfigureFirst, platform.ErrWindowNotFound
}

func (c *Controller) launch(ctx context.Context, slot *Slot) (string, error) {
	w, err := c.windows.Open(ctx, slot.ExePath, slot.Title, c.openTimeout)
	if err != nil {
		slot.dropWindow()
		return "Timeout waiting for window to appear", err
	}
	if w == nil {
		slot.dropWindow()
		return "Timeout waiting for window to appear", platform.ErrWindowNotFound
	}
	slot.Window = w
	slot.Handle = w.Handle
	if slot.Title == "" {
		slot.Title = w.Title
	}
	return "", nil
}

func (c *Controller) runActiveVerb(verb action.Verb) (string, error) {
	if verb == action.Open {
		if c.lastActive == nil {
			return "No previously active window", platform.ErrWindowNotFound
		}
		return "", c.windows.Activate(c.lastActive)
	}

	w, err := c.windows.ActiveWindow()
	if err != nil {
		return "", err
	}
	if w == nil {
		return "No active window", platform.ErrWindowNotFound
	}

	switch verb {
	case action.Close:
		return "", c.windows.Close(w)
	case action.Maximize:
		return "", c.windows.Maximize(w)
	case action.Minimize:
		return "", c.windows.Minimize(w)
	default:
		return "", fmt.Errorf("unknown verb %q for active window", verb)
	}
}

func (c *Controller) assign(index int, w *platform.Window) (string, error) {
	slot := c.table.At(index)
	if slot == nil {
		return "Invalid assignment", fmt.Errorf("slot %d out of range 1..%d", index, c.table.Len())
	}
	if w == nil {
		return "No window found", platform.ErrWindowNotFound
	}

	exe := w.ExePath
	if exe == "" {
		path, err := c.windows.ExecutablePath(w.Handle)
		if err != nil {
			slog.Warn("Failed to resolve executable path", "slot", index, "error", err)
		}
		exe = path
	}

	*slot = Slot{Window: w, Title: w.Title, Handle: w.Handle, ExePath: exe}
	slog.Info("Window assigned", "slot", index, "title", w.Title, "exe", exe)

	if _, err := c.cache(); err != nil {
		slog.Warn("Failed to persist slots", "error", err)
	}
	return fmt.Sprintf("Window %d assigned: %s", index, w.Title), nil
}

func (c *Controller) cache() (string, error) {
	if c.store == nil {
		return "", nil
	}
	records := c.table.Records()
	if err := c.store.SaveSlots(records); err != nil {
		return "", fmt.Errorf("failed to save slots: %w", err)
	}
	return fmt.Sprintf("Cached %d windows", len(records)), nil
}
