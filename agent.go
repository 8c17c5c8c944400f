package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"markestedt/winchord/action"
	"markestedt/winchord/audio"
	"markestedt/winchord/chord"
	"markestedt/winchord/config"
	"markestedt/winchord/keys"
	"markestedt/winchord/listener"
	"markestedt/winchord/notify"
	"markestedt/winchord/platform"
	"markestedt/winchord/slots"
	"markestedt/winchord/storage"
	"markestedt/winchord/web"
)

// clickSettle is how long to wait after a click before asking which window is
// active, so the clicked window has time to take focus
const clickSettle = 150 * time.Millisecond

type configureStage int

const (
	stageIdle configureStage = iota
	stageAwaitClick
	stageAwaitNumber
	stageAwaitConfirm
)

// Player plays feedback tones
type Player interface {
	Play(t audio.Tone)
}

// Deps are the platform services the agent drives
type Deps struct {
	Keys     platform.KeyHook
	Pointer  platform.PointerHook
	Windows  platform.WindowControl
	Notifier notify.Notifier
	Player   Player
}

// Agent coordinates chord recognition, window control, history and the UI
type Agent struct {
	cfg        *config.Config
	configPath string
	db         *storage.DB
	deps       Deps

	dispatcher *action.Dispatcher
	loop       *listener.Loop
	pointer    *listener.PointerLoop
	slots      *slots.Controller
	web        *web.Server
	configure  chan struct{}

	mu            sync.Mutex
	paused        bool
	alwaysOnTop   bool
	mode          listener.Mode
	onStateChange func(paused, alwaysOnTop bool)

	// owned by the Run goroutine
	stage         configureStage
	pendingWindow *platform.Window
	pendingSlot   int
	settle        <-chan time.Time
	lastKeys      string
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config, configPath string, db *storage.DB, deps Deps) (*Agent, error) {
	table, err := chord.ParseTable(cfg.Definitions())
	if err != nil {
		return nil, fmt.Errorf("failed to parse shortcuts: %w", err)
	}

	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}

	dispatcher := action.NewDispatcher(cfg.Slots.Count)
	logTableProblems(table, dispatcher)

	a := &Agent{
		cfg:        cfg,
		configPath: configPath,
		db:         db,
		deps:       deps,
		dispatcher: dispatcher,
		loop: listener.NewLoop(table, dispatcher, listener.Options{
			ActivePoll:     cfg.Listener.ActivePoll(),
			IdlePoll:       cfg.Listener.IdlePoll(),
			IdleResetPolls: cfg.Listener.IdleResetPolls,
		}),
		pointer:   listener.NewPointerLoop(cfg.Listener.PointerPoll()),
		slots:     slots.NewController(deps.Windows, db, cfg.Slots.Count, cfg.Slots.OpenTimeout()),
		configure: make(chan struct{}, 1),
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(db, a, cfg, cfg.Web.Port)
	}

	return a, nil
}

func logTableProblems(table *chord.Table, dispatcher *action.Dispatcher) {
	for name, winner := range table.Shadowed() {
		slog.Warn("Chord can never fire, an earlier chord uses the same keys", "chord", name, "shadowed_by", winner)
	}

	names := make([]string, 0, table.Len())
	for _, c := range table.Chords() {
		names = append(names, c.Name)
	}
	for _, name := range dispatcher.Unbound(names) {
		slog.Warn("Chord has no action and will only be logged", "chord", name)
	}
}

// WebURL returns the dashboard address, or "" when the web UI is off
func (a *Agent) WebURL() string {
	if a.web == nil {
		return ""
	}
	return a.web.URL()
}

// OnStateChange registers a callback for pause and always-on-top changes
func (a *Agent) OnStateChange(f func(paused, alwaysOnTop bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = f
}

// Run starts every worker and runs the main event loop until ctx is cancelled
// or a shutdown chord is pressed
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if n, err := a.slots.Restore(); err != nil {
		slog.Warn("Failed to restore slots", "error", err)
	} else if n > 0 {
		slog.Info("Slots restored", "count", n)
	}

	keyEvents, err := a.deps.Keys.Listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to start key hook: %w", err)
	}
	pointerEvents, err := a.deps.Pointer.Listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to start pointer hook: %w", err)
	}

	var wg sync.WaitGroup
	loopErr := make(chan error, 1)

	wg.Add(3)
	go func() {
		defer wg.Done()
		loopErr <- a.loop.Run(ctx, keyEvents)
	}()
	go func() {
		defer wg.Done()
		if err := a.pointer.Run(ctx, pointerEvents); err != nil {
			slog.Warn("Pointer loop stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		_ = a.slots.Run(ctx)
	}()

	if a.web != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.web.Start(ctx); err != nil {
				slog.Error("Web server stopped", "error", err)
			}
		}()
	}

	if a.cfg.Watch && a.configPath != "" {
		if err := config.Watch(ctx, a.configPath, a.reloadConfig); err != nil {
			slog.Warn("Config hot reload disabled", "error", err)
		}
	}

	slog.Info("winchord started",
		"slots", a.cfg.Slots.Count,
		"session", a.db.Session(),
		"web", a.WebURL())

	defer wg.Wait()
	defer cancel()

	notifications := a.loop.Notifications()
	pointerOut := a.pointer.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-notifications:
			if !ok {
				err := <-loopErr
				if errors.Is(err, listener.ErrSourceClosed) {
					return fmt.Errorf("key hook stopped: %w", err)
				}
				return err
			}
			if a.handleNotification(ctx, n) {
				slog.Info("Shutdown requested from keyboard")
				return nil
			}

		case ev, ok := <-pointerOut:
			if !ok {
				pointerOut = nil
				continue
			}
			a.handlePointer(ev)

		case <-a.settle:
			a.settle = nil
			a.resolveClickedWindow()

		case res, ok := <-a.slots.Results():
			if !ok {
				return nil
			}
			a.handleResult(res)

		case <-a.configure:
			a.startConfigure()
		}
	}
}

// handleNotification reacts to one listener notification and reports
// whether the agent must stop
func (a *Agent) handleNotification(ctx context.Context, n listener.Notification) bool {
	switch n.Kind {
	case listener.KeyToken:
		if a.web != nil {
			a.web.BroadcastKey(string(n.Token))
		}

	case listener.Declined:
		if a.stage == stageAwaitConfirm {
			a.guide("Configuration cancelled")
			a.endConfigure()
		}

	case listener.ChordDetected:
		a.lastKeys = joinTokens(n.Tokens)
		a.play(audio.ToneDetected)
		if _, ok := a.dispatcher.Dispatch(n.Chord); !ok {
			a.record(&storage.ChordEvent{
				Chord:   n.Chord,
				Keys:    a.lastKeys,
				Outcome: storage.OutcomeUnbound,
			})
		}

	case listener.ActionRequested:
		a.runAction(ctx, n)

	case listener.NumberChosen:
		if a.stage == stageAwaitNumber {
			a.chooseSlot(ctx, n.Number)
		}

	case listener.Confirmed:
		if a.stage == stageAwaitConfirm {
			a.assign(ctx, a.pendingSlot)
		}

	case listener.ShutdownRequested:
		return true
	}
	return false
}

func (a *Agent) runAction(ctx context.Context, n listener.Notification) {
	act := n.Action
	slog.Info("Action requested", "action", act.String(), "chord", n.Chord)

	immediate := func() {
		a.record(&storage.ChordEvent{
			Chord:   n.Chord,
			Keys:    a.lastKeys,
			Action:  act.String(),
			Outcome: storage.OutcomeOK,
		})
	}

	switch act.Kind {
	case action.ConfigureWindow:
		immediate()
		a.startConfigure()

	case action.ToggleAlwaysOnTop:
		a.mu.Lock()
		a.alwaysOnTop = !a.alwaysOnTop
		a.mu.Unlock()
		immediate()
		a.stateChanged()

	case action.ExitProgram:
		immediate()

	case action.WindowVerb:
		a.submit(ctx, slots.Request{Kind: slots.RunVerb, Slot: act.Slot, Verb: act.Verb, Chord: n.Chord, Keys: a.lastKeys, At: n.At})

	case action.ActiveWindowVerb:
		a.submit(ctx, slots.Request{Kind: slots.RunActiveVerb, Verb: act.Verb, Chord: n.Chord, Keys: a.lastKeys, At: n.At})

	case action.CacheWindows:
		a.submit(ctx, slots.Request{Kind: slots.CacheSlots, Chord: n.Chord, Keys: a.lastKeys, At: n.At})
	}
}

func (a *Agent) submit(ctx context.Context, req slots.Request) {
	if err := a.slots.Submit(ctx, req); err != nil {
		slog.Warn("Window request dropped", "kind", req.Kind, "error", err)
	}
}

func (a *Agent) handlePointer(ev listener.PointerEvent) {
	switch ev.Kind {
	case listener.Moved:
		slog.Debug("Pointer moved", "x", ev.X, "y", ev.Y)
	case listener.LeftClick:
		if a.stage != stageAwaitClick || a.settle != nil {
			return
		}
		slog.Debug("Pointer clicked", "x", ev.X, "y", ev.Y)
		a.settle = time.After(clickSettle)
	}
}

func (a *Agent) handleResult(res slots.Result) {
	req := res.Request

	e := &storage.ChordEvent{
		Chord:     req.Chord,
		Keys:      req.Keys,
		Slot:      req.Slot,
		Outcome:   res.Outcome,
		LatencyMs: time.Since(req.At).Milliseconds(),
	}
	switch req.Kind {
	case slots.RunVerb:
		e.Action = action.Action{Kind: action.WindowVerb, Slot: req.Slot, Verb: req.Verb}.String()
	case slots.RunActiveVerb:
		e.Action = action.Action{Kind: action.ActiveWindowVerb, Verb: req.Verb}.String()
	case slots.CacheSlots:
		e.Action = action.Action{Kind: action.CacheWindows}.String()
	case slots.AssignWindow:
		e.Action = "assign_window"
	}
	if res.Err != nil {
		e.ErrorMessage = res.Err.Error()
		slog.Warn("Window request failed", "action", e.Action, "outcome", res.Outcome, "error", res.Err)
		a.play(audio.ToneFailed)
	} else {
		slog.Info("Window request done", "action", e.Action, "latency", res.Latency)
	}

	// Assignments are already in the history as the configure chord
	if req.Kind != slots.AssignWindow {
		a.record(e)
	}

	if res.Message != "" && (res.Err != nil || req.Kind == slots.AssignWindow || req.Kind == slots.CacheSlots) {
		a.guide(res.Message)
	}

	if a.web != nil {
		a.web.BroadcastSlots(a.Slots())
	}
}

func (a *Agent) startConfigure() {
	if a.stage != stageIdle {
		slog.Debug("Restarting window configuration")
	}
	a.stage = stageAwaitClick
	a.pendingWindow = nil
	a.pendingSlot = 0
	a.settle = nil
	a.pointer.ListenClicks(true)
	a.setMode(listener.ModeChord)
	a.guide("Click the window you want to configure")
}

func (a *Agent) resolveClickedWindow() {
	if a.stage != stageAwaitClick {
		return
	}
	a.pointer.ListenClicks(false)

	w, err := a.deps.Windows.ActiveWindow()
	if err != nil || w == nil {
		if err != nil {
			slog.Warn("Failed to get active window", "error", err)
		}
		a.guide("No window found")
		a.endConfigure()
		return
	}

	a.pendingWindow = w
	a.stage = stageAwaitNumber
	a.setMode(listener.ModeSlotNumber)
	a.guide(fmt.Sprintf("Press a number key (1-%d) for %q", a.slots.Len(), w.Title))
}

func (a *Agent) chooseSlot(ctx context.Context, n int) {
	if n < 1 || n > a.slots.Len() {
		a.guide("Invalid assignment")
		return
	}

	current := a.slots.Snapshot()[n-1]
	if !current.Empty() && current.Handle != a.pendingWindow.Handle {
		a.pendingSlot = n
		a.stage = stageAwaitConfirm
		a.setMode(listener.ModeConfirm)
		a.guide(fmt.Sprintf("Window %d is already configured (%s). Press Enter to replace it, any other key to cancel", n, current.Title))
		return
	}

	a.assign(ctx, n)
}

func (a *Agent) assign(ctx context.Context, n int) {
	a.submit(ctx, slots.Request{
		Kind:   slots.AssignWindow,
		Slot:   n,
		Window: a.pendingWindow,
		Chord:  action.LabelConfigureWindow,
		Keys:   a.lastKeys,
		At:     time.Now(),
	})
	a.endConfigure()
}

func (a *Agent) endConfigure() {
	a.stage = stageIdle
	a.pendingWindow = nil
	a.pendingSlot = 0
	a.settle = nil
	a.pointer.ListenClicks(false)
	a.setMode(listener.ModeChord)
}

func (a *Agent) setMode(m listener.Mode) {
	a.mu.Lock()
	changed := a.mode != m
	a.mode = m
	a.mu.Unlock()

	if changed {
		a.loop.SetMode(m)
		a.stateChanged()
	}
}

func (a *Agent) guide(text string) {
	slog.Info("Guidance", "message", text)
	if a.cfg.Feedback.Notifications {
		if err := a.deps.Notifier.Notify("winchord", text); err != nil {
			slog.Warn("Failed to show notification", "error", err)
		}
	}
	if a.web != nil {
		a.web.BroadcastGuidance(text)
	}
}

func (a *Agent) play(t audio.Tone) {
	if a.cfg.Feedback.Sound && a.deps.Player != nil {
		a.deps.Player.Play(t)
	}
}

func (a *Agent) record(e *storage.ChordEvent) {
	if err := a.db.SaveChordEvent(e); err != nil {
		slog.Error("Failed to save chord event", "error", err)
		return
	}
	if a.web != nil {
		a.web.BroadcastChord(e)
	}
}

// Configure starts the configure-window flow from outside the event loop
func (a *Agent) Configure() {
	select {
	case a.configure <- struct{}{}:
	default:
	}
}

// Pause stops chord recognition
func (a *Agent) Pause() {
	a.setPaused(true)
}

// Resume restarts chord recognition
func (a *Agent) Resume() {
	a.setPaused(false)
}

func (a *Agent) setPaused(p bool) {
	a.mu.Lock()
	changed := a.paused != p
	a.paused = p
	a.mu.Unlock()

	if !changed {
		return
	}
	if p {
		a.loop.Pause()
		slog.Info("Listening paused")
	} else {
		a.loop.Resume()
		slog.Info("Listening resumed")
	}
	a.stateChanged()
}

func (a *Agent) stateChanged() {
	a.mu.Lock()
	paused, onTop, cb := a.paused, a.alwaysOnTop, a.onStateChange
	a.mu.Unlock()

	if cb != nil {
		cb(paused, onTop)
	}
	if a.web != nil {
		a.web.BroadcastStatus(a.Status())
	}
}

// Status reports the agent state for the dashboard
func (a *Agent) Status() web.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := "listening"
	if a.paused {
		state = "paused"
	}
	return web.Status{
		State:       state,
		Mode:        a.mode.String(),
		AlwaysOnTop: a.alwaysOnTop,
		Session:     a.db.Session(),
	}
}

// Slots reports the slot table for the dashboard
func (a *Agent) Slots() []web.SlotView {
	snap := a.slots.Snapshot()
	views := make([]web.SlotView, len(snap))
	for i, s := range snap {
		views[i] = web.SlotView{
			Index:   i + 1,
			Title:   s.Title,
			ExePath: s.ExePath,
			Live:    s.Live(),
		}
	}
	return views
}

// reloadConfig applies a changed configuration file
func (a *Agent) reloadConfig(cfg *config.Config) {
	table, err := chord.ParseTable(cfg.Definitions())
	if err != nil {
		slog.Error("Ignoring reloaded shortcuts", "error", err)
		return
	}
	if cfg.Slots.Count != a.dispatcher.SlotCount() {
		slog.Warn("Slot count changes take effect after restart", "configured", cfg.Slots.Count, "running", a.dispatcher.SlotCount())
	}

	logTableProblems(table, a.dispatcher)
	a.loop.ReplaceTable(table)
	if a.web != nil {
		a.web.UpdateConfig(cfg)
	}
	slog.Info("Shortcuts reloaded", "chords", table.Len())
}

func joinTokens(tokens []keys.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, "+")
}
