package platform

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"unicode"

	hook "github.com/robotn/gohook"

	"markestedt/winchord/keys"
)

// libuiohook reports keys it cannot translate with this character
const charUndefined = 0xFFFF

// specialKeycodes names keys by their libuiohook virtual code
var specialKeycodes = map[uint16]string{
	0x0001: keys.NameEsc,
	0x000E: keys.NameBackspace,
	0x000F: keys.NameTab,
	0x001C: keys.NameEnter,
	0x0E1C: keys.NameEnter,
	0x0039: keys.NameSpace,
	0x003A: keys.NameCapsLock,
	0x002A: keys.NameShift,
	0x0036: keys.NameShiftR,
	0x001D: keys.NameCtrl,
	0x0E1D: keys.NameCtrlR,
	0x0038: keys.NameAlt,
	0x0E38: keys.NameAltR,
	0x0E5B: keys.NameCmd,
	0x0E5C: keys.NameCmdR,
	0x0E52: keys.NameInsert,
	0x0E53: keys.NameDelete,
	0x0E47: keys.NameHome,
	0x0E4F: keys.NameEnd,
	0x0E49: keys.NamePageUp,
	0x0E51: keys.NamePageDown,
	0xE048: keys.NameUp,
	0xE050: keys.NameDown,
	0xE04B: keys.NameLeft,
	0xE04D: keys.NameRight,
	0x003B: "f1",
	0x003C: "f2",
	0x003D: "f3",
	0x003E: "f4",
	0x003F: "f5",
	0x0040: "f6",
	0x0041: "f7",
	0x0042: "f8",
	0x0043: "f9",
	0x0044: "f10",
	0x0057: "f11",
	0x0058: "f12",
}

// usLayoutKeycodes names printable keys by their libuiohook virtual code as
// printed on a US keyboard. macOS reports a hardware key code as rawcode, so
// these keys are resolved by position there.
var usLayoutKeycodes = func() map[uint16]string {
	m := map[uint16]string{
		0x000C: "-",
		0x000D: "=",
		0x001A: "[",
		0x001B: "]",
		0x0027: ";",
		0x0028: "'",
		0x0029: "`",
		0x002B: "\\",
		0x0033: ",",
		0x0034: ".",
		0x0035: "/",
	}
	rows := []struct {
		first uint16
		keys  string
	}{
		{0x0002, "1234567890"},
		{0x0010, "qwertyuiop"},
		{0x001E, "asdfghjkl"},
		{0x002C, "zxcvbnm"},
	}
	for _, row := range rows {
		for i, r := range row.keys {
			m[row.first+uint16(i)] = string(r)
		}
	}
	return m
}()

// hookSource runs the process-wide gohook event loop and fans events out to
// keyboard and pointer subscribers. gohook allows a single running hook.
type hookSource struct {
	mu       sync.Mutex
	running  bool
	keySubs  []chan keys.RawKeyEvent
	ptrSubs  []chan keys.RawPointerEvent
	startHub func() chan hook.Event
	endHub   func()
	goos     string
}

var sharedHook = &hookSource{startHub: hook.Start, endHub: hook.End, goos: runtime.GOOS}

func (s *hookSource) subscribeKeys(ctx context.Context) <-chan keys.RawKeyEvent {
	ch := make(chan keys.RawKeyEvent, 64)
	s.mu.Lock()
	s.keySubs = append(s.keySubs, ch)
	s.mu.Unlock()
	s.start(ctx)
	return ch
}

func (s *hookSource) subscribePointer(ctx context.Context) <-chan keys.RawPointerEvent {
	ch := make(chan keys.RawPointerEvent, 64)
	s.mu.Lock()
	s.ptrSubs = append(s.ptrSubs, ch)
	s.mu.Unlock()
	s.start(ctx)
	return ch
}

func (s *hookSource) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.pump(ctx, s.startHub())
	slog.Debug("Input hook started")
}

func (s *hookSource) pump(ctx context.Context, events chan hook.Event) {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.dispatch(e)
		}
	}
}

func (s *hookSource) stop() {
	s.endHub()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.keySubs {
		close(ch)
	}
	for _, ch := range s.ptrSubs {
		close(ch)
	}
	s.keySubs, s.ptrSubs = nil, nil
	s.running = false
	slog.Debug("Input hook stopped")
}

func (s *hookSource) dispatch(e hook.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev, ok := keyFromHook(e, s.goos); ok {
		for _, ch := range s.keySubs {
			select {
			case ch <- ev:
			default:
			}
		}
		return
	}
	if ev, ok := pointerFromHook(e); ok {
		for _, ch := range s.ptrSubs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// keyFromHook converts a gohook key event. KeyHold is the physical press,
// KeyUp the release; KeyDown is the synthesized "typed" event and is skipped.
// On X11 the rawcode is the keysym with the held modifiers applied, so
// Shift+= arrives as '+'. On macOS it is a hardware key code.
func keyFromHook(e hook.Event, goos string) (keys.RawKeyEvent, bool) {
	var kind keys.Kind
	switch e.Kind {
	case hook.KeyHold:
		kind = keys.Press
	case hook.KeyUp:
		kind = keys.Release
	default:
		return keys.RawKeyEvent{}, false
	}

	ev := keys.RawKeyEvent{Kind: kind, Key: keys.PhysicalKey(e.Keycode)}
	if name, ok := specialKeycodes[e.Keycode]; ok {
		ev.Special = name
		return ev, true
	}

	if e.Keychar != 0 && e.Keychar != charUndefined {
		ev.Char = e.Keychar
		return ev, true
	}

	if goos == "darwin" {
		// unmapped keys stay without payload and resolve to unknown
		ev.Special = usLayoutKeycodes[e.Keycode]
		return ev, true
	}

	if e.Rawcode < 0x100 && unicode.IsPrint(rune(e.Rawcode)) {
		// X11 keysyms in the Latin-1 range equal their character
		ev.Char = rune(e.Rawcode)
	} else {
		ev.VK = uint32(e.Rawcode)
	}
	return ev, true
}

func pointerFromHook(e hook.Event) (keys.RawPointerEvent, bool) {
	ev := keys.RawPointerEvent{X: int(e.X), Y: int(e.Y), Button: int(e.Button)}
	switch e.Kind {
	case hook.MouseMove, hook.MouseDrag:
		ev.Action = keys.PointerMove
	case hook.MouseHold:
		ev.Action = keys.PointerDown
	case hook.MouseDown:
		ev.Action = keys.PointerUp
	default:
		return keys.RawPointerEvent{}, false
	}
	return ev, true
}

// GohookPointer reports mouse events from gohook
type GohookPointer struct{}

// NewPointerHook creates the mouse hook
func NewPointerHook() PointerHook {
	return GohookPointer{}
}

// Listen starts the shared hook if needed and subscribes to mouse events
func (GohookPointer) Listen(ctx context.Context) (<-chan keys.RawPointerEvent, error) {
	return sharedHook.subscribePointer(ctx), nil
}

// GohookKeys reports keyboard events from gohook
type GohookKeys struct{}

// Listen starts the shared hook if needed and subscribes to key events
func (GohookKeys) Listen(ctx context.Context) (<-chan keys.RawKeyEvent, error) {
	return sharedHook.subscribeKeys(ctx), nil
}
