package platform

import (
	"context"
	"errors"
	"time"

	"markestedt/winchord/keys"
)

var (
	// ErrWindowNotFound means the window no longer exists or never appeared
	ErrWindowNotFound = errors.New("window not found")
	// ErrUnsupported means the operation has no implementation on this OS
	ErrUnsupported = errors.New("not supported on this platform")
)

// Window is a top-level window owned by some process.
// Handle is the native window handle on Windows and the process id elsewhere.
type Window struct {
	Handle  uintptr
	PID     int
	Title   string
	ExePath string
}

// KeyHook delivers raw keyboard events from a global hook
type KeyHook interface {
	Listen(ctx context.Context) (<-chan keys.RawKeyEvent, error)
}

// PointerHook delivers raw mouse events from a global hook
type PointerHook interface {
	Listen(ctx context.Context) (<-chan keys.RawPointerEvent, error)
}

// WindowControl locates and manipulates windows. Absent windows are reported
// as ErrWindowNotFound, never as a panic.
type WindowControl interface {
	ActiveWindow() (*Window, error)
	Open(ctx context.Context, exePath, titleHint string, timeout time.Duration) (*Window, error)
	Close(w *Window) error
	CloseAll(titleSubstring string) (int, error)
	Maximize(w *Window) error
	Minimize(w *Window) error
	ToggleMinimizedRestore(w *Window) error
	Activate(w *Window) error
	ExecutablePath(handle uintptr) (string, error)
}
