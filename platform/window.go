package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
)

// RobotWindows controls windows through robotgo
type RobotWindows struct {
	poll time.Duration

	mu        sync.Mutex
	minimized map[int]bool
}

// NewWindowControl creates the robotgo-backed window controller
func NewWindowControl() WindowControl {
	return &RobotWindows{
		poll:      500 * time.Millisecond,
		minimized: make(map[int]bool),
	}
}

// ActiveWindow returns the foreground window, or nil when there is none
func (r *RobotWindows) ActiveWindow() (*Window, error) {
	pid := robotgo.GetPid()
	if pid <= 0 {
		return nil, nil
	}

	w := &Window{
		PID:    pid,
		Title:  robotgo.GetTitle(pid),
		Handle: activeHandle(pid),
	}
	if path, err := robotgo.FindPath(pid); err == nil {
		w.ExePath = path
	} else {
		slog.Debug("Failed to resolve executable path", "pid", pid, "error", err)
	}
	return w, nil
}

// Open launches exePath and waits until a window of that program whose title
// contains titleHint shows up
func (r *RobotWindows) Open(ctx context.Context, exePath, titleHint string, timeout time.Duration) (*Window, error) {
	if exePath == "" {
		return nil, ErrWindowNotFound
	}
	if err := launch(exePath); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", exePath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		if w := r.find(exePath, titleHint); w != nil {
			return w, nil
		}
		select {
		case <-ctx.Done():
			slog.Warn("Timeout waiting for window to appear", "exe", exePath, "title", titleHint)
			return nil, ErrWindowNotFound
		case <-ticker.C:
		}
	}
}

// find looks for a titled window among the processes running exePath
func (r *RobotWindows) find(exePath, titleHint string) *Window {
	name := strings.TrimSuffix(filepath.Base(exePath), filepath.Ext(exePath))
	pids, err := robotgo.FindIds(name)
	if err != nil {
		return nil
	}

	hint := strings.ToLower(titleHint)
	for _, pid := range pids {
		title := robotgo.GetTitle(pid)
		if title == "" {
			continue
		}
		if hint != "" && !strings.Contains(strings.ToLower(title), hint) {
			continue
		}
		return &Window{PID: pid, Title: title, Handle: handleOf(pid), ExePath: exePath}
	}
	return nil
}

// Close closes the window
func (r *RobotWindows) Close(w *Window) error {
	if err := r.alive(w); err != nil {
		return err
	}
	robotgo.CloseWindow(w.PID)
	r.forget(w.PID)
	return nil
}

// CloseAll closes every window whose title contains titleSubstring
func (r *RobotWindows) CloseAll(titleSubstring string) (int, error) {
	if titleSubstring == "" {
		return 0, ErrWindowNotFound
	}
	procs, err := robotgo.Process()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	needle := strings.ToLower(titleSubstring)
	closed := 0
	for _, p := range procs {
		title := robotgo.GetTitle(p.Pid)
		if title == "" || !strings.Contains(strings.ToLower(title), needle) {
			continue
		}
		robotgo.CloseWindow(p.Pid)
		r.forget(p.Pid)
		closed++
	}
	if closed == 0 {
		return 0, ErrWindowNotFound
	}
	return closed, nil
}

// Maximize maximizes the window
func (r *RobotWindows) Maximize(w *Window) error {
	if err := r.alive(w); err != nil {
		return err
	}
	robotgo.MaxWindow(w.PID)
	r.setMinimized(w.PID, false)
	return nil
}

// Minimize minimizes the window
func (r *RobotWindows) Minimize(w *Window) error {
	if err := r.alive(w); err != nil {
		return err
	}
	robotgo.MinWindow(w.PID)
	r.setMinimized(w.PID, true)
	return nil
}

// ToggleMinimizedRestore restores a minimized window and minimizes any other
func (r *RobotWindows) ToggleMinimizedRestore(w *Window) error {
	if err := r.alive(w); err != nil {
		return err
	}

	minimized, known := isIconic(w)
	if !known {
		r.mu.Lock()
		minimized = r.minimized[w.PID]
		r.mu.Unlock()
	}

	if minimized {
		robotgo.MinWindow(w.PID, false)
		r.setMinimized(w.PID, false)
		return r.Activate(w)
	}
	robotgo.MinWindow(w.PID)
	r.setMinimized(w.PID, true)
	return nil
}

// Activate brings the window to the foreground
func (r *RobotWindows) Activate(w *Window) error {
	if err := r.alive(w); err != nil {
		return err
	}
	if err := robotgo.ActivePid(w.PID); err != nil {
		return fmt.Errorf("failed to activate window: %w", err)
	}
	return nil
}

// ExecutablePath resolves the program behind a window handle
func (r *RobotWindows) ExecutablePath(handle uintptr) (string, error) {
	return executablePath(handle)
}

func (r *RobotWindows) alive(w *Window) error {
	if w == nil || w.PID <= 0 {
		return ErrWindowNotFound
	}
	ok, err := robotgo.PidExists(w.PID)
	if err != nil || !ok {
		r.forget(w.PID)
		return ErrWindowNotFound
	}
	return nil
}

func (r *RobotWindows) setMinimized(pid int, v bool) {
	r.mu.Lock()
	r.minimized[pid] = v
	r.mu.Unlock()
}

func (r *RobotWindows) forget(pid int) {
	r.mu.Lock()
	delete(r.minimized, pid)
	r.mu.Unlock()
}

// launch starts a program detached from winchord
func launch(exePath string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", exePath)
	case "darwin":
		cmd = exec.Command("open", exePath)
	default:
		cmd = exec.Command(exePath)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
