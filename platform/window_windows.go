//go:build windows

package platform

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	"golang.org/x/sys/windows"
)

var isIconicProc = user32.NewProc("IsIconic")

// EnumWindows callbacks are a scarce resource, so one is shared
var (
	enumMu       sync.Mutex
	enumPID      uint32
	enumFound    windows.HWND
	enumCallback = windows.NewCallback(enumWindowsProc)
)

func enumWindowsProc(hwnd windows.HWND, _ uintptr) uintptr {
	var owner uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &owner); err != nil {
		return 1
	}
	if owner == enumPID && windows.IsWindowVisible(hwnd) {
		enumFound = hwnd
		return 0
	}
	return 1
}

// activeHandle returns the HWND of the foreground window
func activeHandle(int) uintptr {
	return uintptr(robotgo.GetHandle())
}

// handleOf returns the first visible top-level window of a process
func handleOf(pid int) uintptr {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumPID = uint32(pid)
	enumFound = 0
	// EnumWindows reports an error when the callback stops early
	_ = windows.EnumWindows(enumCallback, nil)
	return uintptr(enumFound)
}

func isIconic(w *Window) (bool, bool) {
	if w.Handle == 0 {
		return false, false
	}
	r, _, _ := isIconicProc.Call(w.Handle)
	return r != 0, true
}

// executablePath resolves an HWND to the image path of its owning process
func executablePath(handle uintptr) (string, error) {
	if handle == 0 {
		return "", ErrWindowNotFound
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(handle), &pid); err != nil || pid == 0 {
		return "", ErrWindowNotFound
	}

	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("failed to query image name: %w", err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}
