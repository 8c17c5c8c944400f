//go:build !windows

package platform

import "github.com/go-vgo/robotgo"

func activeHandle(pid int) uintptr {
	return uintptr(pid)
}

func handleOf(pid int) uintptr {
	return uintptr(pid)
}

// isIconic has no portable query; callers fall back to tracked state
func isIconic(*Window) (bool, bool) {
	return false, false
}

// executablePath resolves a handle, which is a process id here
func executablePath(handle uintptr) (string, error) {
	if handle == 0 {
		return "", ErrWindowNotFound
	}
	path, err := robotgo.FindPath(int(handle))
	if err != nil || path == "" {
		return "", ErrWindowNotFound
	}
	return path, nil
}
