//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"markestedt/winchord/keys"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	getKeyState         = user32.NewProc("GetKeyState")
	toUnicode           = user32.NewProc("ToUnicode")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmKeyup      = 0x0101
	wmSyskeydown = 0x0104
	wmSyskeyup   = 0x0105
	wmQuit       = 0x0012

	llkhfExtended = 0x01
	// leave the keyboard state untouched so dead keys keep working
	toUnicodeNoStateChange = 0x4
)

const (
	vkShift   = 0x10
	vkCtrl    = 0x11
	vkAlt     = 0x12
	vkCapital = 0x14
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// WindowsKeyHook reports every key event from a low-level keyboard hook
type WindowsKeyHook struct {
	mu       sync.Mutex
	events   chan keys.RawKeyEvent
	hook     uintptr
	threadID uint32
}

// NewKeyHook creates a new Windows keyboard hook
func NewKeyHook() KeyHook {
	return &WindowsKeyHook{}
}

// Listen installs the hook; events stop and the channel closes when ctx ends
func (h *WindowsKeyHook) Listen(ctx context.Context) (<-chan keys.RawKeyEvent, error) {
	h.mu.Lock()
	h.events = make(chan keys.RawKeyEvent, 64)
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go h.runHook(errCh)

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		tid := h.threadID
		h.mu.Unlock()
		postThreadMessage.Call(uintptr(tid), wmQuit, 0, 0)
	}()

	return h.events, nil
}

func (h *WindowsKeyHook) runHook(errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hookProc := func(nCode int32, wParam uintptr, lParam uintptr) uintptr {
		if nCode >= 0 {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			h.handleKeyEvent(wParam, kbInfo)
		}
		r, _, _ := callNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		return r
	}

	hook, _, err := setWindowsHookEx.Call(
		whKeyboardLL,
		windows.NewCallback(hookProc),
		0,
		0,
	)
	if hook == 0 {
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}

	h.mu.Lock()
	h.hook = hook
	h.threadID = windows.GetCurrentThreadId()
	h.mu.Unlock()

	errCh <- nil

	// GetMessage returns 0 on WM_QUIT and -1 on error
	var m msg
	for {
		r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
	}

	unhookWindowsHookEx.Call(hook)
	close(h.events)
}

func (h *WindowsKeyHook) handleKeyEvent(wParam uintptr, kbInfo *kbdllhookstruct) {
	var kind keys.Kind
	switch wParam {
	case wmKeydown, wmSyskeydown:
		kind = keys.Press
	case wmKeyup, wmSyskeyup:
		kind = keys.Release
	default:
		return
	}

	physical := kbInfo.scanCode
	if kbInfo.flags&llkhfExtended != 0 {
		physical |= 0xE000
	}
	var ch rune
	if _, special := specialVK[kbInfo.vkCode]; !special {
		ch = translateChar(kbInfo.vkCode, kbInfo.scanCode)
	}
	ev := vkEvent(kind, keys.PhysicalKey(physical), kbInfo.vkCode, ch)

	// the hook callback must return quickly
	select {
	case h.events <- ev:
	default:
	}
}

// translateChar converts a key to the character it types with the current
// modifiers, or 0 when it types nothing. Ctrl+letter yields a control code,
// Ctrl+Shift+2 yields NUL.
func translateChar(vk, scan uint32) rune {
	var state [256]byte
	for _, mod := range []uintptr{vkShift, vkCtrl, vkAlt} {
		if isKeyDown(mod) {
			state[mod] = 0x80
		}
	}
	if r, _, _ := getKeyState.Call(vkCapital); r&1 != 0 {
		state[vkCapital] = 0x01
	}

	var buf [4]uint16
	n, _, _ := toUnicode.Call(
		uintptr(vk),
		uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		toUnicodeNoStateChange,
	)
	if int32(n) != 1 {
		return 0
	}
	return rune(buf[0])
}

func isKeyDown(vk uintptr) bool {
	r, _, _ := getAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}
