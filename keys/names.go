package keys

import "strings"

// Names of the special keys a platform hook reports through RawKeyEvent.Special
const (
	NameEnter     = "enter"
	NameEsc       = "esc"
	NameBackspace = "backspace"
	NameDelete    = "delete"
	NameTab       = "tab"
	NameSpace     = "space"
	NameUp        = "up"
	NameDown      = "down"
	NameLeft      = "left"
	NameRight     = "right"
	NameHome      = "home"
	NameEnd       = "end"
	NamePageUp    = "page_up"
	NamePageDown  = "page_down"
	NameInsert    = "insert"
	NameCapsLock  = "caps_lock"
	NameShift     = "shift"
	NameShiftR    = "shift_r"
	NameCtrl      = "ctrl"
	NameCtrlR     = "ctrl_r"
	NameAlt       = "alt"
	NameAltR      = "alt_r"
	NameCmd       = "cmd"
	NameCmdR      = "cmd_r"
)

// aliases accepted in chord definitions
var aliases = map[string]Token{
	"ctrl_l":    NameCtrl,
	"control":   NameCtrl,
	"control_l": NameCtrl,
	"control_r": NameCtrlR,
	"shift_l":   NameShift,
	"alt_l":     NameAlt,
	"alt_gr":    NameAltR,
	"cmd_l":     NameCmd,
	"win":       NameCmd,
	"super":     NameCmd,
	"escape":    NameEsc,
	"return":    NameEnter,
	"del":       NameDelete,
	"pgup":      NamePageUp,
	"pgdn":      NamePageDown,
}

// Canonical converts a key name written by a user into its token.
// The word "plus" stands for the "+" key because "+" separates chord keys.
func Canonical(name string) Token {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "plus" {
		return Plus
	}
	if t, ok := aliases[name]; ok {
		return t
	}
	return Token(name)
}
