package action

import "fmt"

// Kind identifies what an action asks the shell to do
type Kind int

const (
	ConfigureWindow Kind = iota
	ToggleAlwaysOnTop
	ExitProgram
	WindowVerb
	ActiveWindowVerb
	CacheWindows
)

func (k Kind) String() string {
	switch k {
	case ConfigureWindow:
		return "configure_window"
	case ToggleAlwaysOnTop:
		return "toggle_always_on_top"
	case ExitProgram:
		return "exit_program"
	case WindowVerb:
		return "window_verb"
	case ActiveWindowVerb:
		return "active_window_verb"
	case CacheWindows:
		return "cache_windows"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Verb is an operation on a window
type Verb string

const (
	Control  Verb = "ctrl"
	Open     Verb = "open"
	Close    Verb = "close"
	CloseAll Verb = "close_all"
	Maximize Verb = "maximize"
	Minimize Verb = "minimize"
)

// SlotVerbs lists every verb a slot chord can carry, in label order
var SlotVerbs = []Verb{Control, Open, Close, CloseAll, Maximize, Minimize}

// Action is the structured request produced for a matched chord.
// Slot is 1-based and only set for WindowVerb; Verb is set for WindowVerb
// and ActiveWindowVerb.
type Action struct {
	Kind Kind
	Slot int
	Verb Verb
}

func (a Action) String() string {
	switch a.Kind {
	case WindowVerb:
		return fmt.Sprintf("%s %s %d", a.Kind, a.Verb, a.Slot)
	case ActiveWindowVerb:
		return fmt.Sprintf("%s %s", a.Kind, a.Verb)
	default:
		return a.Kind.String()
	}
}
