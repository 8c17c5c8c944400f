package listener

import (
	"time"

	"markestedt/winchord/action"
	"markestedt/winchord/keys"
)

// Kind identifies a notification published by the listener
type Kind int

const (
	KeyToken Kind = iota
	ChordDetected
	ActionRequested
	Confirmed
	NumberChosen
	ShutdownRequested
	// Declined reports a non-Enter key pressed while waiting for confirmation
	Declined
)

func (k Kind) String() string {
	switch k {
	case KeyToken:
		return "key_token"
	case ChordDetected:
		return "chord_detected"
	case ActionRequested:
		return "action_requested"
	case Confirmed:
		return "confirmed"
	case NumberChosen:
		return "number_chosen"
	case ShutdownRequested:
		return "shutdown_requested"
	case Declined:
		return "declined"
	default:
		return "unknown"
	}
}

// InvalidSlot is reported by NumberChosen when the key was not a number
const InvalidSlot = 99

// Notification is an immutable message from the listener to the shell.
// Only the fields relevant to Kind are set.
type Notification struct {
	Kind   Kind
	Token  keys.Token
	Chord  string
	Tokens []keys.Token
	Action action.Action
	Number int
	At     time.Time
}

// Mode selects how the listener interprets key presses
type Mode int

const (
	// ModeChord collects held keys and matches chords on release
	ModeChord Mode = iota
	// ModeConfirm waits for Enter to confirm a pending decision
	ModeConfirm
	// ModeSlotNumber waits for a single number key naming a slot
	ModeSlotNumber
)

func (m Mode) String() string {
	switch m {
	case ModeChord:
		return "chord"
	case ModeConfirm:
		return "confirm"
	case ModeSlotNumber:
		return "slot_number"
	default:
		return "unknown"
	}
}
