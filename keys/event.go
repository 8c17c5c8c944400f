package keys

// Token is the canonical, platform-independent identity of a key.
// Chord matching only ever compares tokens.
type Token string

// Well-known tokens
const (
	Unresolved Token = "unknown"
	Esc        Token = "esc"
	Enter      Token = "enter"
	Plus       Token = "+"
)

// Kind distinguishes key presses from releases
type Kind int

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// PhysicalKey identifies the physical key that produced an event (a hardware
// scan code). Presses and releases of the same key carry the same value.
type PhysicalKey uint32

// RawKeyEvent is a key event as delivered by the platform hook.
//
// Exactly one of Char, VK or Special is normally meaningful: Char carries the
// printable payload (possibly a control code when Ctrl is held), VK carries a
// virtual-key code when no character was produced, and Special names keys that
// have no character at all (arrows, enter, modifiers) or that the hook already
// resolved by position.
type RawKeyEvent struct {
	Kind    Kind
	Key     PhysicalKey
	Char    rune
	VK      uint32
	Special string
}

// IsSpecial reports whether the event is the named special key
func (e RawKeyEvent) IsSpecial(t Token) bool {
	return e.Char == 0 && Token(e.Special) == t
}
