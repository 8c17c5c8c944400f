package keys

// PointerAction distinguishes pointer moves from button presses
type PointerAction int

const (
	PointerMove PointerAction = iota
	PointerDown
	PointerUp
)

// Pointer buttons
const (
	ButtonNone = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// RawPointerEvent is a mouse event as delivered by the platform hook
type RawPointerEvent struct {
	Action PointerAction
	Button int
	X, Y   int
}
