//go:build !windows

package platform

// NewKeyHook creates the keyboard hook. Outside Windows the shared gohook
// loop serves keys as well as the pointer.
func NewKeyHook() KeyHook {
	return GohookKeys{}
}
