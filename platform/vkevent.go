package platform

import "markestedt/winchord/keys"

// specialVK names the keys that have no character
var specialVK = map[uint32]string{
	0x08: keys.NameBackspace,
	0x09: keys.NameTab,
	0x0D: keys.NameEnter,
	0x14: keys.NameCapsLock,
	0x1B: keys.NameEsc,
	0x20: keys.NameSpace,
	0x21: keys.NamePageUp,
	0x22: keys.NamePageDown,
	0x23: keys.NameEnd,
	0x24: keys.NameHome,
	0x25: keys.NameLeft,
	0x26: keys.NameUp,
	0x27: keys.NameRight,
	0x28: keys.NameDown,
	0x2D: keys.NameInsert,
	0x2E: keys.NameDelete,
	0x5B: keys.NameCmd,
	0x5C: keys.NameCmdR,
	0xA0: keys.NameShift,
	0xA1: keys.NameShiftR,
	0xA2: keys.NameCtrl,
	0xA3: keys.NameCtrlR,
	0xA4: keys.NameAlt,
	0xA5: keys.NameAltR,
}

// vkEvent builds the event for a Windows virtual key. ch is the character
// the key typed with the modifiers held, or 0 when it typed nothing; NUL
// (Ctrl+Shift+2) counts as nothing so the key is named by its virtual code.
func vkEvent(kind keys.Kind, key keys.PhysicalKey, vk uint32, ch rune) keys.RawKeyEvent {
	ev := keys.RawKeyEvent{Kind: kind, Key: key}
	switch name, ok := specialVK[vk]; {
	case ok:
		ev.Special = name
	case ch != 0:
		ev.Char = ch
	default:
		ev.VK = vk
	}
	return ev
}
