package keys

import (
	"strings"
	"unicode"
)

const ctrlLetterPool = "abcdefghijklmnopqrstuvwxyz"

// shiftedSymbols recovers the unshifted key from the symbol a US layout
// produces with Shift held.
var shiftedSymbols = map[rune]Token{
	'!': "1",
	'@': "2",
	'#': "3",
	'$': "4",
	'%': "5",
	'^': "6",
	'&': "7",
	'*': "8",
	'(': "9",
	')': "0",
	'<': ",",
	'>': ".",
	'?': "/",
	':': ";",
	'"': "'",
	'{': "[",
	'}': "]",
	'|': "\\",
	'_': "-",
	'+': "=",
	'~': "`",
}

// platformOutcasts maps the character a bare virtual-key code converts to
// onto the symbol the key actually carries (Windows OEM keys).
var platformOutcasts = map[rune]Token{
	'Þ': "'",
	'Ü': "|",
	'¿': "?",
	'¾': ">",
	'¼': "<",
	'Ý': "}",
	'Û': "{",
	'º': ":",
	'»': "+",
}

// controlOutcasts covers control codes outside the Ctrl+letter range that
// Ctrl+Shift combinations produce.
var controlOutcasts = map[rune]Token{
	0x1e: "6",
	0x1f: "-",
}

// Normalize maps a raw key event to its canonical token. It never fails:
// anything it cannot interpret becomes Unresolved.
func Normalize(ev RawKeyEvent) Token {
	switch {
	case isCtrlCode(ev.Char):
		return ctrlLetter(ev.Char)
	case ev.Char != 0 && unicode.IsPrint(ev.Char):
		r := unicode.ToLower(ev.Char)
		if isAlnum(r) {
			return Token(string(r))
		}
		if t, ok := shiftedSymbols[r]; ok {
			return t
		}
		return Unresolved
	case ev.Char != 0:
		if t, ok := controlOutcasts[ev.Char]; ok {
			return t
		}
		return fallback(ev)
	}
	return fallback(ev)
}

// Literal maps a raw key event to the token of the character it literally
// produced, without recovering the unshifted key from shifted symbols.
// Shift+8 stays "*" here while Normalize reports "8".
func Literal(ev RawKeyEvent) Token {
	switch {
	case isCtrlCode(ev.Char):
		return ctrlLetter(ev.Char)
	case ev.Char != 0 && unicode.IsPrint(ev.Char):
		return Token(string(unicode.ToLower(ev.Char)))
	}
	return fallback(ev)
}

// fallback handles events without a usable character payload
func fallback(ev RawKeyEvent) Token {
	if ev.VK != 0 {
		return fromVK(ev.VK)
	}
	if ev.Special != "" {
		return Token(strings.ToLower(ev.Special))
	}
	return Unresolved
}

func fromVK(vk uint32) Token {
	r := rune(vk)
	if t, ok := platformOutcasts[r]; ok {
		return t
	}
	if !unicode.IsPrint(r) || unicode.IsSpace(r) {
		return Unresolved
	}
	return Token(string(unicode.ToLower(r)))
}

func isCtrlCode(r rune) bool {
	return r > 0 && r <= 26
}

func ctrlLetter(r rune) Token {
	return Token(ctrlLetterPool[r-1 : r])
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
