package chord

import (
	"fmt"
	"strings"

	"markestedt/winchord/keys"
)

type entry struct {
	key   keys.PhysicalKey
	token keys.Token
}

// PressedSet tracks the keys currently held down, keyed by the physical key
// that produced each token. Insertion order is kept for stable debug output.
// A PressedSet is not safe for concurrent use; the listener loop owns it.
type PressedSet struct {
	entries []entry
}

// Press records a held key. Key-repeat presses of a key that is already held
// are ignored, as is Escape. Reports whether the set changed.
func (s *PressedSet) Press(key keys.PhysicalKey, token keys.Token) bool {
	if token == keys.Esc || s.Has(key) {
		return false
	}
	s.entries = append(s.entries, entry{key: key, token: token})
	return true
}

// Release forgets a held key. Reports whether the key was held.
func (s *PressedSet) Release(key keys.PhysicalKey) bool {
	for i, e := range s.entries {
		if e.key == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether key is currently held
func (s *PressedSet) Has(key keys.PhysicalKey) bool {
	for _, e := range s.entries {
		if e.key == key {
			return true
		}
	}
	return false
}

// Values returns the held tokens in the order they were pressed
func (s *PressedSet) Values() []keys.Token {
	values := make([]keys.Token, len(s.entries))
	for i, e := range s.entries {
		values[i] = e.token
	}
	return values
}

// Len returns the number of held keys
func (s *PressedSet) Len() int {
	return len(s.entries)
}

// Clear forgets every held key
func (s *PressedSet) Clear() {
	s.entries = s.entries[:0]
}

func (s *PressedSet) String() string {
	parts := make([]string, len(s.entries))
	for i, e := range s.entries {
		parts[i] = fmt.Sprintf("%d:%s", e.key, e.token)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
