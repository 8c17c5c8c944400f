package chord

import (
	"fmt"
	"strings"

	"markestedt/winchord/keys"
)

// Definition is a chord as written in the configuration: a label and a
// "+"-delimited key list such as "ctrl+shift+1+plus".
type Definition struct {
	Label string
	Keys  string
}

// Chord is a named set of tokens that must be held together
type Chord struct {
	Name   string
	Tokens []keys.Token
}

func (c Chord) String() string {
	parts := make([]string, len(c.Tokens))
	for i, t := range c.Tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, "+")
}

// Table holds chords in declaration order. Declaration order is the
// tie-break: when two chords hold the same keys only the first can fire.
type Table struct {
	chords []Chord
}

// ParseTable builds a table from configuration definitions
func ParseTable(defs []Definition) (*Table, error) {
	t := &Table{chords: make([]Chord, 0, len(defs))}
	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		name := strings.ToLower(strings.TrimSpace(def.Label))
		if name == "" {
			return nil, fmt.Errorf("chord %q has an empty label", def.Keys)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("chord label %q is defined twice", name)
		}
		seen[name] = struct{}{}

		tokens, err := ParseKeys(def.Keys)
		if err != nil {
			return nil, fmt.Errorf("chord %q: %w", name, err)
		}
		t.chords = append(t.chords, Chord{Name: name, Tokens: tokens})
	}

	return t, nil
}

// ParseKeys splits a "+"-delimited key list into tokens
func ParseKeys(combo string) ([]keys.Token, error) {
	raw := strings.TrimSpace(combo)
	if raw == "" {
		return nil, fmt.Errorf("empty key list")
	}

	parts := strings.Split(raw, "+")
	tokens := make([]keys.Token, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("empty key in %q (write \"plus\" for the + key)", raw)
		}
		tokens = append(tokens, keys.Canonical(part))
	}
	return tokens, nil
}

// Match returns the first chord, in declaration order, whose tokens are
// exactly the held tokens. Press order does not matter; no prefix or subset
// matching is performed.
func (t *Table) Match(held []keys.Token) (Chord, bool) {
	for _, c := range t.chords {
		if sameTokens(c.Tokens, held) {
			return c, true
		}
	}
	return Chord{}, false
}

// Chords returns the chords in declaration order
func (t *Table) Chords() []Chord {
	out := make([]Chord, len(t.chords))
	copy(out, t.chords)
	return out
}

// Len returns the number of chords
func (t *Table) Len() int {
	return len(t.chords)
}

// Shadowed returns the names of chords that can never fire because an
// earlier chord holds the same keys, mapped to the name that wins.
func (t *Table) Shadowed() map[string]string {
	shadowed := make(map[string]string)
	for i, c := range t.chords {
		for _, earlier := range t.chords[:i] {
			if sameTokens(earlier.Tokens, c.Tokens) {
				shadowed[c.Name] = earlier.Name
				break
			}
		}
	}
	return shadowed
}

func sameTokens(a, b []keys.Token) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[keys.Token]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		if counts[t] == 0 {
			return false
		}
		counts[t]--
	}
	return true
}
