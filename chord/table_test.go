package chord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/winchord/keys"
)

func tokens(ss ...string) []keys.Token {
	out := make([]keys.Token, len(ss))
	for i, s := range ss {
		out[i] = keys.Token(s)
	}
	return out
}

func mustTable(t *testing.T, defs ...Definition) *Table {
	t.Helper()
	table, err := ParseTable(defs)
	require.NoError(t, err)
	return table
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		name string
		combo string
		want []keys.Token
	}{
		{name: "simple", combo: "ctrl+shift+1", want: tokens("ctrl", "shift", "1")},
		{name: "plus word", combo: "ctrl+shift+1+plus", want: tokens("ctrl", "shift", "1", "+")},
		{name: "minus key", combo: "ctrl+shift+1+-", want: tokens("ctrl", "shift", "1", "-")},
		{name: "aliases", combo: "Ctrl_L + Shift + Return", want: tokens("ctrl", "shift", "enter")},
		{name: "quote key", combo: "ctrl+shift+'", want: tokens("ctrl", "shift", "'")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeys(tt.combo)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeysErrors(t *testing.T) {
	for _, combo := range []string{"", "   ", "ctrl++1", "ctrl+", "+a"} {
		_, err := ParseKeys(combo)
		assert.Error(t, err, "combo %q", combo)
	}
}

func TestParseTableErrors(t *testing.T) {
	_, err := ParseTable([]Definition{{Label: "", Keys: "ctrl+a"}})
	assert.ErrorContains(t, err, "empty label")

	_, err = ParseTable([]Definition{
		{Label: "open window 1", Keys: "ctrl+a"},
		{Label: "Open Window 1", Keys: "ctrl+b"},
	})
	assert.ErrorContains(t, err, "defined twice")

	_, err = ParseTable([]Definition{{Label: "broken", Keys: "ctrl++"}})
	assert.ErrorContains(t, err, "broken")
}

func TestMatchExact(t *testing.T) {
	table := mustTable(t,
		Definition{Label: "ctrl window 1", Keys: "ctrl+shift+1"},
		Definition{Label: "maximize window 1", Keys: "ctrl+shift+1+plus"},
		Definition{Label: "close window 1", Keys: "ctrl+shift+1+backspace"},
	)

	c, ok := table.Match(tokens("ctrl", "shift", "1"))
	require.True(t, ok)
	assert.Equal(t, "ctrl window 1", c.Name)

	c, ok = table.Match(tokens("ctrl", "shift", "1", "+"))
	require.True(t, ok)
	assert.Equal(t, "maximize window 1", c.Name)
	assert.Equal(t, "ctrl+shift+1++", c.String())

	c, ok = table.Match(tokens("ctrl", "shift", "1", "backspace"))
	require.True(t, ok)
	assert.Equal(t, "close window 1", c.Name)
}

func TestMatchNeverPartial(t *testing.T) {
	table := mustTable(t,
		Definition{Label: "maximize window 1", Keys: "ctrl+shift+1+plus"},
	)

	for _, held := range [][]keys.Token{
		tokens("ctrl", "shift", "1"),
		tokens("ctrl", "shift"),
		tokens("ctrl", "shift", "1", "+", "a"),
		nil,
	} {
		_, ok := table.Match(held)
		assert.False(t, ok, "held %v", held)
	}
}

func TestMatchIgnoresPressOrder(t *testing.T) {
	table := mustTable(t, Definition{Label: "close window 1", Keys: "ctrl+shift+1+backspace"})

	c, ok := table.Match(tokens("backspace", "1", "shift", "ctrl"))
	require.True(t, ok)
	assert.Equal(t, "close window 1", c.Name)

	_, ok = table.Match(tokens("ctrl", "ctrl", "1", "backspace"))
	assert.False(t, ok)
}

func TestMatchFirstDeclaredWins(t *testing.T) {
	table := mustTable(t,
		Definition{Label: "first", Keys: "ctrl+shift+q"},
		Definition{Label: "second", Keys: "ctrl+shift+q"},
		Definition{Label: "third", Keys: "shift+ctrl+q"},
	)

	for i := 0; i < 5; i++ {
		c, ok := table.Match(tokens("ctrl", "shift", "q"))
		require.True(t, ok)
		assert.Equal(t, "first", c.Name)
	}
	assert.Equal(t, map[string]string{"second": "first", "third": "first"}, table.Shadowed())
}

func TestUnresolvedNeverMatchesRealChord(t *testing.T) {
	table := mustTable(t, Definition{Label: "ctrl window 1", Keys: "ctrl+shift+1"})
	_, ok := table.Match(tokens("ctrl", "shift", string(keys.Unresolved)))
	assert.False(t, ok)
}

func TestChordsReturnsCopy(t *testing.T) {
	table := mustTable(t, Definition{Label: "a", Keys: "ctrl+a"})
	chords := table.Chords()
	chords[0].Name = "changed"
	assert.Equal(t, "a", table.Chords()[0].Name)
	assert.Equal(t, 1, table.Len())
}
