package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchSlotVerbs(t *testing.T) {
	d := NewDispatcher(5)

	tests := []struct {
		label string
		want  Action
	}{
		{"ctrl window 1", Action{Kind: WindowVerb, Slot: 1, Verb: Control}},
		{"open window 2", Action{Kind: WindowVerb, Slot: 2, Verb: Open}},
		{"close window 1", Action{Kind: WindowVerb, Slot: 1, Verb: Close}},
		{"close all windows 3", Action{Kind: WindowVerb, Slot: 3, Verb: CloseAll}},
		{"maximize window 4", Action{Kind: WindowVerb, Slot: 4, Verb: Maximize}},
		{"minimize window 5", Action{Kind: WindowVerb, Slot: 5, Verb: Minimize}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := d.Dispatch(tt.label)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchFixedLabels(t *testing.T) {
	d := NewDispatcher(5)

	tests := map[string]Action{
		LabelConfigureWindow: {Kind: ConfigureWindow},
		LabelAlwaysOnTop:     {Kind: ToggleAlwaysOnTop},
		LabelExitProgram:     {Kind: ExitProgram},
		LabelCacheWindows:    {Kind: CacheWindows},
		LabelOpenLastActive:  {Kind: ActiveWindowVerb, Verb: Open},
		LabelCloseActive:     {Kind: ActiveWindowVerb, Verb: Close},
		LabelMaximizeActive:  {Kind: ActiveWindowVerb, Verb: Maximize},
		LabelMinimizeActive:  {Kind: ActiveWindowVerb, Verb: Minimize},
	}
	for label, want := range tests {
		got, ok := d.Dispatch(label)
		require.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}
}

func TestDispatchUnknown(t *testing.T) {
	d := NewDispatcher(5)

	for _, label := range []string{"", "ctrl window 6", "ctrl window 0", "open window", "launch rockets"} {
		_, ok := d.Dispatch(label)
		assert.False(t, ok, label)
	}
}

func TestDispatcherSize(t *testing.T) {
	d := NewDispatcher(9)
	assert.Len(t, d.Labels(), 9*len(SlotVerbs)+8)
	assert.Equal(t, 9, d.SlotCount())

	a, ok := d.Dispatch("close all windows 9")
	require.True(t, ok)
	assert.Equal(t, 9, a.Slot)
}

func TestUnbound(t *testing.T) {
	d := NewDispatcher(2)
	got := d.Unbound([]string{"ctrl window 1", "ctrl window 3", "exit program", "dance"})
	assert.Equal(t, []string{"ctrl window 3", "dance"}, got)
}

func TestSlotLabel(t *testing.T) {
	assert.Equal(t, "close all windows 7", SlotLabel(CloseAll, 7))
	assert.Equal(t, "", SlotLabel(Verb("spin"), 1))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "window_verb close 1", Action{Kind: WindowVerb, Slot: 1, Verb: Close}.String())
	assert.Equal(t, "active_window_verb maximize", Action{Kind: ActiveWindowVerb, Verb: Maximize}.String())
	assert.Equal(t, "exit_program", Action{Kind: ExitProgram}.String())
}
