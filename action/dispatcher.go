package action

import (
	"fmt"
	"sort"
)

// Chord labels that do not address a slot
const (
	LabelConfigureWindow = "configure window"
	LabelAlwaysOnTop     = "toggle always on top"
	LabelExitProgram     = "exit program"
	LabelCacheWindows    = "cache windows data"
	LabelOpenLastActive  = "open last active window"
	LabelCloseActive     = "close active window"
	LabelMaximizeActive  = "maximize active window"
	LabelMinimizeActive  = "minimize active window"
)

var slotLabelFormats = map[Verb]string{
	Control:  "ctrl window %d",
	Open:     "open window %d",
	Close:    "close window %d",
	CloseAll: "close all windows %d",
	Maximize: "maximize window %d",
	Minimize: "minimize window %d",
}

// Dispatcher maps chord labels to actions. The mapping is static and built
// once; it is safe for concurrent reads.
type Dispatcher struct {
	actions   map[string]Action
	slotCount int
}

// NewDispatcher builds the label table for slots 1..slotCount
func NewDispatcher(slotCount int) *Dispatcher {
	d := &Dispatcher{
		actions:   make(map[string]Action, slotCount*len(SlotVerbs)+8),
		slotCount: slotCount,
	}

	for slot := 1; slot <= slotCount; slot++ {
		for _, verb := range SlotVerbs {
			d.actions[SlotLabel(verb, slot)] = Action{Kind: WindowVerb, Slot: slot, Verb: verb}
		}
	}

	d.actions[LabelConfigureWindow] = Action{Kind: ConfigureWindow}
	d.actions[LabelAlwaysOnTop] = Action{Kind: ToggleAlwaysOnTop}
	d.actions[LabelExitProgram] = Action{Kind: ExitProgram}
	d.actions[LabelCacheWindows] = Action{Kind: CacheWindows}
	d.actions[LabelOpenLastActive] = Action{Kind: ActiveWindowVerb, Verb: Open}
	d.actions[LabelCloseActive] = Action{Kind: ActiveWindowVerb, Verb: Close}
	d.actions[LabelMaximizeActive] = Action{Kind: ActiveWindowVerb, Verb: Maximize}
	d.actions[LabelMinimizeActive] = Action{Kind: ActiveWindowVerb, Verb: Minimize}

	return d
}

// SlotLabel returns the chord label for a verb on a slot, e.g. "close window 3"
func SlotLabel(verb Verb, slot int) string {
	format, ok := slotLabelFormats[verb]
	if !ok {
		return ""
	}
	return fmt.Sprintf(format, slot)
}

// Dispatch returns the action bound to a chord label
func (d *Dispatcher) Dispatch(label string) (Action, bool) {
	a, ok := d.actions[label]
	return a, ok
}

// SlotCount returns the number of slots the table was generated for
func (d *Dispatcher) SlotCount() int {
	return d.slotCount
}

// Labels returns every known label, sorted
func (d *Dispatcher) Labels() []string {
	labels := make([]string, 0, len(d.actions))
	for label := range d.actions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Unbound returns the labels in names that have no action
func (d *Dispatcher) Unbound(names []string) []string {
	var unbound []string
	for _, name := range names {
		if _, ok := d.actions[name]; !ok {
			unbound = append(unbound, name)
		}
	}
	return unbound
}
