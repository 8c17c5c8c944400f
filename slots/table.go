package slots

import (
	"markestedt/winchord/platform"
	"markestedt/winchord/storage"
)

// Slot binds a chord-addressable index to a window. Every field is optional:
// a restored slot knows its program but has no live window yet.
type Slot struct {
	Window  *platform.Window
	Title   string
	Handle  uintptr
	ExePath string
}

// Empty reports whether nothing is bound to the slot
func (s Slot) Empty() bool {
	return s.Window == nil && s.Title == "" && s.Handle == 0 && s.ExePath == ""
}

// Live reports whether the slot holds a window object
func (s Slot) Live() bool {
	return s.Window != nil
}

// Clear resets every field
func (s *Slot) Clear() {
	*s = Slot{}
}

// dropWindow forgets the live window but keeps what is needed to reopen it
func (s *Slot) dropWindow() {
	s.Window = nil
	s.Handle = 0
}

// Table is a fixed-size array of slots addressed 1..Len
type Table struct {
	slots []Slot
}

// NewTable creates n empty slots
func NewTable(n int) *Table {
	return &Table{slots: make([]Slot, n)}
}

// Len returns the number of slots
func (t *Table) Len() int {
	return len(t.slots)
}

// Valid reports whether index addresses a slot
func (t *Table) Valid(index int) bool {
	return index >= 1 && index <= len(t.slots)
}

// At returns the slot at a 1-based index, or nil when out of range
func (t *Table) At(index int) *Slot {
	if !t.Valid(index) {
		return nil
	}
	return &t.slots[index-1]
}

// Copy returns a detached copy of all slots
func (t *Table) Copy() []Slot {
	out := make([]Slot, len(t.slots))
	copy(out, t.slots)
	for i := range out {
		if out[i].Window != nil {
			w := *out[i].Window
			out[i].Window = &w
		}
	}
	return out
}

// Records returns the persistable form of the non-empty slots
func (t *Table) Records() []storage.SlotRecord {
	var records []storage.SlotRecord
	for i, s := range t.slots {
		if s.Empty() {
			continue
		}
		records = append(records, storage.SlotRecord{
			Index:   i + 1,
			Title:   s.Title,
			ExePath: s.ExePath,
			Handle:  int64(s.Handle),
		})
	}
	return records
}

// Restore fills slots from stored records. Records outside the table are
// ignored and no live windows are attached. Reports how many were restored.
func (t *Table) Restore(records []storage.SlotRecord) int {
	n := 0
	for _, r := range records {
		s := t.At(r.Index)
		if s == nil {
			continue
		}
		*s = Slot{Title: r.Title, ExePath: r.ExePath, Handle: uintptr(r.Handle)}
		n++
	}
	return n
}
