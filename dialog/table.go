package dialog

// Table is the dialog store for one UA instance: a plain map keyed by
// dialog ID, giving O(1) average lookup per spec.md §5 "Shared resources"
// — unlocked, since the whole UA runs on a single loop thread.
type Table struct {
	dialogs map[ID]*Dialog
}

// NewTable returns an empty dialog Table.
func NewTable() *Table {
	return &Table{dialogs: make(map[ID]*Dialog)}
}

// Put inserts or replaces d, keyed by its ID.
func (t *Table) Put(d *Dialog) {
	t.dialogs[d.ID] = d
}

// Get looks a dialog up by ID.
func (t *Table) Get(id ID) (*Dialog, bool) {
	d, ok := t.dialogs[id]
	return d, ok
}

// Delete removes a dialog from the table (called on Terminate).
func (t *Table) Delete(id ID) {
	delete(t.dialogs, id)
}

// Rekey moves a dialog from an early ID to its confirmed ID — needed when
// an early dialog's remote tag becomes fixed on the 2xx that confirms it
// (spec.md §4.G "Early-dialog handling.": "each distinct remote tag
// produces a distinct early dialog; at most one confirms").
func (t *Table) Rekey(oldID, newID ID) {
	d, ok := t.dialogs[oldID]
	if !ok {
		return
	}
	delete(t.dialogs, oldID)
	t.dialogs[newID] = d
}

// Len reports the number of live dialogs.
func (t *Table) Len() int { return len(t.dialogs) }

// All returns every live dialog, in no particular order.
func (t *Table) All() []*Dialog {
	out := make([]*Dialog, 0, len(t.dialogs))
	for _, d := range t.dialogs {
		out = append(out, d)
	}
	return out
}
