package hierarchy

import "fmt"

// Edit is one staged hierarchy change. The variant set is closed: Reattach,
// Float, CreateMaster and RemoveMaster are the only implementations, matching
// the four operations the hierarchy-change protocol knows.
type Edit interface {
	fmt.Stringer

	// sealed prevents implementations outside this package.
	sealed()
}

// Reattach moves a slave device under a different master, or under the
// floating bucket when NewMasterID is FloatingID.
type Reattach struct {
	DeviceID    int
	NewMasterID int
}

// Float detaches a slave device from its master.
type Float struct {
	DeviceID int
}

// CreateMaster creates a new master pointer/keyboard pair with the given
// display name.
type CreateMaster struct {
	Name string
}

// RemoveMaster deletes a master pair. What happens to its slaves is the
// removal policy's call, not the edit's.
type RemoveMaster struct {
	DeviceID int
}

func (Reattach) sealed()     {}
func (Float) sealed()        {}
func (CreateMaster) sealed() {}
func (RemoveMaster) sealed() {}

func (e Reattach) String() string {
	if e.NewMasterID == FloatingID {
		return fmt.Sprintf("reattach %d to floating", e.DeviceID)
	}
	return fmt.Sprintf("reattach %d to %d", e.DeviceID, e.NewMasterID)
}

func (e Float) String() string {
	return fmt.Sprintf("float %d", e.DeviceID)
}

func (e CreateMaster) String() string {
	return fmt.Sprintf("create master %q", e.Name)
}

func (e RemoveMaster) String() string {
	return fmt.Sprintf("remove master %d", e.DeviceID)
}

// Buffer accumulates staged edits in the order the user requested them.
// Edits are consumed exactly once, by Drain, either to apply them or to
// throw them away. Validation beyond structural well-formedness happens at
// apply time; the live hierarchy may have changed since staging.
type Buffer struct {
	edits []Edit
}

// Enqueue appends an edit. It rejects only structural nonsense: ids and
// names an edit cannot function without.
func (b *Buffer) Enqueue(edit Edit) error {
	switch e := edit.(type) {
	case Reattach:
		if e.DeviceID <= 0 {
			return &ValidationError{Edit: edit, Reason: "missing device id"}
		}
		if e.NewMasterID <= 0 && e.NewMasterID != FloatingID {
			return &ValidationError{Edit: edit, Reason: "missing target master id"}
		}
	case Float:
		if e.DeviceID <= 0 {
			return &ValidationError{Edit: edit, Reason: "missing device id"}
		}
	case CreateMaster:
		if e.Name == "" {
			return &ValidationError{Edit: edit, Reason: "empty master name"}
		}
	case RemoveMaster:
		if e.DeviceID <= 0 {
			return &ValidationError{Edit: edit, Reason: "missing device id"}
		}
	}
	b.edits = append(b.edits, edit)
	return nil
}

// Drain returns all staged edits in enqueue order and empties the buffer.
func (b *Buffer) Drain() []Edit {
	edits := b.edits
	b.edits = nil
	return edits
}

// Len returns the number of staged edits.
func (b *Buffer) Len() int {
	return len(b.edits)
}

// IsEmpty reports whether nothing is staged.
func (b *Buffer) IsEmpty() bool {
	return len(b.edits) == 0
}

// Edits returns the staged edits without consuming them, for display.
func (b *Buffer) Edits() []Edit {
	return b.edits
}
