// Package hierarchy implements the input device hierarchy engine: the
// generation-stamped device tree, the reconciler that keeps it in sync with
// the X server, the pending-edit buffer and the mutator that pushes staged
// edits back to the server.
package hierarchy

import "fmt"

// Role classifies a device within the hierarchy.
type Role int

const (
	MasterPointer Role = iota
	MasterKeyboard
	SlavePointer
	SlaveKeyboard
	FloatingSlave
)

// Reserved device ids. The X server creates the virtual core pointer and
// keyboard at startup; they can never be removed.
const (
	CorePointerID  = 2
	CoreKeyboardID = 3
)

// FloatingID identifies the synthetic bucket node that collects floating
// slaves. It is not a real device id; the server never hands it out.
const FloatingID = -1

// FloatingName is the display name of the synthetic floating bucket.
const FloatingName = "Floating"

// IsMaster reports whether the role is a master role.
func (r Role) IsMaster() bool {
	return r == MasterPointer || r == MasterKeyboard
}

// IsPointer reports whether the role belongs to the pointer class.
// Floating slaves belong to neither class: they may reattach to any master.
func (r Role) IsPointer() bool {
	return r == MasterPointer || r == SlavePointer
}

// IsKeyboard reports whether the role belongs to the keyboard class.
func (r Role) IsKeyboard() bool {
	return r == MasterKeyboard || r == SlaveKeyboard
}

func (r Role) String() string {
	switch r {
	case MasterPointer:
		return "master pointer"
	case MasterKeyboard:
		return "master keyboard"
	case SlavePointer:
		return "slave pointer"
	case SlaveKeyboard:
		return "slave keyboard"
	case FloatingSlave:
		return "floating slave"
	default:
		return fmt.Sprintf("unknown role (%d)", int(r))
	}
}

// Device is one entry of the flat list reported by the display server.
// Attachment is the owning master id for attached slaves, the paired master
// id for masters, and meaningless for floating slaves.
type Device struct {
	ID         int
	Name       string
	Role       Role
	Attachment int
}

// Reserved reports whether id is one of the server's default master devices.
func Reserved(id int) bool {
	return id == CorePointerID || id == CoreKeyboardID
}
