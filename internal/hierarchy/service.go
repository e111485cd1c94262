package hierarchy

import (
	"context"
	"fmt"
)

// OpKind is a protocol-level hierarchy change operation, mirroring the four
// XIChangeHierarchy request shapes.
type OpKind int

const (
	OpAttachSlave OpKind = iota
	OpDetachSlave
	OpAddMaster
	OpRemoveMaster
)

func (k OpKind) String() string {
	switch k {
	case OpAttachSlave:
		return "attach-slave"
	case OpDetachSlave:
		return "detach-slave"
	case OpAddMaster:
		return "add-master"
	case OpRemoveMaster:
		return "remove-master"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// ChangeOp is one protocol-level hierarchy change. Which fields matter
// depends on Kind:
//
//	OpAttachSlave   DeviceID, MasterID
//	OpDetachSlave   DeviceID
//	OpAddMaster     Name
//	OpRemoveMaster  DeviceID, ReturnPointer, ReturnKeyboard
//
// For OpRemoveMaster, ReturnPointer/ReturnKeyboard name the masters the
// removed master's slaves are handed to; zero for both means the slaves are
// set floating instead.
type ChangeOp struct {
	Kind           OpKind
	DeviceID       int
	MasterID       int
	Name           string
	ReturnPointer  int
	ReturnKeyboard int
}

func (op ChangeOp) String() string {
	switch op.Kind {
	case OpAttachSlave:
		return fmt.Sprintf("attach-slave %d->%d", op.DeviceID, op.MasterID)
	case OpDetachSlave:
		return fmt.Sprintf("detach-slave %d", op.DeviceID)
	case OpAddMaster:
		return fmt.Sprintf("add-master %q", op.Name)
	case OpRemoveMaster:
		return fmt.Sprintf("remove-master %d", op.DeviceID)
	default:
		return op.Kind.String()
	}
}

// ProtocolError reports a single hierarchy change the server rejected.
// Index locates the op within the submitted batch.
type ProtocolError struct {
	Index int
	Op    ChangeOp
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server rejected %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Service is the display hierarchy service: the one external collaborator
// the engine talks to. Implementations live in internal/xserver.
type Service interface {
	// Devices returns the flat list of all input devices the server
	// currently knows, in server order. Fails with a wrapped
	// ErrServiceUnavailable when the connection is unusable.
	Devices(ctx context.Context) ([]Device, error)

	// ChangeHierarchy submits hierarchy changes. Batching implementations
	// apply all ops as one request and fail as one unit; sequential
	// implementations stop at the first rejected op and return a
	// *ProtocolError carrying its index.
	ChangeHierarchy(ctx context.Context, ops []ChangeOp) error

	// SupportsBatch reports whether ChangeHierarchy applies multiple ops
	// atomically.
	SupportsBatch() bool

	Close() error
}
