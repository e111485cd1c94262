package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/devtreehq/devtree/internal/logger"
)

// RemovalPolicy decides what happens to a removed master's slaves.
type RemovalPolicy int

const (
	// ReturnToCore hands the slaves to the server's default pointer and
	// keyboard masters.
	ReturnToCore RemovalPolicy = iota
	// SetFloating detaches the slaves instead.
	SetFloating
)

func (p RemovalPolicy) String() string {
	if p == SetFloating {
		return "float"
	}
	return "reattach"
}

// ParseRemovalPolicy maps the config strings to a policy. Unknown values
// fall back to ReturnToCore.
func ParseRemovalPolicy(s string) RemovalPolicy {
	if s == "float" {
		return SetFloating
	}
	return ReturnToCore
}

// Mutator validates edits against the current tree and pushes them to the
// display hierarchy service. The underlying protocol performs no role
// validation of its own and would silently build a nonsensical hierarchy, so
// every check here runs before any server call.
type Mutator struct {
	svc    Service
	policy RemovalPolicy
}

// NewMutator returns a mutator issuing changes through svc.
func NewMutator(svc Service, policy RemovalPolicy) *Mutator {
	return &Mutator{svc: svc, policy: policy}
}

// ApplyOne validates a single edit against tree and submits it. The caller
// must reconcile afterwards; the tree is not touched here.
func (m *Mutator) ApplyOne(ctx context.Context, tree *Tree, edit Edit) error {
	if err := m.validate(tree, edit); err != nil {
		return err
	}
	op := m.translate(edit)
	logger.Debugf("applying %s", op)
	return m.svc.ChangeHierarchy(ctx, []ChangeOp{op})
}

// ApplyBatch validates every edit up front, then submits them all. With a
// batching service the edits go out as one request and fail as one unit;
// otherwise they are issued in order and a rejection partway through leaves
// the earlier edits applied. The returned count is the number of edits the
// server confirmed; on error it arrives wrapped in a *BatchError unless
// validation failed, in which case nothing was sent at all.
func (m *Mutator) ApplyBatch(ctx context.Context, tree *Tree, edits []Edit) (int, error) {
	if len(edits) == 0 {
		return 0, nil
	}
	for _, edit := range edits {
		if err := m.validate(tree, edit); err != nil {
			return 0, err
		}
	}

	if m.svc.SupportsBatch() {
		ops := make([]ChangeOp, len(edits))
		for i, edit := range edits {
			ops[i] = m.translate(edit)
		}
		if err := m.svc.ChangeHierarchy(ctx, ops); err != nil {
			return 0, &BatchError{Applied: 0, Failed: failedEdit(edits, err), Cause: err}
		}
		return len(edits), nil
	}

	for i, edit := range edits {
		if err := m.svc.ChangeHierarchy(ctx, []ChangeOp{m.translate(edit)}); err != nil {
			logger.Warnf("batch stopped after %d of %d edits: %v", i, len(edits), err)
			return i, &BatchError{Applied: i, Failed: edit, Cause: err}
		}
	}
	return len(edits), nil
}

// failedEdit picks the edit to blame for a batch-level failure. When the
// service reports which op it rejected, use that; otherwise the first edit
// stands in for the whole batch.
func failedEdit(edits []Edit, err error) Edit {
	var perr *ProtocolError
	if errors.As(err, &perr) && perr.Index >= 0 && perr.Index < len(edits) {
		return edits[perr.Index]
	}
	return edits[0]
}

func (m *Mutator) validate(tree *Tree, edit Edit) error {
	switch e := edit.(type) {
	case Reattach:
		dev := tree.Find(e.DeviceID)
		if dev == nil {
			return &ValidationError{Edit: edit, Reason: "device no longer exists"}
		}
		if dev.Role.IsMaster() {
			return &ValidationError{Edit: edit, Reason: "cannot reattach a master device"}
		}
		if e.NewMasterID == FloatingID {
			return nil
		}
		target := tree.Find(e.NewMasterID)
		if target == nil {
			return &ValidationError{Edit: edit, Reason: "target master no longer exists"}
		}
		if !target.Role.IsMaster() {
			return &ValidationError{Edit: edit, Reason: fmt.Sprintf("target %d is not a master", e.NewMasterID)}
		}
		// A floating slave's device class is not recoverable from its
		// role, so it may go anywhere. Attached slaves must stay
		// within their class.
		if dev.Role.IsPointer() && !target.Role.IsPointer() {
			return &ValidationError{Edit: edit, Reason: "pointer device needs a pointer master"}
		}
		if dev.Role.IsKeyboard() && !target.Role.IsKeyboard() {
			return &ValidationError{Edit: edit, Reason: "keyboard device needs a keyboard master"}
		}
		return nil

	case Float:
		dev := tree.Find(e.DeviceID)
		if dev == nil {
			return &ValidationError{Edit: edit, Reason: "device no longer exists"}
		}
		if dev.Role.IsMaster() {
			return &ValidationError{Edit: edit, Reason: "cannot float a master device"}
		}
		return nil

	case CreateMaster:
		if e.Name == "" {
			return &ValidationError{Edit: edit, Reason: "empty master name"}
		}
		return nil

	case RemoveMaster:
		if Reserved(e.DeviceID) {
			return &ValidationError{Edit: edit, Reason: "the core pointer and keyboard cannot be removed"}
		}
		dev := tree.Find(e.DeviceID)
		if dev == nil {
			return &ValidationError{Edit: edit, Reason: "device no longer exists"}
		}
		if !dev.Role.IsMaster() {
			return &ValidationError{Edit: edit, Reason: fmt.Sprintf("device %d is not a master", e.DeviceID)}
		}
		return nil
	}
	return &ValidationError{Edit: edit, Reason: "unknown edit kind"}
}

func (m *Mutator) translate(edit Edit) ChangeOp {
	switch e := edit.(type) {
	case Reattach:
		if e.NewMasterID == FloatingID {
			return ChangeOp{Kind: OpDetachSlave, DeviceID: e.DeviceID}
		}
		return ChangeOp{Kind: OpAttachSlave, DeviceID: e.DeviceID, MasterID: e.NewMasterID}
	case Float:
		return ChangeOp{Kind: OpDetachSlave, DeviceID: e.DeviceID}
	case CreateMaster:
		return ChangeOp{Kind: OpAddMaster, Name: e.Name}
	case RemoveMaster:
		op := ChangeOp{Kind: OpRemoveMaster, DeviceID: e.DeviceID}
		if m.policy == ReturnToCore {
			op.ReturnPointer = CorePointerID
			op.ReturnKeyboard = CoreKeyboardID
		}
		return op
	}
	panic("hierarchy: unreachable edit kind")
}
