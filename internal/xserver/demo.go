package xserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// Demo is an in-memory hierarchy service. It implements the full change
// semantics, including what happens to a removed master's slaves, and
// applies batches atomically: every op is checked against a scratch copy and
// nothing commits unless all of them pass.
type Demo struct {
	mu      sync.Mutex
	devices []hierarchy.Device
	nextID  int
}

// NewDemo returns a demo service populated with the core master pair and a
// few typical slaves.
func NewDemo() *Demo {
	return NewDemoWith([]hierarchy.Device{
		{ID: hierarchy.CorePointerID, Name: "Virtual core pointer", Role: hierarchy.MasterPointer, Attachment: hierarchy.CoreKeyboardID},
		{ID: hierarchy.CoreKeyboardID, Name: "Virtual core keyboard", Role: hierarchy.MasterKeyboard, Attachment: hierarchy.CorePointerID},
		{ID: 4, Name: "Virtual core XTEST pointer", Role: hierarchy.SlavePointer, Attachment: hierarchy.CorePointerID},
		{ID: 5, Name: "Virtual core XTEST keyboard", Role: hierarchy.SlaveKeyboard, Attachment: hierarchy.CoreKeyboardID},
		{ID: 6, Name: "Demo USB Optical Mouse", Role: hierarchy.SlavePointer, Attachment: hierarchy.CorePointerID},
		{ID: 7, Name: "Demo AT Keyboard", Role: hierarchy.SlaveKeyboard, Attachment: hierarchy.CoreKeyboardID},
		{ID: 8, Name: "Demo Graphics Tablet", Role: hierarchy.FloatingSlave},
	})
}

// NewDemoWith returns a demo service seeded with the given devices.
func NewDemoWith(devices []hierarchy.Device) *Demo {
	next := 10
	for _, dev := range devices {
		if dev.ID >= next {
			next = dev.ID + 1
		}
	}
	return &Demo{devices: devices, nextID: next}
}

func (d *Demo) Devices(ctx context.Context) ([]hierarchy.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]hierarchy.Device, len(d.devices))
	copy(out, d.devices)
	return out, nil
}

func (d *Demo) ChangeHierarchy(ctx context.Context, ops []hierarchy.ChangeOp) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	scratch := make([]hierarchy.Device, len(d.devices))
	copy(scratch, d.devices)
	nextID := d.nextID

	for i, op := range ops {
		var err error
		scratch, nextID, err = applyOp(scratch, nextID, op)
		if err != nil {
			return &hierarchy.ProtocolError{Index: i, Op: op, Err: err}
		}
	}

	d.devices = scratch
	d.nextID = nextID
	return nil
}

// SupportsBatch is true: the batch commits or fails as one unit.
func (d *Demo) SupportsBatch() bool {
	return true
}

func (d *Demo) Close() error {
	return nil
}

func applyOp(devices []hierarchy.Device, nextID int, op hierarchy.ChangeOp) ([]hierarchy.Device, int, error) {
	switch op.Kind {
	case hierarchy.OpAttachSlave:
		di := indexOf(devices, op.DeviceID)
		mi := indexOf(devices, op.MasterID)
		if di < 0 {
			return nil, 0, fmt.Errorf("no device %d", op.DeviceID)
		}
		if mi < 0 || !devices[mi].Role.IsMaster() {
			return nil, 0, fmt.Errorf("no master %d", op.MasterID)
		}
		if devices[di].Role.IsMaster() {
			return nil, 0, fmt.Errorf("device %d is a master", op.DeviceID)
		}
		devices[di].Attachment = op.MasterID
		if devices[mi].Role == hierarchy.MasterPointer {
			devices[di].Role = hierarchy.SlavePointer
		} else {
			devices[di].Role = hierarchy.SlaveKeyboard
		}
		return devices, nextID, nil

	case hierarchy.OpDetachSlave:
		di := indexOf(devices, op.DeviceID)
		if di < 0 {
			return nil, 0, fmt.Errorf("no device %d", op.DeviceID)
		}
		if devices[di].Role.IsMaster() {
			return nil, 0, fmt.Errorf("device %d is a master", op.DeviceID)
		}
		devices[di].Role = hierarchy.FloatingSlave
		devices[di].Attachment = 0
		return devices, nextID, nil

	case hierarchy.OpAddMaster:
		if op.Name == "" {
			return nil, 0, fmt.Errorf("empty master name")
		}
		// The server creates a pointer/keyboard pair, each named after
		// the request.
		ptr := hierarchy.Device{ID: nextID, Name: op.Name + " pointer", Role: hierarchy.MasterPointer, Attachment: nextID + 1}
		kbd := hierarchy.Device{ID: nextID + 1, Name: op.Name + " keyboard", Role: hierarchy.MasterKeyboard, Attachment: nextID}
		return append(devices, ptr, kbd), nextID + 2, nil

	case hierarchy.OpRemoveMaster:
		di := indexOf(devices, op.DeviceID)
		if di < 0 {
			return nil, 0, fmt.Errorf("no device %d", op.DeviceID)
		}
		if !devices[di].Role.IsMaster() {
			return nil, 0, fmt.Errorf("device %d is not a master", op.DeviceID)
		}
		if hierarchy.Reserved(op.DeviceID) {
			return nil, 0, fmt.Errorf("cannot remove core master %d", op.DeviceID)
		}
		// Removing a master takes its paired master with it.
		doomed := map[int]bool{op.DeviceID: true}
		if pair := devices[di].Attachment; pair != 0 && !hierarchy.Reserved(pair) {
			doomed[pair] = true
		}
		kept := devices[:0]
		for _, dev := range devices {
			if doomed[dev.ID] {
				continue
			}
			if !dev.Role.IsMaster() && doomed[dev.Attachment] {
				switch {
				case dev.Role == hierarchy.SlavePointer && op.ReturnPointer != 0:
					dev.Attachment = op.ReturnPointer
				case dev.Role == hierarchy.SlaveKeyboard && op.ReturnKeyboard != 0:
					dev.Attachment = op.ReturnKeyboard
				default:
					dev.Role = hierarchy.FloatingSlave
					dev.Attachment = 0
				}
			}
			kept = append(kept, dev)
		}
		return kept, nextID, nil

	default:
		return nil, 0, fmt.Errorf("unknown op kind %v", op.Kind)
	}
}

func indexOf(devices []hierarchy.Device, id int) int {
	for i, dev := range devices {
		if dev.ID == id {
			return i
		}
	}
	return -1
}
