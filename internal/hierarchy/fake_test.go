package hierarchy_test

import (
	"context"
	"errors"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// fakeService records every hierarchy change without applying it anywhere.
// failAt injects a protocol rejection at the n-th submitted op (counting
// across calls); -1 never fails.
type fakeService struct {
	devices []hierarchy.Device
	batch   bool

	calls  [][]hierarchy.ChangeOp
	opSeen int
	failAt int
}

func newFakeService(devices []hierarchy.Device, batch bool) *fakeService {
	return &fakeService{devices: devices, batch: batch, failAt: -1}
}

func (f *fakeService) Devices(ctx context.Context) ([]hierarchy.Device, error) {
	out := make([]hierarchy.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeService) ChangeHierarchy(ctx context.Context, ops []hierarchy.ChangeOp) error {
	f.calls = append(f.calls, ops)
	for i, op := range ops {
		if f.failAt >= 0 && f.opSeen == f.failAt {
			f.opSeen++
			return &hierarchy.ProtocolError{Index: i, Op: op, Err: errors.New("rejected by server")}
		}
		f.opSeen++
	}
	return nil
}

func (f *fakeService) SupportsBatch() bool { return f.batch }

func (f *fakeService) Close() error { return nil }

// submitted flattens all recorded ops.
func (f *fakeService) submitted() []hierarchy.ChangeOp {
	var ops []hierarchy.ChangeOp
	for _, call := range f.calls {
		ops = append(ops, call...)
	}
	return ops
}
