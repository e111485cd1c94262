package hierarchy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

func reconciledTree(t *testing.T, devices []hierarchy.Device) *hierarchy.Tree {
	t.Helper()
	tree := hierarchy.NewTree()
	tree.Reconcile(devices)
	return tree
}

func TestApplyOneRejectsRoleMismatch(t *testing.T) {
	svc := newFakeService(baseDevices(), false)
	tree := reconciledTree(t, baseDevices())
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	// Mouse 9 onto the keyboard master 3.
	err := m.ApplyOne(context.Background(), tree, hierarchy.Reattach{DeviceID: 9, NewMasterID: 3})

	var verr *hierarchy.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "pointer")
	assert.Empty(t, svc.calls, "validation failures must not reach the server")
}

func TestApplyOneRejectsReservedMasterRemoval(t *testing.T) {
	for _, id := range []int{hierarchy.CorePointerID, hierarchy.CoreKeyboardID} {
		svc := newFakeService(baseDevices(), false)
		tree := reconciledTree(t, baseDevices())
		m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

		err := m.ApplyOne(context.Background(), tree, hierarchy.RemoveMaster{DeviceID: id})

		var verr *hierarchy.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Empty(t, svc.calls)
	}
}

func TestApplyOneRejectsVanishedDevice(t *testing.T) {
	svc := newFakeService(baseDevices(), false)
	tree := reconciledTree(t, baseDevices())
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	err := m.ApplyOne(context.Background(), tree, hierarchy.Float{DeviceID: 42})

	var verr *hierarchy.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "no longer exists")
}

func TestApplyOneAllowsFloatingSlaveAnywhere(t *testing.T) {
	devices := append(baseDevices(),
		hierarchy.Device{ID: 12, Name: "Pen", Role: hierarchy.FloatingSlave},
	)
	svc := newFakeService(devices, false)
	tree := reconciledTree(t, devices)
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	// A floating slave's class is unknown; attaching it to the keyboard
	// master is the server's call to reject, not ours.
	err := m.ApplyOne(context.Background(), tree, hierarchy.Reattach{DeviceID: 12, NewMasterID: 3})
	require.NoError(t, err)
	require.Len(t, svc.submitted(), 1)
	assert.Equal(t, hierarchy.OpAttachSlave, svc.submitted()[0].Kind)
}

func TestApplyOneTranslatesFloatTarget(t *testing.T) {
	svc := newFakeService(baseDevices(), false)
	tree := reconciledTree(t, baseDevices())
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	require.NoError(t, m.ApplyOne(context.Background(), tree,
		hierarchy.Reattach{DeviceID: 9, NewMasterID: hierarchy.FloatingID}))

	ops := svc.submitted()
	require.Len(t, ops, 1)
	assert.Equal(t, hierarchy.OpDetachSlave, ops[0].Kind)
	assert.Equal(t, 9, ops[0].DeviceID)
}

func TestRemovalPolicyTranslation(t *testing.T) {
	devices := append(baseDevices(),
		hierarchy.Device{ID: 10, Name: "second pointer", Role: hierarchy.MasterPointer, Attachment: 11},
		hierarchy.Device{ID: 11, Name: "second keyboard", Role: hierarchy.MasterKeyboard, Attachment: 10},
	)

	t.Run("reattach policy returns slaves to the core pair", func(t *testing.T) {
		svc := newFakeService(devices, false)
		m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)
		require.NoError(t, m.ApplyOne(context.Background(), reconciledTree(t, devices),
			hierarchy.RemoveMaster{DeviceID: 10}))

		op := svc.submitted()[0]
		assert.Equal(t, hierarchy.CorePointerID, op.ReturnPointer)
		assert.Equal(t, hierarchy.CoreKeyboardID, op.ReturnKeyboard)
	})

	t.Run("float policy zeroes the return targets", func(t *testing.T) {
		svc := newFakeService(devices, false)
		m := hierarchy.NewMutator(svc, hierarchy.SetFloating)
		require.NoError(t, m.ApplyOne(context.Background(), reconciledTree(t, devices),
			hierarchy.RemoveMaster{DeviceID: 10}))

		op := svc.submitted()[0]
		assert.Zero(t, op.ReturnPointer)
		assert.Zero(t, op.ReturnKeyboard)
	})
}

func TestApplyBatchSequentialPartialFailure(t *testing.T) {
	devices := append(baseDevices(),
		hierarchy.Device{ID: 10, Name: "AT Keyboard", Role: hierarchy.SlaveKeyboard, Attachment: 3},
		hierarchy.Device{ID: 12, Name: "Pen", Role: hierarchy.FloatingSlave},
	)
	svc := newFakeService(devices, false)
	svc.failAt = 1 // second op rejected
	tree := reconciledTree(t, devices)
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	edits := []hierarchy.Edit{
		hierarchy.Float{DeviceID: 9},
		hierarchy.Float{DeviceID: 10},
		hierarchy.Reattach{DeviceID: 12, NewMasterID: 2},
	}
	applied, err := m.ApplyBatch(context.Background(), tree, edits)

	assert.Equal(t, 1, applied, "first edit applied, second failed, third never attempted")
	var berr *hierarchy.BatchError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 1, berr.Applied)
	assert.Equal(t, edits[1], berr.Failed)
	assert.Len(t, svc.submitted(), 2, "third op must not be sent")
}

func TestApplyBatchAtomicFailure(t *testing.T) {
	devices := append(baseDevices(),
		hierarchy.Device{ID: 10, Name: "AT Keyboard", Role: hierarchy.SlaveKeyboard, Attachment: 3},
	)
	svc := newFakeService(devices, true)
	svc.failAt = 1
	tree := reconciledTree(t, devices)
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	edits := []hierarchy.Edit{
		hierarchy.Float{DeviceID: 9},
		hierarchy.Float{DeviceID: 10},
	}
	applied, err := m.ApplyBatch(context.Background(), tree, edits)

	assert.Zero(t, applied, "atomic batch fails as one unit")
	var berr *hierarchy.BatchError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, edits[1], berr.Failed, "service reported which op it rejected")
	assert.Len(t, svc.calls, 1, "batching service gets one request")
}

func TestApplyBatchValidatesBeforeSending(t *testing.T) {
	svc := newFakeService(baseDevices(), false)
	tree := reconciledTree(t, baseDevices())
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	edits := []hierarchy.Edit{
		hierarchy.Float{DeviceID: 9},
		hierarchy.RemoveMaster{DeviceID: hierarchy.CorePointerID},
	}
	applied, err := m.ApplyBatch(context.Background(), tree, edits)

	assert.Zero(t, applied)
	var verr *hierarchy.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, svc.calls, "nothing sent when any edit fails validation")
}

func TestApplyBatchEmpty(t *testing.T) {
	svc := newFakeService(baseDevices(), false)
	m := hierarchy.NewMutator(svc, hierarchy.ReturnToCore)

	applied, err := m.ApplyBatch(context.Background(), reconciledTree(t, baseDevices()), nil)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Empty(t, svc.calls)
}
