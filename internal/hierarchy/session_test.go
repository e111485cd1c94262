package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtreehq/devtree/internal/hierarchy"
	"github.com/devtreehq/devtree/internal/xserver"
)

func demoSession(t *testing.T) *hierarchy.Session {
	t.Helper()
	s := hierarchy.NewSession(xserver.NewDemo(), hierarchy.ReturnToCore)
	require.NoError(t, s.Start(context.Background()))
	return s
}

func TestSessionStartsIdleWithPopulatedTree(t *testing.T) {
	s := demoSession(t)

	assert.Equal(t, hierarchy.StateIdle, s.State())
	assert.NotNil(t, s.Tree().Find(hierarchy.CorePointerID))
	assert.NotNil(t, s.Tree().FloatingBucket())
	assert.True(t, s.Tree().FloatingBucket() == s.Tree().Roots()[len(s.Tree().Roots())-1])
}

func TestSessionStagingTransitions(t *testing.T) {
	s := demoSession(t)

	var states []hierarchy.State
	s.OnState(func(st hierarchy.State) { states = append(states, st) })

	require.NoError(t, s.StageFloat(6))
	assert.Equal(t, hierarchy.StateStaged, s.State())

	// Staged -> Staged on further enqueue: no duplicate notification.
	require.NoError(t, s.StageCreateMaster("left hand"))
	assert.Equal(t, hierarchy.StateStaged, s.State())
	assert.Equal(t, []hierarchy.State{hierarchy.StateStaged}, states)
	assert.Len(t, s.Pending(), 2)
}

func TestSessionApplyDrainsBufferAndReconciles(t *testing.T) {
	s := demoSession(t)
	ctx := context.Background()

	require.NoError(t, s.StageCreateMaster("left hand"))
	require.NoError(t, s.StageFloat(6))

	applied, err := s.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, hierarchy.StateIdle, s.State())
	assert.Empty(t, s.Pending())

	// The tree reflects the applied batch: new master pair present, mouse
	// floating.
	tree := s.Tree()
	found := false
	for _, root := range tree.Roots() {
		if root.Name == "left hand pointer" {
			found = true
		}
	}
	assert.True(t, found, "created master pair must appear after reconcile")
	mouse := tree.Find(6)
	require.NotNil(t, mouse)
	assert.True(t, mouse.Parent().Floating())
}

func TestSessionCancelDiscardsWithoutServerContact(t *testing.T) {
	s := demoSession(t)
	ctx := context.Background()

	// Stage moving the mouse to the keyboard-side master, then cancel.
	require.NoError(t, s.StageReattach(6, hierarchy.FloatingID))
	require.NoError(t, s.Cancel(ctx))

	assert.Equal(t, hierarchy.StateIdle, s.State())
	assert.Empty(t, s.Pending())

	// The live server never saw the edit: device 6 still under master 2.
	mouse := s.Tree().Find(6)
	require.NotNil(t, mouse)
	assert.Equal(t, hierarchy.CorePointerID, mouse.Parent().ID)
}

func TestSessionApplyFailureEntersErrorState(t *testing.T) {
	s := demoSession(t)
	ctx := context.Background()

	// Mouse 6 onto keyboard master 3: validation rejects it at apply
	// time, nothing reaches the server.
	require.NoError(t, s.StageReattach(6, hierarchy.CoreKeyboardID))

	applied, err := s.Apply(ctx)
	assert.Zero(t, applied)
	require.Error(t, err)
	assert.Equal(t, hierarchy.StateError, s.State())
	assert.Error(t, s.Err())
	assert.Empty(t, s.Pending(), "failed batches do not leave stale edits behind")

	// Further staging is refused until the failure is acknowledged.
	assert.Error(t, s.StageFloat(6))

	s.Acknowledge()
	assert.Equal(t, hierarchy.StateIdle, s.State())
	assert.NoError(t, s.Err())
	assert.NoError(t, s.StageFloat(6))
}

func TestSessionPartialFailureReporting(t *testing.T) {
	devices := []hierarchy.Device{
		{ID: 2, Name: "Virtual core pointer", Role: hierarchy.MasterPointer, Attachment: 3},
		{ID: 3, Name: "Virtual core keyboard", Role: hierarchy.MasterKeyboard, Attachment: 2},
		{ID: 6, Name: "Mouse", Role: hierarchy.SlavePointer, Attachment: 2},
		{ID: 7, Name: "Keyboard", Role: hierarchy.SlaveKeyboard, Attachment: 3},
		{ID: 8, Name: "Pen", Role: hierarchy.FloatingSlave},
	}
	svc := newFakeService(devices, false)
	svc.failAt = 1

	s := hierarchy.NewSession(svc, hierarchy.ReturnToCore)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.StageFloat(6))
	require.NoError(t, s.StageFloat(7))
	require.NoError(t, s.StageReattach(8, 2))

	applied, err := s.Apply(ctx)
	assert.Equal(t, 1, applied)

	var berr *hierarchy.BatchError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 1, berr.Applied)
	assert.Equal(t, hierarchy.StateError, s.State())
}

func TestSessionCancelClearsErrorState(t *testing.T) {
	s := demoSession(t)
	ctx := context.Background()

	require.NoError(t, s.StageReattach(6, hierarchy.CoreKeyboardID))
	_, err := s.Apply(ctx)
	require.Error(t, err)
	require.Equal(t, hierarchy.StateError, s.State())

	// Cancelling out of the failure acknowledges it: no stale error may
	// survive into Idle.
	require.NoError(t, s.Cancel(ctx))
	assert.Equal(t, hierarchy.StateIdle, s.State())
	assert.NoError(t, s.Err())
	assert.NoError(t, s.StageFloat(6))
}

func TestSessionAutoRefreshReconciles(t *testing.T) {
	s := demoSession(t)

	refreshed := make(chan struct{}, 1)
	s.OnTree(func(*hierarchy.Tree) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.AutoRefresh(ctx, 10*time.Millisecond)

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker never triggered a reconciliation pass")
	}
}

func TestSessionAutoRefreshZeroIntervalDisabled(t *testing.T) {
	s := demoSession(t)

	called := make(chan struct{}, 1)
	s.OnTree(func(*hierarchy.Tree) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.AutoRefresh(ctx, 0)

	select {
	case <-called:
		t.Fatal("zero interval must disable the ticker")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionStageReservedRemovalRejected(t *testing.T) {
	s := demoSession(t)

	err := s.StageRemoveMaster(hierarchy.CorePointerID)
	var verr *hierarchy.ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, hierarchy.StateIdle, s.State(), "rejected staging must not change state")
	assert.Empty(t, s.Pending())
}

func TestSessionRemoveMasterReturnsSlavesToCore(t *testing.T) {
	s := demoSession(t)
	ctx := context.Background()

	require.NoError(t, s.StageCreateMaster("spare"))
	_, err := s.Apply(ctx)
	require.NoError(t, err)

	var spare *hierarchy.Node
	for _, root := range s.Tree().Roots() {
		if root.Name == "spare pointer" {
			spare = root
		}
	}
	require.NotNil(t, spare)

	// Hand the mouse to the spare master, then remove the master: the
	// reattach policy must bring the mouse back to the core pointer.
	require.NoError(t, s.ApplyNow(ctx, hierarchy.Reattach{DeviceID: 6, NewMasterID: spare.ID}))
	assert.Equal(t, spare.ID, s.Tree().Find(6).Parent().ID)

	require.NoError(t, s.ApplyNow(ctx, hierarchy.RemoveMaster{DeviceID: spare.ID}))
	assert.Nil(t, s.Tree().Find(spare.ID))
	assert.Equal(t, hierarchy.CorePointerID, s.Tree().Find(6).Parent().ID)
}

func TestSessionIndependentInstances(t *testing.T) {
	a := demoSession(t)
	b := demoSession(t)

	require.NoError(t, a.StageFloat(6))
	assert.Equal(t, hierarchy.StateStaged, a.State())
	assert.Equal(t, hierarchy.StateIdle, b.State(), "sessions share no state")
}
