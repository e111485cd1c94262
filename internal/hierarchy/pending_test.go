package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

func TestBufferDrainPreservesOrder(t *testing.T) {
	var buf hierarchy.Buffer
	require.True(t, buf.IsEmpty())

	edits := []hierarchy.Edit{
		hierarchy.Float{DeviceID: 9},
		hierarchy.CreateMaster{Name: "left hand"},
		hierarchy.Reattach{DeviceID: 9, NewMasterID: 10},
	}
	for _, e := range edits {
		require.NoError(t, buf.Enqueue(e))
	}
	assert.Equal(t, 3, buf.Len())

	drained := buf.Drain()
	assert.Equal(t, edits, drained)
	assert.True(t, buf.IsEmpty())
	assert.Empty(t, buf.Drain(), "second drain yields nothing")
}

func TestBufferRejectsStructuralNonsense(t *testing.T) {
	tests := []struct {
		name string
		edit hierarchy.Edit
	}{
		{"reattach without device", hierarchy.Reattach{NewMasterID: 2}},
		{"reattach without target", hierarchy.Reattach{DeviceID: 9}},
		{"float without device", hierarchy.Float{}},
		{"create without name", hierarchy.CreateMaster{}},
		{"remove without device", hierarchy.RemoveMaster{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf hierarchy.Buffer
			err := buf.Enqueue(tt.edit)

			var verr *hierarchy.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, buf.IsEmpty(), "rejected edits must not be queued")
		})
	}
}

func TestBufferAcceptsReattachToFloating(t *testing.T) {
	var buf hierarchy.Buffer
	require.NoError(t, buf.Enqueue(hierarchy.Reattach{DeviceID: 9, NewMasterID: hierarchy.FloatingID}))
	assert.Equal(t, 1, buf.Len())
}
