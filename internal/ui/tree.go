package ui

import (
	"fmt"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// Row is one rendered line of the device tree: a flattened node plus the
// display attributes the view needs.
type Row struct {
	ID       int
	Name     string
	Role     hierarchy.Role
	Depth    int // 0 = master/floating bucket, 1 = slave
	Reserved bool
	Bucket   bool // the synthetic floating bucket
}

// Rows flattens the tree into display order: masters with their slaves,
// floating bucket last. Call it while the tree is quiescent (from the
// session's OnTree hook or the driving goroutine).
func Rows(tree *hierarchy.Tree) []Row {
	var rows []Row
	for _, root := range tree.Roots() {
		rows = append(rows, Row{
			ID:       root.ID,
			Name:     root.Name,
			Role:     root.Role,
			Reserved: hierarchy.Reserved(root.ID),
			Bucket:   root.Floating(),
		})
		for _, child := range root.Children() {
			rows = append(rows, Row{
				ID:    child.ID,
				Name:  child.Name,
				Role:  child.Role,
				Depth: 1,
			})
		}
	}
	return rows
}

// glyph mirrors the icon classes of the device hierarchy: pointer devices,
// keyboard devices and the floating bucket.
func glyph(row Row) string {
	if row.Bucket || row.Role == hierarchy.FloatingSlave {
		return "⚠"
	}
	if row.Role.IsPointer() {
		return "🖱"
	}
	return "⌨"
}

// stagedIDs collects the device ids the pending edits touch, for the row
// badge. CreateMaster names no existing device and marks nothing.
func stagedIDs(edits []hierarchy.Edit) map[int]bool {
	ids := map[int]bool{}
	for _, edit := range edits {
		switch e := edit.(type) {
		case hierarchy.Reattach:
			ids[e.DeviceID] = true
		case hierarchy.Float:
			ids[e.DeviceID] = true
		case hierarchy.RemoveMaster:
			ids[e.DeviceID] = true
		}
	}
	return ids
}

// renderRow renders one tree line. Masters carry their id; reserved masters
// are marked since they can never be removed; devices with a pending edit
// carry the staged badge.
func renderRow(row Row, selected, target, staged bool) string {
	indent := ""
	if row.Depth > 0 {
		indent = "    ↳ "
	}

	label := fmt.Sprintf("%s%s %s", indent, glyph(row), row.Name)
	if !row.Bucket {
		label += SubtleStyle.Render(fmt.Sprintf(" [id=%d]", row.ID))
	}
	if row.Reserved {
		label += SubtleStyle.Render(" (core)")
	}
	if staged {
		label += StagedStyle.Render(" *staged")
	}

	switch {
	case selected:
		return SelectedStyle.Render(label)
	case target:
		return WarningStyle.Render(label)
	case row.Bucket:
		return FloatingStyle.Render(label)
	case row.Depth == 0:
		return MasterStyle.Render(label)
	default:
		return SlaveStyle.Render(label)
	}
}
