package hierarchy

import (
	"github.com/devtreehq/devtree/internal/logger"
)

// Reconcile updates the tree in place from a freshly queried flat device
// list. Nodes for ids already in the tree are stamped with the new
// generation and keep their identity; unseen ids get new nodes; ids that no
// longer appear are swept. After the call the tree contains exactly the
// devices in the list plus the floating bucket, which is always last among
// the roots.
//
// The result does not depend on the ordering of devices beyond the relative
// order in which new masters first appear. Calling Reconcile twice with the
// same list changes nothing but the generation stamps.
func (t *Tree) Reconcile(devices []Device) {
	t.generation++

	// Masters first, so that every slave's target parent exists by the
	// time the slave pass runs.
	for _, dev := range devices {
		if !dev.Role.IsMaster() {
			continue
		}
		node := t.findRoot(dev.ID)
		if node != nil && node.Role == dev.Role {
			node.Name = dev.Name
			node.Generation = t.generation
			continue
		}
		// Unseen master, or an id that came back with a different
		// role: the old node is left stale for the sweep and a fresh
		// one takes its place.
		logger.Debugf("new master device %d (%s)", dev.ID, dev.Name)
		t.roots = append(t.roots, &Node{
			ID:         dev.ID,
			Name:       dev.Name,
			Role:       dev.Role,
			Generation: t.generation,
		})
	}

	// Exactly one floating bucket, always rendered after the real
	// masters.
	bucket := t.findRoot(FloatingID)
	if bucket == nil {
		bucket = &Node{
			ID:   FloatingID,
			Name: FloatingName,
			Role: FloatingSlave,
		}
	} else {
		t.detachRoot(bucket)
	}
	bucket.Generation = t.generation
	t.roots = append(t.roots, bucket)

	// Slaves attach under the master the server reported, or under the
	// floating bucket when unattached.
	for _, dev := range devices {
		if dev.Role.IsMaster() {
			continue
		}
		parentID := dev.Attachment
		if dev.Role == FloatingSlave {
			parentID = FloatingID
		}
		parent := t.findRoot(parentID)
		if parent == nil {
			// The server reported an attachment to a master it did
			// not list. Nothing to hang the slave off; it will show
			// up on the next pass.
			logger.Warnf("device %d attached to unknown master %d, skipping", dev.ID, parentID)
			continue
		}
		child := findChild(parent, dev.ID)
		if child != nil && child.Role == dev.Role {
			child.Name = dev.Name
			child.Generation = t.generation
			continue
		}
		parent.children = append(parent.children, &Node{
			ID:         dev.ID,
			Name:       dev.Name,
			Role:       dev.Role,
			Generation: t.generation,
			parent:     parent,
		})
	}

	// Sweep anything the pass did not stamp, children before their
	// parent so a removed master never leaves a dangling child.
	roots := t.roots[:0]
	for _, root := range t.roots {
		children := root.children[:0]
		for _, child := range root.children {
			if child.Generation < t.generation {
				child.parent = nil
				continue
			}
			children = append(children, child)
		}
		root.children = children
		if root.Generation < t.generation {
			logger.Debugf("sweeping stale device %d (%s)", root.ID, root.Name)
			for _, child := range root.children {
				child.parent = nil
			}
			root.children = nil
			continue
		}
		roots = append(roots, root)
	}
	t.roots = roots
}

// findRoot scans newest-first: mid-pass a stale node and its role-changed
// replacement can share an id, and the replacement must win.
func (t *Tree) findRoot(id int) *Node {
	for i := len(t.roots) - 1; i >= 0; i-- {
		if t.roots[i].ID == id {
			return t.roots[i]
		}
	}
	return nil
}

func (t *Tree) detachRoot(node *Node) {
	for i, root := range t.roots {
		if root == node {
			t.roots = append(t.roots[:i], t.roots[i+1:]...)
			return
		}
	}
}

func findChild(parent *Node, id int) *Node {
	for _, child := range parent.children {
		if child.ID == id {
			return child
		}
	}
	return nil
}
