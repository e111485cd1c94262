package hierarchy

// Node is one device in the hierarchy tree. Masters and the floating bucket
// sit at the root level, slaves one level below. Node instances are created
// by Reconcile when an id first appears and stay the same instance for as
// long as the id survives, so callers may hang selection state off them.
type Node struct {
	ID         int
	Name       string
	Role       Role
	Generation int

	parent   *Node
	children []*Node
}

// Parent returns the owning master (or floating bucket) for slave nodes and
// nil for root-level nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the slave nodes attached to this node. The returned slice
// is owned by the tree; callers must not modify it.
func (n *Node) Children() []*Node {
	return n.children
}

// Floating reports whether this node is the synthetic floating bucket.
func (n *Node) Floating() bool {
	return n.ID == FloatingID
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Tree is the device record store: the two-level hierarchy mirrored from the
// display server, plus the generation counter driving mark-and-sweep.
type Tree struct {
	roots      []*Node
	generation int
}

// NewTree returns an empty tree. The floating bucket appears on the first
// reconciliation pass.
func NewTree() *Tree {
	return &Tree{}
}

// Generation returns the stamp of the most recent reconciliation pass.
func (t *Tree) Generation() int {
	return t.generation
}

// Roots returns the depth-0 nodes: masters in server order, then the
// floating bucket. The slice is owned by the tree.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Find returns the node with the given id, or nil. The floating bucket is
// found under FloatingID.
func (t *Tree) Find(id int) *Node {
	for _, root := range t.roots {
		if root.ID == id {
			return root
		}
		for _, child := range root.children {
			if child.ID == id {
				return child
			}
		}
	}
	return nil
}

// FloatingBucket returns the synthetic floating node, or nil before the
// first reconciliation.
func (t *Tree) FloatingBucket() *Node {
	return t.Find(FloatingID)
}

// Len counts all nodes in the tree, the floating bucket included.
func (t *Tree) Len() int {
	n := 0
	t.Walk(func(*Node) { n++ })
	return n
}

// Walk visits every node depth-first, parents before their children.
func (t *Tree) Walk(visit func(*Node)) {
	for _, root := range t.roots {
		visit(root)
		for _, child := range root.children {
			visit(child)
		}
	}
}
