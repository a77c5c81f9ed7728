package dag

// NoChild marks an empty child slot.
const NoChild = -1

// NoOrder is the array order of nodes that do not touch array memory.
const NoOrder = -1

// Node is a vertex of the value graph. A node with no children is a leaf that
// stands for a literal or for the value a variable held on block entry; any
// other node stands for an operation whose label is Value.
type Node struct {
	Value string
	Left  int
	Right int
	Third int

	// Aliases are the variables currently holding the node's value. The first
	// alias is the name used when the node is emitted.
	Aliases []string

	// Killed nodes are never reused when deduplicating operations.
	Killed bool

	// ArrayOrder sequences array reads and writes in ingestion order.
	ArrayOrder int
}

func newNode(value string, left, right, third int) *Node {
	return &Node{
		Value:      value,
		Left:       left,
		Right:      right,
		Third:      third,
		ArrayOrder: NoOrder,
	}
}

func newLeaf(value string) *Node {
	return newNode(value, NoChild, NoChild, NoChild)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == NoChild && n.Right == NoChild && n.Third == NoChild
}

// HasAlias reports whether name currently holds the node's value.
func (n *Node) HasAlias(name string) bool {
	for _, a := range n.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

func (n *Node) addAlias(name string) {
	if n.HasAlias(name) {
		return
	}
	n.Aliases = append(n.Aliases, name)
}

func (n *Node) removeAlias(name string) {
	kept := n.Aliases[:0]
	for _, a := range n.Aliases {
		if a != name {
			kept = append(kept, a)
		}
	}
	n.Aliases = kept
}

func (n *Node) children() [3]int {
	return [3]int{n.Left, n.Right, n.Third}
}

func (n *Node) dependsOn(idx int) bool {
	return n.Left == idx || n.Right == idx || n.Third == idx
}

func (n *Node) matches(value string, left, right, third int) bool {
	return n.Value == value && n.Left == left && n.Right == right && n.Third == third
}
