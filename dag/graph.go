// Package dag implements a value-numbering graph for one basic block of
// quadruple code. Instructions are ingested one at a time; Optimize then prunes
// dead values and regenerates a shorter, equivalent instruction sequence.
//
// A Graph holds all the state of one block and is not safe for concurrent use.
// Blocks are independent, so different blocks may be optimized in parallel
// with one Graph each.
package dag

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/quadopt/instr"
)

var (
	// ErrCorruptGraph reports a violated internal invariant, such as a child
	// slot pointing at a missing node.
	ErrCorruptGraph = errors.New("corrupt graph")

	// ErrArithmeticFault is returned by Ingest when constant folding divides
	// by a literal zero.
	ErrArithmeticFault = instr.ErrArithmeticFault
)

// Graph is the node arena of one basic block. Nodes are appended and never
// moved, so a node's index is its identity. Discarded nodes leave a nil slot.
type Graph struct {
	nodes      []*Node
	arrayOrder int

	jump *instr.Inst
	halt *instr.Inst

	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger that receives ingestion and emission events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Len returns the number of slots in the arena, including discarded ones.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node at idx, or nil if the slot is empty or out of range.
func (g *Graph) Node(idx int) *Node {
	if idx < 0 || idx >= len(g.nodes) {
		return nil
	}
	return g.nodes[idx]
}

func (g *Graph) nodeAt(idx int) (*Node, error) {
	n := g.Node(idx)
	if n == nil {
		return nil, fmt.Errorf("%w: no node at index %d", ErrCorruptGraph, idx)
	}
	return n, nil
}

func (g *Graph) appendNode(n *Node) int {
	g.nodes = append(g.nodes, n)
	return len(g.nodes) - 1
}

func (g *Graph) nextArrayOrder() int {
	order := g.arrayOrder
	g.arrayOrder++
	return order
}

// findByAlias returns the node currently bound to name, killed or not.
func (g *Graph) findByAlias(name string) int {
	for i, n := range g.nodes {
		if n != nil && n.HasAlias(name) {
			return i
		}
	}
	return NoChild
}

func (g *Graph) findLeaf(value string) int {
	for i, n := range g.nodes {
		if n != nil && n.IsLeaf() && n.Value == value {
			return i
		}
	}
	return NoChild
}

// findLive returns a node with the given identity that has not been killed.
func (g *Graph) findLive(value string, left, right, third int) int {
	for i, n := range g.nodes {
		if n != nil && !n.Killed && n.matches(value, left, right, third) {
			return i
		}
	}
	return NoChild
}

func (g *Graph) leaf(value string, created *[]int) int {
	if idx := g.findLeaf(value); idx != NoChild {
		return idx
	}

	idx := g.appendNode(newLeaf(value))
	*created = append(*created, idx)
	return idx
}

func (g *Graph) findOrCreate(value string, left, right, third int, created *[]int) (int, bool) {
	if idx := g.findLive(value, left, right, third); idx != NoChild {
		return idx, false
	}

	idx := g.appendNode(newNode(value, left, right, third))
	*created = append(*created, idx)
	return idx, true
}

// resolve maps an operand to the node holding its current value: the node the
// name is bound to, or else the leaf for the name itself.
func (g *Graph) resolve(name string, created *[]int) int {
	if idx := g.findByAlias(name); idx != NoChild {
		return idx
	}
	return g.leaf(name, created)
}

func (g *Graph) stripAlias(name string) {
	for _, n := range g.nodes {
		if n != nil {
			n.removeAlias(name)
		}
	}
}

func (g *Graph) bind(name string, idx int) {
	g.stripAlias(name)
	g.nodes[idx].addAlias(name)
}

// literalValue reports the compile-time value of an operand: either literal
// text, or a name bound to a copy of a literal leaf.
func (g *Graph) literalValue(name string) (int64, bool) {
	idx := g.findByAlias(name)
	if idx == NoChild {
		return instr.ParseLiteral(name)
	}

	n := g.nodes[idx]
	if n.Value != instr.OpSet || n.Right != NoChild || n.Third != NoChild {
		return 0, false
	}

	child := g.Node(n.Left)
	if child == nil || !child.IsLeaf() {
		return 0, false
	}

	return instr.ParseLiteral(child.Value)
}

// Ingest adds one instruction to the graph and returns the indices of the
// nodes it appended. JMP and HALT are retained aside and re-emitted at the end
// of the optimized block.
func (g *Graph) Ingest(i instr.Inst) ([]int, error) {
	var (
		created []int
		err     error
	)

	switch instr.Classify(i) {
	case instr.ClassControl:
		g.retainControl(i)
	case instr.ClassCopy:
		created = g.ingestCopy(i)
	case instr.ClassUnary:
		created = g.ingestUnary(i)
	case instr.ClassStore:
		created = g.ingestStore(i)
	default:
		created, err = g.ingestBinary(i)
	}

	if err != nil {
		return created, fmt.Errorf("ingest %s: %w", i, err)
	}

	g.logger.Debug("DAGIngest", "inst", i.String(), "created", created)

	return created, nil
}

// IngestBlock ingests every instruction of a block in order.
func (g *Graph) IngestBlock(code []instr.Inst) error {
	for _, i := range code {
		if _, err := g.Ingest(i); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) retainControl(i instr.Inst) {
	rec := i
	if i.Op == instr.OpJmp {
		g.jump = &rec
		return
	}
	g.halt = &rec
}

// ingestCopy handles dst = src. A bound source just gains a second name;
// anything else becomes a SET node over the leaf for src.
func (g *Graph) ingestCopy(i instr.Inst) []int {
	var created []int

	if src := g.findByAlias(i.Src1); src != NoChild {
		g.bind(i.Dst, src)
		return created
	}

	g.stripAlias(i.Dst)

	leaf := g.leaf(i.Src1, &created)
	idx, _ := g.findOrCreate(i.Op, leaf, NoChild, NoChild, &created)
	g.nodes[idx].addAlias(i.Dst)

	return created
}

// ingestUnary handles (op, dst, -, src). No textual form produces it; it is
// kept for quadruples built directly.
func (g *Graph) ingestUnary(i instr.Inst) []int {
	var created []int

	operand := g.resolve(i.Src2, &created)
	idx, _ := g.findOrCreate(i.Op, NoChild, operand, NoChild, &created)
	g.bind(i.Dst, idx)

	return created
}

func (g *Graph) ingestBinary(i instr.Inst) ([]int, error) {
	var created []int

	a, aLit := g.literalValue(i.Src1)
	b, bLit := g.literalValue(i.Src2)

	if aLit && bLit && instr.IsArithmetic(i.Op) {
		v, err := instr.Eval(i.Op, a, b)
		if err != nil {
			return created, err
		}

		leaf := g.leaf(instr.FormatLiteral(v), &created)
		idx, _ := g.findOrCreate(instr.OpSet, leaf, NoChild, NoChild, &created)
		g.bind(i.Dst, idx)

		return created, nil
	}

	left := g.resolve(i.Src1, &created)
	right := g.resolve(i.Src2, &created)

	// Each branch keeps its own label.
	if instr.IsConditionalJump(i.Op) {
		idx := g.appendNode(newNode(i.Op, left, right, NoChild))
		created = append(created, idx)
		g.nodes[idx].addAlias(i.Dst)
		return created, nil
	}

	idx, isNew := g.findOrCreate(i.Op, left, right, NoChild, &created)
	if isNew && i.Op == instr.OpFar {
		g.nodes[idx].ArrayOrder = g.nextArrayOrder()
	}
	g.bind(i.Dst, idx)

	return created, nil
}

// ingestStore handles base[index] = value. Every store gets its own node, and
// every node whose left child is the base is killed, since the store may have
// changed what a read of the base returns.
func (g *Graph) ingestStore(i instr.Inst) []int {
	var created []int

	base := g.resolve(i.Dst, &created)
	index := g.resolve(i.Src1, &created)
	value := g.resolve(i.Src2, &created)

	n := newNode(i.Op, base, index, value)
	n.ArrayOrder = g.nextArrayOrder()
	idx := g.appendNode(n)
	created = append(created, idx)

	for j, other := range g.nodes {
		if j == idx || other == nil || other.Left != base || other.Killed {
			continue
		}

		other.Killed = true
		g.logger.Debug("DAGKill", "node", j, "value", other.Value, "base", base)
	}

	return created
}
