package dag

import (
	"fmt"
	"sort"

	"github.com/sarchlab/quadopt/instr"
)

// maxEmitSteps bounds the emission loop so that a broken invariant surfaces as
// ErrCorruptGraph instead of a hang.
const maxEmitSteps = 1 << 22

type emitter struct {
	g    *Graph
	live map[string]bool

	visited []bool
	pending []bool
	futile  []bool

	// spilled maps a leaf to the temporary that saved its entry value.
	spilled map[int]string
	temps   *tempNamer

	code []instr.Inst
}

// Optimize prunes the graph against the set of variables live on block exit
// and regenerates the block. Store nodes and conditional jumps are always
// kept; any other value survives only if a live variable, directly or through
// its users, needs it. The retained JMP and HALT come last.
//
// Optimize consumes the graph: it discards dead nodes and aliases, so it must
// be called at most once.
func (g *Graph) Optimize(liveOut []string) ([]instr.Inst, error) {
	live := make(map[string]bool, len(liveOut))
	for _, name := range liveOut {
		live[name] = true
	}

	g.removeDeadRoots(live)
	temps := g.pruneAliases(live)

	e := &emitter{
		g:       g,
		live:    live,
		visited: make([]bool, len(g.nodes)),
		pending: make([]bool, len(g.nodes)),
		futile:  make([]bool, len(g.nodes)),
		spilled: make(map[int]string),
		temps:   temps,
	}

	if err := e.run(); err != nil {
		return nil, err
	}

	if g.jump != nil {
		e.code = append(e.code, *g.jump)
	}
	if g.halt != nil {
		e.code = append(e.code, *g.halt)
	}

	g.logger.Debug("DAGOptimize", "live", liveOut, "emitted", len(e.code))

	return e.code, nil
}

// OptimizeBlock builds a fresh graph for one block, ingests the code and
// regenerates it. The graph is returned for inspection.
func OptimizeBlock(code []instr.Inst, liveOut []string, opts ...Option) ([]instr.Inst, *Graph, error) {
	g := New(opts...)

	if err := g.IngestBlock(code); err != nil {
		return nil, g, err
	}

	out, err := g.Optimize(liveOut)
	if err != nil {
		return nil, g, err
	}

	return out, g, nil
}

func (g *Graph) isRoot(idx int) bool {
	for _, n := range g.nodes {
		if n != nil && n.dependsOn(idx) {
			return false
		}
	}
	return true
}

func (g *Graph) isActive(n *Node, live map[string]bool) bool {
	if n.IsLeaf() {
		return false
	}

	if n.Value == instr.OpTar || instr.IsConditionalJump(n.Value) {
		return true
	}

	for _, a := range n.Aliases {
		if live[a] {
			return true
		}
	}

	return false
}

// removeDeadRoots discards inactive roots until none is left. Discarding a
// root can turn its children into inactive roots.
func (g *Graph) removeDeadRoots(live map[string]bool) {
	for changed := true; changed; {
		changed = false

		for i, n := range g.nodes {
			if n == nil || !g.isRoot(i) || g.isActive(n, live) {
				continue
			}

			g.nodes[i] = nil
			changed = true
		}
	}
}

// pruneAliases drops dead names from every surviving value and names the
// values left without one. Stores have no names and conditional jumps keep
// their label.
func (g *Graph) pruneAliases(live map[string]bool) *tempNamer {
	temps := newTempNamer()
	for name := range live {
		temps.reserve(name)
	}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		if n.IsLeaf() {
			temps.reserve(n.Value)
		}
		for _, a := range n.Aliases {
			temps.reserve(a)
		}
	}

	for _, n := range g.nodes {
		if n == nil || n.Value == instr.OpTar || instr.IsConditionalJump(n.Value) {
			continue
		}

		kept := n.Aliases[:0]
		for _, a := range n.Aliases {
			if live[a] {
				kept = append(kept, a)
			}
		}
		n.Aliases = kept

		if !n.IsLeaf() && len(n.Aliases) == 0 && !g.isLeafCopy(n) {
			n.Aliases = append(n.Aliases, temps.next())
		}
	}

	return temps
}

func (g *Graph) isLeafCopy(n *Node) bool {
	if n.Value != instr.OpSet {
		return false
	}

	child := g.Node(n.Left)
	return child != nil && child.IsLeaf()
}

// isFutile reports whether n is a copy of a leaf that no live variable needs.
// Such copies produce no code; their users read the leaf directly.
func (e *emitter) isFutile(n *Node) bool {
	if !e.g.isLeafCopy(n) {
		return false
	}

	for _, a := range n.Aliases {
		if e.live[a] {
			return false
		}
	}

	return true
}

func (e *emitter) roots() []int {
	var roots, jumps []int
	for i, n := range e.g.nodes {
		if n == nil || !e.g.isRoot(i) {
			continue
		}
		if instr.IsConditionalJump(n.Value) {
			jumps = append(jumps, i)
			continue
		}
		roots = append(roots, i)
	}
	return append(roots, jumps...)
}

func (e *emitter) run() error {
	for i, n := range e.g.nodes {
		if n == nil {
			continue
		}
		if n.IsLeaf() || e.isFutile(n) {
			e.visited[i] = true
			e.futile[i] = !n.IsLeaf()
		}
	}

	steps := 0
	for _, root := range e.roots() {
		stack := []int{root}

		for len(stack) > 0 {
			steps++
			if steps > maxEmitSteps {
				return fmt.Errorf("%w: emission did not converge", ErrCorruptGraph)
			}

			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if e.visited[cur] {
				continue
			}

			waiting, err := e.waitingOn(cur)
			if err != nil {
				return err
			}

			if len(waiting) > 0 {
				e.pending[cur] = true
				stack = append(stack, cur)
				stack = append(stack, waiting...)
				continue
			}

			if err := e.emit(cur); err != nil {
				return err
			}
		}
	}

	return nil
}

// waitingOn lists the nodes that must be emitted before cur, checking in turn
// for readers of entry values cur would overwrite, earlier array operations,
// and cur's own operands.
func (e *emitter) waitingOn(cur int) ([]int, error) {
	n, err := e.g.nodeAt(cur)
	if err != nil {
		return nil, err
	}

	if waiting := e.readersOfShadowedLeaves(cur, n); len(waiting) > 0 {
		return waiting, nil
	}

	if waiting := e.earlierArrayOps(n); len(waiting) > 0 {
		return waiting, nil
	}

	var waiting []int
	for _, c := range n.children() {
		if c == NoChild {
			continue
		}
		if e.g.Node(c) == nil {
			return nil, fmt.Errorf("%w: node %d has missing child %d", ErrCorruptGraph, cur, c)
		}
		if !e.visited[c] {
			waiting = append(waiting, c)
		}
	}

	return waiting, nil
}

// readersOfShadowedLeaves returns the unemitted nodes that still read the
// entry value of a variable cur is about to assign. When one of them is itself
// waiting, the two would wait on each other forever; when one is a conditional
// jump, it must stay last. In both cases the entry value is saved in a
// temporary and its readers use that instead.
func (e *emitter) readersOfShadowedLeaves(cur int, n *Node) []int {
	var waiting []int

	for _, name := range n.Aliases {
		leaf := e.g.findLeaf(name)
		if leaf == NoChild {
			continue
		}
		if _, ok := e.spilled[leaf]; ok {
			continue
		}

		var readers []int
		e.readersOf(leaf, cur, &readers)

		blocked := false
		var unemitted []int
		for _, r := range readers {
			if e.visited[r] {
				continue
			}
			unemitted = append(unemitted, r)
			blocked = blocked || e.pending[r] || instr.IsConditionalJump(e.g.nodes[r].Value)
		}

		if blocked {
			e.spill(leaf)
			continue
		}

		waiting = append(waiting, unemitted...)
	}

	return dedupe(waiting)
}

// readersOf collects the nodes that read node idx, looking through futile
// copies, which are emitted as direct reads of their leaf.
func (e *emitter) readersOf(idx, self int, out *[]int) {
	for k, n := range e.g.nodes {
		if n == nil || k == self || !n.dependsOn(idx) {
			continue
		}
		if e.futile[k] {
			e.readersOf(k, self, out)
			continue
		}
		*out = append(*out, k)
	}
}

func (e *emitter) spill(leaf int) {
	name := e.temps.next()
	e.spilled[leaf] = name
	e.code = append(e.code, instr.New(instr.OpSet, name, e.g.nodes[leaf].Value, instr.Absent))

	e.g.logger.Debug("DAGSpill", "leaf", leaf, "value", e.g.nodes[leaf].Value, "temp", name)
}

func (e *emitter) earlierArrayOps(n *Node) []int {
	if !instr.IsArrayOp(n.Value) || n.ArrayOrder == NoOrder {
		return nil
	}

	var waiting []int
	for i, other := range e.g.nodes {
		if other == nil || e.visited[i] || !instr.IsArrayOp(other.Value) {
			continue
		}
		if other.ArrayOrder != NoOrder && other.ArrayOrder < n.ArrayOrder {
			waiting = append(waiting, i)
		}
	}

	return waiting
}

func (e *emitter) emit(cur int) error {
	n := e.g.nodes[cur]

	if n.Value == instr.OpTar {
		base, err := e.operandText(n.Left)
		if err != nil {
			return err
		}
		index, err := e.operandText(n.Right)
		if err != nil {
			return err
		}
		value, err := e.operandText(n.Third)
		if err != nil {
			return err
		}

		e.code = append(e.code, instr.New(instr.OpTar, base, index, value))
		e.visited[cur] = true
		return nil
	}

	if len(n.Aliases) == 0 {
		return fmt.Errorf("%w: node %d has no name to emit", ErrCorruptGraph, cur)
	}

	src1, err := e.operandText(n.Left)
	if err != nil {
		return err
	}
	src2, err := e.operandText(n.Right)
	if err != nil {
		return err
	}

	dst := n.Aliases[0]
	e.code = append(e.code, instr.New(n.Value, dst, src1, src2))
	for _, a := range n.Aliases[1:] {
		e.code = append(e.code, instr.New(instr.OpSet, a, dst, instr.Absent))
	}

	e.visited[cur] = true
	return nil
}

// operandText names the value of child idx in emitted code: a leaf's own
// text, the leaf under a futile copy, or the first alias of any other node.
func (e *emitter) operandText(idx int) (string, error) {
	if idx == NoChild {
		return instr.Absent, nil
	}

	n, err := e.g.nodeAt(idx)
	if err != nil {
		return "", err
	}

	if n.IsLeaf() {
		return e.leafText(idx), nil
	}

	if e.futile[idx] {
		if _, err := e.g.nodeAt(n.Left); err != nil {
			return "", err
		}
		return e.leafText(n.Left), nil
	}

	if len(n.Aliases) == 0 {
		return "", fmt.Errorf("%w: operand node %d has no name", ErrCorruptGraph, idx)
	}

	return n.Aliases[0], nil
}

func (e *emitter) leafText(idx int) string {
	if name, ok := e.spilled[idx]; ok {
		return name
	}
	return e.g.nodes[idx].Value
}

func dedupe(xs []int) []int {
	if len(xs) < 2 {
		return xs
	}

	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// tempNamer hands out S0, S1, ... skipping names already used in the block.
type tempNamer struct {
	used   map[string]bool
	serial int
}

func newTempNamer() *tempNamer {
	return &tempNamer{used: make(map[string]bool)}
}

func (t *tempNamer) reserve(name string) {
	t.used[name] = true
}

func (t *tempNamer) next() string {
	for {
		name := fmt.Sprintf("S%d", t.serial)
		t.serial++
		if !t.used[name] {
			t.used[name] = true
			return name
		}
	}
}
