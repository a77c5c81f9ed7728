package dag_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/dag"
	"github.com/sarchlab/quadopt/instr"
)

func mustParse(lines ...string) []instr.Inst {
	code, err := instr.ParseBlock(lines)
	Expect(err).NotTo(HaveOccurred())
	return code
}

var _ = Describe("Graph", func() {
	var g *dag.Graph

	BeforeEach(func() {
		g = dag.New()
	})

	It("should create leaves for entry values and a node for the operation", func() {
		created, err := g.Ingest(instr.New(instr.OpAdd, "a", "b", "c"))
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(Equal([]int{0, 1, 2}))

		n := g.Node(2)
		Expect(n.Value).To(Equal(instr.OpAdd))
		Expect(n.Left).To(Equal(0))
		Expect(n.Right).To(Equal(1))
		Expect(n.Aliases).To(Equal([]string{"a"}))
		Expect(g.Node(0).IsLeaf()).To(BeTrue())
	})

	It("should reuse an existing node for a repeated expression", func() {
		Expect(g.IngestBlock(mustParse("a = b + c", "d = b + c"))).To(Succeed())

		Expect(g.Len()).To(Equal(3))
		Expect(g.Node(2).Aliases).To(Equal([]string{"a", "d"}))
	})

	It("should move a reassigned name to its new value", func() {
		Expect(g.IngestBlock(mustParse("a = b + c", "a = b * c"))).To(Succeed())

		Expect(g.Node(2).Aliases).To(BeEmpty())
		Expect(g.Node(3).Aliases).To(Equal([]string{"a"}))
	})

	It("should give a copied name to the source node", func() {
		Expect(g.IngestBlock(mustParse("a = b + c", "d = a"))).To(Succeed())

		Expect(g.Len()).To(Equal(3))
		Expect(g.Node(2).Aliases).To(ConsistOf("a", "d"))
	})

	It("should fold arithmetic on literals into a copy of the result", func() {
		Expect(g.IngestBlock(mustParse("x = 2", "y = 3", "z = x + y"))).To(Succeed())

		last := g.Node(g.Len() - 1)
		Expect(last.Value).To(Equal(instr.OpSet))
		Expect(last.Aliases).To(Equal([]string{"z"}))
		Expect(g.Node(last.Left).Value).To(Equal("5"))
	})

	It("should report division by a literal zero", func() {
		_, err := g.Ingest(instr.New(instr.OpDiv, "x", "4", "0"))
		Expect(errors.Is(err, dag.ErrArithmeticFault)).To(BeTrue())
	})

	It("should kill reads of an array written to", func() {
		Expect(g.IngestBlock(mustParse(
			"t1 = arr [ i ]",
			"arr [ j ] = v",
			"t2 = arr [ i ]",
		))).To(Succeed())

		Expect(g.Node(2).Killed).To(BeTrue())
		Expect(g.Node(2).ArrayOrder).To(Equal(0))
		Expect(g.Node(5).Value).To(Equal(instr.OpTar))
		Expect(g.Node(5).ArrayOrder).To(Equal(1))
		Expect(g.Node(6).Killed).To(BeFalse())
		Expect(g.Node(6).ArrayOrder).To(Equal(2))

		s := g.Stats()
		Expect(s.Killed).To(Equal(1))
		Expect(s.Stores).To(Equal(1))
	})

	It("should deduplicate against the value computed after a kill", func() {
		Expect(g.IngestBlock(mustParse(
			"t1 = arr [ i ]",
			"arr [ j ] = v",
			"t2 = arr [ i ]",
			"t3 = arr [ i ]",
		))).To(Succeed())

		Expect(g.Node(6).Aliases).To(Equal([]string{"t2", "t3"}))
	})

	It("should let a copy of a killed read keep the value read before the store", func() {
		Expect(g.IngestBlock(mustParse(
			"t1 = arr [ i ]",
			"arr [ j ] = v",
			"x = t1",
		))).To(Succeed())

		Expect(g.Len()).To(Equal(6))
		Expect(g.Node(2).Killed).To(BeTrue())
		Expect(g.Node(2).Aliases).To(Equal([]string{"t1", "x"}))

		out, err := g.Optimize([]string{"x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(instr.FormatBlock(out)).To(Equal([]string{"x = arr [ i ]", "arr [ j ] = v"}))
	})

	It("should ingest a unary operation over its second operand", func() {
		created, err := g.Ingest(instr.New("NEG", "a", instr.Absent, "b"))
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(Equal([]int{0, 1}))

		n := g.Node(1)
		Expect(n.Value).To(Equal("NEG"))
		Expect(n.Left).To(Equal(dag.NoChild))
		Expect(n.Right).To(Equal(0))
		Expect(n.Aliases).To(Equal([]string{"a"}))
	})

	It("should keep jumps and halts out of the node arena", func() {
		Expect(g.IngestBlock(mustParse("!: L1", "HALT"))).To(Succeed())
		Expect(g.Len()).To(Equal(0))
	})

	It("should render the node table", func() {
		Expect(g.IngestBlock(mustParse("a = b + c"))).To(Succeed())

		out := g.String()
		Expect(out).To(ContainSubstring("ALIASES"))
		Expect(out).To(ContainSubstring("ADD"))
		Expect(strings.Count(out, "\n")).To(BeNumerically(">", 3))
	})
})
