package dag

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/instr"
)

var _ = Describe("Corrupt graph", func() {
	It("should report a dangling child", func() {
		g := New()
		Expect(g.IngestBlock([]instr.Inst{instr.New(instr.OpAdd, "a", "b", "c")})).To(Succeed())

		g.nodes[0] = nil

		_, err := g.Optimize([]string{"a"})
		Expect(errors.Is(err, ErrCorruptGraph)).To(BeTrue())
	})

	It("should report a child index outside the arena", func() {
		g := New()
		Expect(g.IngestBlock([]instr.Inst{instr.New(instr.OpAdd, "a", "b", "c")})).To(Succeed())

		g.nodes[2].Right = 17

		_, err := g.Optimize([]string{"a"})
		Expect(errors.Is(err, ErrCorruptGraph)).To(BeTrue())
	})
})
