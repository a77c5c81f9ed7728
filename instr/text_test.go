package instr_test

import (
	"errors"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/instr"
)

var _ = Describe("Textual form", func() {
	DescribeTable("parses every line shape",
		func(line string, want instr.Inst) {
			got, err := instr.Parse(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("copy", "a = b", instr.New("SET", "a", "b", "-")),
		Entry("negative literal copy", "a = -3", instr.New("SET", "a", "-3", "-")),
		Entry("add", "a = b + 1", instr.New("ADD", "a", "b", "1")),
		Entry("sub", "a = b - c", instr.New("SUB", "a", "b", "c")),
		Entry("mod", "a = b % c", instr.New("MOD", "a", "b", "c")),
		Entry("array read", "t = arr [ i ]", instr.New("FAR", "t", "arr", "i")),
		Entry("array write", "arr [ i ] = t", instr.New("TAR", "arr", "i", "t")),
		Entry("jump", "!: L3", instr.New("JMP", "L3", "-", "-")),
		Entry("conditional jump", "? x >= 10 : L2", instr.New("JGE", "L2", "x", "10")),
		Entry("halt", "HALT", instr.New("HALT", "-", "-", "-")),
		Entry("quoted", `"a = b * c" `, instr.New("MUL", "a", "b", "c")),
	)

	It("rejects unknown lines", func() {
		_, err := instr.Parse("call f")
		Expect(errors.Is(err, instr.ErrUnknownSyntax)).To(BeTrue())

		_, err = instr.ParseBlock([]string{"a = b", "goto"})
		Expect(err).To(MatchError(ContainSubstring("line 2")))
	})

	It("formats back to the same text", func() {
		lines := []string{
			"a = b",
			"a = b + 1",
			"t = arr [ i ]",
			"arr [ i ] = t",
			"!: L3",
			"? x != y : L1",
			"HALT",
		}

		code, err := instr.ParseBlock(lines)
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(lines, instr.FormatBlock(code))).To(BeEmpty())
	})
})
