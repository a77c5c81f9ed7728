package instr_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/instr"
)

var _ = Describe("Classify", func() {
	DescribeTable("maps instructions to classes",
		func(i instr.Inst, want instr.Class) {
			Expect(instr.Classify(i)).To(Equal(want))
		},
		Entry("copy", instr.New("SET", "a", "b", "-"), instr.ClassCopy),
		Entry("store", instr.New("TAR", "arr", "i", "x"), instr.ClassStore),
		Entry("arithmetic", instr.New("ADD", "a", "b", "c"), instr.ClassBinary),
		Entry("array read", instr.New("FAR", "a", "arr", "i"), instr.ClassBinary),
		Entry("conditional jump", instr.New("JGT", "L1", "x", "y"), instr.ClassBinary),
		Entry("jump", instr.New("JMP", "L1", "-", "-"), instr.ClassControl),
		Entry("halt", instr.New("HALT", "-", "-", "-"), instr.ClassControl),
		Entry("first operand absent", instr.New("NEG", "a", "-", "b"), instr.ClassUnary),
		Entry("malformed", instr.New("???", "a", "-", "-"), instr.ClassBinary),
	)

	It("fills empty operands with the absent marker", func() {
		i := instr.New("HALT", "", "", "")
		Expect(i.Dst).To(Equal(instr.Absent))
		Expect(i.Src1).To(Equal(instr.Absent))
		Expect(i.Src2).To(Equal(instr.Absent))
	})
})

var _ = Describe("Literals", func() {
	It("recognises decimal integers", func() {
		v, ok := instr.ParseLiteral("42")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(42)))

		v, ok = instr.ParseLiteral("-7")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(-7)))
	})

	It("rejects names, the absent marker and empty text", func() {
		Expect(instr.IsLiteral("x1")).To(BeFalse())
		Expect(instr.IsLiteral("-")).To(BeFalse())
		Expect(instr.IsLiteral("")).To(BeFalse())
		Expect(instr.IsLiteral("99999999999999999999")).To(BeFalse())
	})
})

var _ = Describe("Eval", func() {
	It("truncates integer division", func() {
		v, err := instr.Eval(instr.OpDiv, -7, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(-3)))

		v, err = instr.Eval(instr.OpMod, -7, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(-1)))
	})

	It("reports division and modulo by zero as arithmetic faults", func() {
		_, err := instr.Eval(instr.OpDiv, 1, 0)
		Expect(errors.Is(err, instr.ErrArithmeticFault)).To(BeTrue())

		_, err = instr.Eval(instr.OpMod, 1, 0)
		Expect(errors.Is(err, instr.ErrArithmeticFault)).To(BeTrue())
	})

	It("evaluates jump relations", func() {
		taken, err := instr.Compare(instr.OpJle, 3, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(taken).To(BeTrue())

		_, err = instr.Compare(instr.OpAdd, 1, 2)
		Expect(err).To(HaveOccurred())
	})
})
