// Package instr defines the quadruple instruction record consumed and produced
// by the block optimizer.
package instr

import "fmt"

// Absent marks an operand slot that carries no value.
const Absent = "-"

// Opcode labels.
const (
	OpSet  = "SET"
	OpAdd  = "ADD"
	OpSub  = "SUB"
	OpMul  = "MUL"
	OpDiv  = "DIV"
	OpMod  = "MOD"
	OpFar  = "FAR" // dst = base[index]
	OpTar  = "TAR" // base[index] = value
	OpJmp  = "JMP"
	OpJgt  = "JGT"
	OpJge  = "JGE"
	OpJlt  = "JLT"
	OpJle  = "JLE"
	OpJeq  = "JEQ"
	OpJne  = "JNE"
	OpHalt = "HALT"
)

// Inst is a quadruple (op, dst, src1, src2).
//
// The operand roles depend on the opcode:
//
//	SET  a  x  -    a = x
//	ADD  a  x  y    a = x + y
//	FAR  a  b  i    a = b [ i ]
//	TAR  b  i  x    b [ i ] = x
//	JMP  L  -  -    !: L
//	JGT  L  x  y    ? x > y : L
//	HALT -  -  -    HALT
type Inst struct {
	Op   string
	Dst  string
	Src1 string
	Src2 string
}

// New creates an instruction, filling empty operands with Absent.
func New(op, dst, src1, src2 string) Inst {
	return Inst{
		Op:   op,
		Dst:  orAbsent(dst),
		Src1: orAbsent(src1),
		Src2: orAbsent(src2),
	}
}

func orAbsent(s string) string {
	if s == "" {
		return Absent
	}
	return s
}

func (i Inst) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s)", i.Op, i.Dst, i.Src1, i.Src2)
}

// Class groups instructions by the shape of their ingestion rule.
type Class int

const (
	ClassBinary Class = iota
	ClassCopy
	ClassUnary
	ClassStore
	ClassControl
)

func (c Class) String() string {
	switch c {
	case ClassCopy:
		return "copy"
	case ClassUnary:
		return "unary"
	case ClassStore:
		return "store"
	case ClassControl:
		return "control"
	default:
		return "binary"
	}
}

// Classify derives the class of an instruction from its opcode and the Absent
// markers on its operands. It never fails: anything it does not recognise is
// binary, including malformed instructions with missing operands.
//
// Conditional jumps are binary; only JMP and HALT are control.
func Classify(i Inst) Class {
	switch i.Op {
	case OpSet:
		return ClassCopy
	case OpTar:
		return ClassStore
	case OpJmp, OpHalt:
		return ClassControl
	}

	if i.Src1 == Absent && i.Src2 != Absent {
		return ClassUnary
	}

	return ClassBinary
}

// IsArithmetic reports whether op is one of the foldable integer operations.
func IsArithmetic(op string) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsConditionalJump reports whether op is a conditional branch.
func IsConditionalJump(op string) bool {
	switch op {
	case OpJgt, OpJge, OpJlt, OpJle, OpJeq, OpJne:
		return true
	}
	return false
}

// IsArrayOp reports whether op reads or writes array memory.
func IsArrayOp(op string) bool {
	return op == OpFar || op == OpTar
}

// Known reports whether op is one of the opcodes listed above.
func Known(op string) bool {
	switch op {
	case OpSet, OpFar, OpTar, OpJmp, OpHalt:
		return true
	}
	return IsArithmetic(op) || IsConditionalJump(op)
}
