package verify

import (
	"fmt"

	"github.com/sarchlab/quadopt/instr"
	valgen "github.com/sarchlab/quadopt/util"
)

// ExitKind says how a block finished.
type ExitKind int

const (
	ExitFallThrough ExitKind = iota
	ExitJump
	ExitHalt
)

// Exit records where control goes after a block.
type Exit struct {
	Kind  ExitKind
	Label string
}

func (e Exit) String() string {
	switch e.Kind {
	case ExitJump:
		return "jump " + e.Label
	case ExitHalt:
		return "halt"
	}
	return "fall through"
}

// Machine executes quadruple blocks over int64 scalars and sparse arrays.
type Machine struct {
	scalars map[string]int64
	memory  map[string]map[int64]int64
	gen     valgen.Gen

	// Cells, when set, supplies the entry value of array cells never written.
	// Otherwise they are drawn from the generator.
	Cells func(base string, index int64) int64
}

// NewMachine creates a machine whose unset scalars are drawn from gen on first
// read.
func NewMachine(gen valgen.Gen) *Machine {
	return &Machine{
		scalars: make(map[string]int64),
		memory:  make(map[string]map[int64]int64),
		gen:     gen,
	}
}

// Set writes a scalar.
func (m *Machine) Set(name string, v int64) {
	m.scalars[name] = v
}

// Value reads an operand: a literal's value, or the current value of a
// scalar.
func (m *Machine) Value(name string) int64 {
	if v, ok := instr.ParseLiteral(name); ok {
		return v
	}

	v, ok := m.scalars[name]
	if !ok {
		v = m.gen()
		m.scalars[name] = v
	}
	return v
}

// Store writes one array cell.
func (m *Machine) Store(base string, index, v int64) {
	cells, ok := m.memory[base]
	if !ok {
		cells = make(map[int64]int64)
		m.memory[base] = cells
	}
	cells[index] = v
}

// Load reads one array cell.
func (m *Machine) Load(base string, index int64) int64 {
	if v, ok := m.memory[base][index]; ok {
		return v
	}

	var v int64
	if m.Cells != nil {
		v = m.Cells(base, index)
	} else {
		v = m.gen()
	}
	m.Store(base, index, v)
	return v
}

// Run executes code until it ends, jumps or halts. It fails on an unknown
// opcode, on division by zero and when more than maxSteps instructions run.
func (m *Machine) Run(code []instr.Inst, maxSteps int) (Exit, error) {
	for pc, i := range code {
		if pc >= maxSteps {
			return Exit{}, fmt.Errorf("block exceeded %d steps", maxSteps)
		}

		exit, done, err := m.step(i)
		if err != nil {
			return Exit{}, fmt.Errorf("#%d %s: %w", pc, i, err)
		}
		if done {
			return exit, nil
		}
	}

	return Exit{Kind: ExitFallThrough}, nil
}

func (m *Machine) step(i instr.Inst) (Exit, bool, error) {
	switch {
	case i.Op == instr.OpHalt:
		return Exit{Kind: ExitHalt}, true, nil

	case i.Op == instr.OpJmp:
		return Exit{Kind: ExitJump, Label: i.Dst}, true, nil

	case instr.IsConditionalJump(i.Op):
		taken, err := instr.Compare(i.Op, m.Value(i.Src1), m.Value(i.Src2))
		if err != nil {
			return Exit{}, false, err
		}
		if taken {
			return Exit{Kind: ExitJump, Label: i.Dst}, true, nil
		}

	case i.Op == instr.OpSet:
		m.Set(i.Dst, m.Value(i.Src1))

	case i.Op == instr.OpFar:
		m.Set(i.Dst, m.Load(i.Src1, m.Value(i.Src2)))

	case i.Op == instr.OpTar:
		m.Store(i.Dst, m.Value(i.Src1), m.Value(i.Src2))

	case instr.IsArithmetic(i.Op):
		v, err := instr.Eval(i.Op, m.Value(i.Src1), m.Value(i.Src2))
		if err != nil {
			return Exit{}, false, err
		}
		m.Set(i.Dst, v)

	default:
		return Exit{}, false, fmt.Errorf("unknown opcode %q", i.Op)
	}

	return Exit{}, false, nil
}
