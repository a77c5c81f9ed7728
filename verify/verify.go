// Package verify checks quadruple blocks before and after optimization.
//
// It has three parts:
//
//  1. Lint (lint.go): structural checks on a single block
//     - STRUCT: unknown opcodes, missing operands, control transfer before
//     the end of the block
//     - LITERAL: assignments whose target is a literal
//
//  2. Machine (machine.go): a small interpreter that runs one block over
//     integer scalars and sparse array memory. Values the block reads before
//     writing are drawn from a generator.
//
//  3. Equivalent: runs the original and the optimized block on the same
//     inputs and compares what a successor block could observe, namely the
//     live-out scalars, array memory and where control goes.
//
// # Usage Example
//
//	issues := verify.Lint(code)
//	for _, issue := range issues {
//	    log.Printf("[%s] #%d: %s", issue.Type, issue.Index, issue.Message)
//	}
//
//	if err := verify.Equivalent(code, optimized, liveOut, 32, 1); err != nil {
//	    var m *verify.Mismatch
//	    if errors.As(err, &m) {
//	        log.Printf("trial %d differs on %s", m.Trial, m.What)
//	    }
//	}
package verify

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/sarchlab/quadopt/instr"
	valgen "github.com/sarchlab/quadopt/util"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct  IssueType = "STRUCT"  // Malformed instruction or misplaced control transfer
	IssueLiteral IssueType = "LITERAL" // Assignment into a literal
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // STRUCT or LITERAL
	Index   int                    // Instruction index in the block (-1 if not applicable)
	Op      string                 // Opcode of the offending instruction
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] #%d %s: %s", i.Type, i.Index, i.Op, i.Message)
}

// inputBound limits generated inputs to a small range, so that array indices
// computed from them collide often.
const inputBound = 8

const maxSteps = 1 << 16

// Mismatch describes the first observable difference found by Equivalent.
type Mismatch struct {
	Trial int
	What  string // "scalar a", "memory arr[3]", "exit" or "fault"
	Want  string
	Got   string

	Inputs map[string]int64
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("trial %d: %s: want %s, got %s (inputs %s)",
		m.Trial, m.What, m.Want, m.Got, formatInputs(m.Inputs))
}

// Equivalent runs orig and opt on identical inputs for the given number of
// trials and reports the first difference in the live-out scalars, in array
// memory or in the exit. Trials in which orig itself faults are skipped.
func Equivalent(orig, opt []instr.Inst, liveOut []string, trials int, seed int64) error {
	names := readNames(orig, opt, liveOut)

	for trial := 0; trial < trials; trial++ {
		trialSeed := seed + int64(trial)

		inputs := make(map[string]int64, len(names))
		gen := valgen.MakeRandomGen(trialSeed, inputBound)
		for _, name := range names {
			inputs[name] = gen()
		}

		want := newTrialMachine(inputs, trialSeed)
		wantExit, wantErr := want.Run(orig, maxSteps)
		if wantErr != nil {
			continue
		}

		got := newTrialMachine(inputs, trialSeed)
		gotExit, gotErr := got.Run(opt, maxSteps)
		if gotErr != nil {
			return &Mismatch{Trial: trial, What: "fault", Want: "none", Got: gotErr.Error(), Inputs: inputs}
		}

		if wantExit != gotExit {
			return &Mismatch{Trial: trial, What: "exit", Want: wantExit.String(), Got: gotExit.String(), Inputs: inputs}
		}

		for _, name := range liveOut {
			w, g := want.Value(name), got.Value(name)
			if w != g {
				return &Mismatch{
					Trial: trial, What: "scalar " + name,
					Want: fmt.Sprint(w), Got: fmt.Sprint(g), Inputs: inputs,
				}
			}
		}

		if m := compareMemory(want, got); m != nil {
			m.Trial = trial
			m.Inputs = inputs
			return m
		}
	}

	return nil
}

func newTrialMachine(inputs map[string]int64, seed int64) *Machine {
	m := NewMachine(valgen.MakeConstGen(0))
	for name, v := range inputs {
		m.Set(name, v)
	}
	m.Cells = func(base string, index int64) int64 {
		return cellValue(seed, base, index)
	}
	return m
}

// cellValue gives every array cell a fixed entry value per trial, independent
// of the order in which cells are first read.
func cellValue(seed int64, base string, index int64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%d", seed, base, index)
	return int64(h.Sum64()%(2*inputBound+1)) - inputBound
}

func compareMemory(want, got *Machine) *Mismatch {
	for _, base := range unionKeys(want.memory, got.memory) {
		cells := map[int64]bool{}
		for idx := range want.memory[base] {
			cells[idx] = true
		}
		for idx := range got.memory[base] {
			cells[idx] = true
		}

		indices := make([]int64, 0, len(cells))
		for idx := range cells {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		for _, idx := range indices {
			w, g := want.Load(base, idx), got.Load(base, idx)
			if w != g {
				return &Mismatch{
					What: fmt.Sprintf("memory %s[%d]", base, idx),
					Want: fmt.Sprint(w), Got: fmt.Sprint(g),
				}
			}
		}
	}
	return nil
}

// readNames lists, in sorted order, every scalar either block may read.
func readNames(orig, opt []instr.Inst, liveOut []string) []string {
	set := map[string]bool{}
	add := func(s string) {
		if s != instr.Absent && !instr.IsLiteral(s) {
			set[s] = true
		}
	}

	for _, code := range [][]instr.Inst{orig, opt} {
		for _, i := range code {
			for _, s := range operandsRead(i) {
				add(s)
			}
		}
	}
	for _, s := range liveOut {
		add(s)
	}

	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

func operandsRead(i instr.Inst) []string {
	switch {
	case i.Op == instr.OpTar:
		return []string{i.Src1, i.Src2}
	case i.Op == instr.OpFar:
		return []string{i.Src2}
	case i.Op == instr.OpJmp || i.Op == instr.OpHalt:
		return nil
	}
	return []string{i.Src1, i.Src2}
}

func unionKeys[V any](a, b map[string]V) []string {
	set := map[string]bool{}
	for k := range a {
		set[k] = true
	}
	for k := range b {
		set[k] = true
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatInputs(inputs map[string]int64) string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, inputs[name]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
