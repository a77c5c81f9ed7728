package verify

import (
	"fmt"

	"github.com/sarchlab/quadopt/instr"
)

// Lint performs static checks on one basic block.
// STRUCT issues flag instructions the optimizer cannot ingest correctly;
// LITERAL issues flag assignments whose target is a number.
// Returns a list of issues found, or an empty list if there are none.
func Lint(code []instr.Inst) []Issue {
	var issues []Issue

	firstControl := -1
	for idx, i := range code {
		if !instr.Known(i.Op) {
			issues = append(issues, Issue{
				Type:    IssueStruct,
				Index:   idx,
				Op:      i.Op,
				Message: fmt.Sprintf("unknown opcode %q", i.Op),
			})
			continue
		}

		for _, slot := range missingOperands(i) {
			issues = append(issues, Issue{
				Type:    IssueStruct,
				Index:   idx,
				Op:      i.Op,
				Message: fmt.Sprintf("missing %s operand", slot),
				Details: map[string]interface{}{"slot": slot},
			})
		}

		if isControl(i.Op) {
			if firstControl < 0 {
				firstControl = idx
			}
		} else if firstControl >= 0 {
			// Only control transfers may follow a control transfer.
			issues = append(issues, Issue{
				Type:    IssueStruct,
				Index:   idx,
				Op:      i.Op,
				Message: fmt.Sprintf("instruction after control transfer at #%d", firstControl),
				Details: map[string]interface{}{"control": firstControl},
			})
		}

		if assignsTo(i) && instr.IsLiteral(i.Dst) {
			issues = append(issues, Issue{
				Type:    IssueLiteral,
				Index:   idx,
				Op:      i.Op,
				Message: fmt.Sprintf("assignment into literal %s", i.Dst),
			})
		}
	}

	return issues
}

func isControl(op string) bool {
	return op == instr.OpJmp || op == instr.OpHalt || instr.IsConditionalJump(op)
}

func assignsTo(i instr.Inst) bool {
	return i.Op == instr.OpSet || i.Op == instr.OpFar || i.Op == instr.OpTar ||
		instr.IsArithmetic(i.Op)
}

func missingOperands(i instr.Inst) []string {
	var want []string
	switch {
	case i.Op == instr.OpHalt:
	case i.Op == instr.OpJmp:
		want = []string{"dst"}
	case i.Op == instr.OpSet:
		want = []string{"dst", "src1"}
	default:
		want = []string{"dst", "src1", "src2"}
	}

	slots := map[string]string{"dst": i.Dst, "src1": i.Src1, "src2": i.Src2}

	var missing []string
	for _, slot := range want {
		if slots[slot] == instr.Absent {
			missing = append(missing, slot)
		}
	}
	return missing
}
