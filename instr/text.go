package instr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownSyntax is returned when a line matches no three-address form.
var ErrUnknownSyntax = errors.New("unknown three-address syntax")

const operand = `(-?\w+)`

var arithSymbols = map[string]string{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
}

var relSymbols = map[string]string{
	">": OpJgt, ">=": OpJge, "<": OpJlt, "<=": OpJle, "==": OpJeq, "!=": OpJne,
}

type textRule struct {
	re      *regexp.Regexp
	convert func(m []string) Inst
}

var textRules = []textRule{
	{
		re: regexp.MustCompile(`^(\w+)\s*=\s*` + operand + `$`),
		convert: func(m []string) Inst {
			return New(OpSet, m[1], m[2], Absent)
		},
	},
	{
		re: regexp.MustCompile(`^(\w+)\s*=\s*` + operand + `\s*([-+*/%])\s*` + operand + `$`),
		convert: func(m []string) Inst {
			return New(arithSymbols[m[3]], m[1], m[2], m[4])
		},
	},
	{
		re: regexp.MustCompile(`^(\w+)\s*=\s*(\w+)\s*\[\s*` + operand + `\s*\]$`),
		convert: func(m []string) Inst {
			return New(OpFar, m[1], m[2], m[3])
		},
	},
	{
		re: regexp.MustCompile(`^(\w+)\s*\[\s*` + operand + `\s*\]\s*=\s*` + operand + `$`),
		convert: func(m []string) Inst {
			return New(OpTar, m[1], m[2], m[3])
		},
	},
	{
		re: regexp.MustCompile(`^!:\s*(\w+)$`),
		convert: func(m []string) Inst {
			return New(OpJmp, m[1], Absent, Absent)
		},
	},
	{
		re: regexp.MustCompile(`^\?\s*` + operand + `\s*(>=|<=|==|!=|>|<)\s*` + operand + `\s*:\s*(\w+)$`),
		convert: func(m []string) Inst {
			return New(relSymbols[m[2]], m[4], m[1], m[3])
		},
	},
}

// Parse converts one line of the textual three-address form into a quadruple.
// Surrounding blanks and double quotes are ignored.
func Parse(line string) (Inst, error) {
	line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"`))

	if line == OpHalt {
		return New(OpHalt, Absent, Absent, Absent), nil
	}

	for _, rule := range textRules {
		if m := rule.re.FindStringSubmatch(line); m != nil {
			return rule.convert(m), nil
		}
	}

	return Inst{}, fmt.Errorf("%w: %q", ErrUnknownSyntax, line)
}

// ParseBlock parses every line of a basic block.
func ParseBlock(lines []string) ([]Inst, error) {
	code := make([]Inst, 0, len(lines))
	for n, line := range lines {
		inst, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		code = append(code, inst)
	}
	return code, nil
}

// Format renders a quadruple in the textual three-address form. Opcodes with
// no textual form render as an empty string.
func Format(i Inst) string {
	switch {
	case i.Op == OpHalt:
		return OpHalt
	case i.Op == OpSet:
		return i.Dst + " = " + i.Src1
	case IsArithmetic(i.Op):
		return i.Dst + " = " + i.Src1 + " " + symbolOf(arithSymbols, i.Op) + " " + i.Src2
	case i.Op == OpFar:
		return i.Dst + " = " + i.Src1 + " [ " + i.Src2 + " ]"
	case i.Op == OpTar:
		return i.Dst + " [ " + i.Src1 + " ] = " + i.Src2
	case i.Op == OpJmp:
		return "!: " + i.Dst
	case IsConditionalJump(i.Op):
		return "? " + i.Src1 + " " + symbolOf(relSymbols, i.Op) + " " + i.Src2 + " : " + i.Dst
	}
	return ""
}

// FormatBlock renders every instruction of a block.
func FormatBlock(code []Inst) []string {
	lines := make([]string, 0, len(code))
	for _, i := range code {
		lines = append(lines, Format(i))
	}
	return lines
}

func symbolOf(table map[string]string, op string) string {
	for sym, o := range table {
		if o == op {
			return sym
		}
	}
	return "?"
}
