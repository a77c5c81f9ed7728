package instr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrArithmeticFault is returned when evaluating a division or modulo by zero.
var ErrArithmeticFault = errors.New("arithmetic fault")

// ParseLiteral recognises an integer literal operand. A literal is an optional
// leading minus sign followed by decimal digits that fit in an int64.
func ParseLiteral(s string) (int64, bool) {
	digits := s
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsLiteral reports whether s is an integer literal.
func IsLiteral(s string) bool {
	_, ok := ParseLiteral(s)
	return ok
}

// FormatLiteral renders an integer as operand text.
func FormatLiteral(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Eval applies an arithmetic opcode to two integers. Division truncates toward
// zero and overflow wraps.
func Eval(op string, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, fmt.Errorf("%w: %d / 0", ErrArithmeticFault, a)
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return 0, fmt.Errorf("%w: %d %% 0", ErrArithmeticFault, a)
		}
		return a % b, nil
	default:
		return 0, fmt.Errorf("opcode %s is not arithmetic", op)
	}
}

// Compare evaluates the relation of a conditional jump opcode.
func Compare(op string, a, b int64) (bool, error) {
	switch op {
	case OpJgt:
		return a > b, nil
	case OpJge:
		return a >= b, nil
	case OpJlt:
		return a < b, nil
	case OpJle:
		return a <= b, nil
	case OpJeq:
		return a == b, nil
	case OpJne:
		return a != b, nil
	default:
		return false, fmt.Errorf("opcode %s is not a conditional jump", op)
	}
}
