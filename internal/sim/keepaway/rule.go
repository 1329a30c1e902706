package keepaway

import (
	"fmt"
	"math/big"
	"strconv"
)

type Op int

const (
	OpAdd Op = iota + 1
	OpMul
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpMul:
		return "*"
	default:
		return "?"
	}
}

func parseOp(s string) (Op, bool) {
	switch s {
	case "+":
		return OpAdd, true
	case "*":
		return OpMul, true
	}
	return 0, false
}

// Operand is either a literal or the item's own pre-inspection value.
type Operand struct {
	Self  bool
	Value int64
}

// Old refers to the item's own value ("old").
var Old = Operand{Self: true}

func Literal(v int64) Operand { return Operand{Value: v} }

func (o Operand) String() string {
	if o.Self {
		return "old"
	}
	return strconv.FormatInt(o.Value, 10)
}

type Rule struct {
	Op      Op
	Operand Operand
}

func (r Rule) String() string {
	return fmt.Sprintf("new = old %s %s", r.Op, r.Operand)
}

func (r Rule) valid() bool {
	if r.Op != OpAdd && r.Op != OpMul {
		return false
	}
	return r.Operand.Self || r.Operand.Value >= 0
}

// apply stores the inspected value of old in dst. lit is the literal operand
// cached by the simulator and is ignored for self-referential rules.
func (r Rule) apply(dst, old, lit *big.Int) {
	operand := lit
	if r.Operand.Self {
		operand = old
	}
	switch r.Op {
	case OpAdd:
		dst.Add(old, operand)
	case OpMul:
		dst.Mul(old, operand)
	}
}

// Mode selects how a worry level is kept in check after inspection.
type Mode int

const (
	// DivideAndFloor divides by the relief divisor, truncating toward zero.
	DivideAndFloor Mode = iota + 1
	// ModulusBound reduces modulo the common modulus.
	ModulusBound
)

func (m Mode) String() string {
	switch m {
	case DivideAndFloor:
		return "divide-and-floor"
	case ModulusBound:
		return "modulus-bound"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) valid() bool { return m == DivideAndFloor || m == ModulusBound }

func ParseMode(s string) (Mode, error) {
	switch s {
	case "relief", "divide-and-floor":
		return DivideAndFloor, nil
	case "bounded", "modulus-bound":
		return ModulusBound, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type Actor struct {
	Rule    Rule
	Test    int64
	IfTrue  int
	IfFalse int
}

// Notes is the parsed input: actor definitions and their starting items.
type Notes struct {
	Actors []Actor
	Items  [][]*big.Int
}
