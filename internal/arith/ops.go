// Package arith implements the vectorized operators: arithmetic, comparison and logic
// on atomic vectors, with recycling, NA propagation, attribute propagation and per
// call-site specialization.
package arith

// Op is a binary operator.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpIntDiv

	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe

	OpAnd
	OpOr

	OpMatMul

	numOps
)

var opNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpPow:    "^",
	OpMod:    "%%",
	OpIntDiv: "%/%",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpGt:     ">",
	OpLe:     "<=",
	OpGe:     ">=",
	OpAnd:    "&",
	OpOr:     "|",
	OpMatMul: "%*%",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?"
}

func (o Op) IsArithmetic() bool { return o <= OpIntDiv }

func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }

func (o Op) IsLogic() bool { return o == OpAnd || o == OpOr }

// LookupOp maps an operator token to its Op.
func LookupOp(name string) (Op, bool) {
	switch name {
	case "**":
		return OpPow, true
	}
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	UnaryMinus UnaryOp = iota
	UnaryPlus
	UnaryNot
)

func (o UnaryOp) String() string {
	switch o {
	case UnaryMinus:
		return "-"
	case UnaryPlus:
		return "+"
	default:
		return "!"
	}
}

// LookupUnaryOp maps a prefix operator token to its UnaryOp.
func LookupUnaryOp(name string) (UnaryOp, bool) {
	switch name {
	case "-":
		return UnaryMinus, true
	case "+":
		return UnaryPlus, true
	case "!":
		return UnaryNot, true
	}
	return 0, false
}
