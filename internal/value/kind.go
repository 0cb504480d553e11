package value

// Kind is the closed set of runtime value kinds.
type Kind uint8

const (
	KindNull Kind = iota
	KindMissing
	KindLogical
	KindInteger
	KindDouble
	KindComplex
	KindCharacter
	KindRaw
	KindList
	KindExpression
	KindSymbol
	KindPairlist
	KindLanguage
	KindClosure
	KindBuiltin
	KindEnvironment
	KindPromise
	// KindDots is the "..." binding of a call frame.
	KindDots

	numKinds
)

// NumKinds is the size of tables indexed by Kind.
const NumKinds = int(numKinds)

var kindNames = [...]string{
	KindNull:        "NULL",
	KindMissing:     "missing",
	KindLogical:     "logical",
	KindInteger:     "integer",
	KindDouble:      "double",
	KindComplex:     "complex",
	KindCharacter:   "character",
	KindRaw:         "raw",
	KindList:        "list",
	KindExpression:  "expression",
	KindSymbol:      "symbol",
	KindPairlist:    "pairlist",
	KindLanguage:    "language",
	KindClosure:     "closure",
	KindBuiltin:     "builtin",
	KindEnvironment: "environment",
	KindPromise:     "promise",
	KindDots:        "...",
}

// String returns the typeof() name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsAtomic reports whether k is one of the six primitive vector kinds.
func (k Kind) IsAtomic() bool {
	return k >= KindLogical && k <= KindRaw
}

// IsNumeric reports whether k takes part in arithmetic (logical counts).
func (k Kind) IsNumeric() bool {
	return k >= KindLogical && k <= KindComplex
}

// IsVector reports whether values of kind k implement Vector.
func (k Kind) IsVector() bool {
	return k.IsAtomic() || k == KindList || k == KindExpression
}

// KindFromName maps a typeof()/mode name back to a kind.
func KindFromName(name string) (Kind, bool) {
	switch name {
	case "numeric":
		return KindDouble, true
	case "function":
		return KindClosure, true
	}
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}
