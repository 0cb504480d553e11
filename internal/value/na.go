package value

import "math"

// Logical is a three-valued truth value.
type Logical byte

const (
	False     Logical = 0
	True      Logical = 1
	NALogical Logical = 2
)

func LogicalOf(b bool) Logical {
	if b {
		return True
	}
	return False
}

// NA sentinels. The double NA is a NaN whose low word is 1954; arithmetic may quiet the
// NaN but keeps the payload, so IsNADouble only looks at the low word.
const (
	NAInteger   int32  = math.MinInt32
	naDoubleRaw uint64 = 0x7FF00000000007A2
	naPayload   uint32 = 1954
	NAString    string = "\x00NA\x00"
)

var (
	NADouble  = math.Float64frombits(naDoubleRaw)
	NAComplex = complex(NADouble, 0)
)

func IsNALogical(x Logical) bool { return x == NALogical }

func IsNAInteger(x int32) bool { return x == NAInteger }

// IsNADouble reports whether x is the NA sentinel (not an ordinary NaN).
func IsNADouble(x float64) bool {
	return x != x && uint32(math.Float64bits(x)) == naPayload
}

// IsNaNOrNA is true for NA and for every other NaN.
func IsNaNOrNA(x float64) bool { return x != x }

// IsNaNNotNA is true for NaN values that are not the NA sentinel.
func IsNaNNotNA(x float64) bool { return x != x && !IsNADouble(x) }

func IsNAComplex(x complex128) bool {
	return IsNADouble(real(x)) || IsNADouble(imag(x))
}

// IsNaNOrNAComplex is true when either part is NaN (NA included).
func IsNaNOrNAComplex(x complex128) bool {
	return real(x) != real(x) || imag(x) != imag(x)
}

func IsNAString(x string) bool { return x == NAString }
