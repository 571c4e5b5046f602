package convert

import (
	"errors"
	"fmt"
	"math/big"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Limits of the IEEE 754-2008 decimal128 interchange format.
const (
	decimal128MaxPrecision = 34
	decimal128MinExponent  = -6176
	decimal128MaxExponent  = 6111
)

// ErrDecimalRange is returned when a decimal value cannot be represented
// in decimal128 without loss.
var ErrDecimalRange = errors.New("decimal value out of decimal128 range")

// ToDecimal128 re-encodes an arbitrary-precision fixed-point value
// (unscaled integer plus scale) as a BSON decimal128. The conversion is
// exact: the coefficient is the unscaled value and the exponent is the
// negated scale, with no binary floating-point intermediate. Values whose
// significant digits exceed 34 or whose exponent falls outside the
// representable range are rejected, never rounded or saturated.
func ToDecimal128(unscaled *big.Int, scale int32) (primitive.Decimal128, error) {
	if unscaled == nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: nil unscaled value", ErrDecimalRange)
	}
	if digits := decimalDigits(unscaled); digits > decimal128MaxPrecision {
		return primitive.Decimal128{}, fmt.Errorf(
			"%w: %d significant digits (max %d)", ErrDecimalRange, digits, decimal128MaxPrecision)
	}
	exp := int(-scale)
	if exp < decimal128MinExponent || exp > decimal128MaxExponent {
		return primitive.Decimal128{}, fmt.Errorf(
			"%w: exponent %d outside [%d, %d]", ErrDecimalRange, exp, decimal128MinExponent, decimal128MaxExponent)
	}

	// Pass a copy: the input is caller-owned and read-only.
	d, ok := primitive.ParseDecimal128FromBigInt(new(big.Int).Set(unscaled), exp)
	if !ok {
		return primitive.Decimal128{}, fmt.Errorf("%w: value not representable as Decimal128", ErrDecimalRange)
	}
	return d, nil
}

// decimalDigits counts the significant decimal digits of v. Zero counts
// as one digit.
func decimalDigits(v *big.Int) int {
	if v.Sign() == 0 {
		return 1
	}
	return len(new(big.Int).Abs(v).String())
}
