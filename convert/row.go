package convert

import (
	"math/big"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Row is a positional value vector paired with the Arrow schema that
// describes it. Values are aligned 1:1 with the schema's field list; a
// value may be nil for any field. A Row presented without a schema is
// not convertible.
type Row struct {
	Schema *arrow.Schema
	Values []any
}

// NewRow creates a Row bound to the given schema.
func NewRow(schema *arrow.Schema, values ...any) Row {
	return Row{Schema: schema, Values: values}
}

// NewSchemalessRow creates a Row that carries values but no schema.
// Such rows are rejected by FromRow; this exists for callers that
// collect values before schema resolution has happened.
func NewSchemalessRow(values ...any) Row {
	return Row{Values: values}
}

// Decimal is an arbitrary-precision fixed-point number carried in a row,
// represented as an unscaled integer and a scale. The numeric value is
// Unscaled × 10^(-Scale). The value's own scale is authoritative for
// encoding; the precision/scale declared on a schema never alter it.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// NewDecimal creates a Decimal from an int64 unscaled value and a scale.
func NewDecimal(unscaled int64, scale int32) Decimal {
	return Decimal{Unscaled: big.NewInt(unscaled), Scale: scale}
}

// String renders the decimal in plain notation, e.g. {123456789, 3}
// prints "123456.789".
func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "<nil>"
	}
	s := new(big.Int).Abs(d.Unscaled).String()
	neg := d.Unscaled.Sign() < 0

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch {
	case d.Scale <= 0:
		b.WriteString(s)
		for i := int32(0); i < -d.Scale; i++ {
			b.WriteByte('0')
		}
	case int(d.Scale) >= len(s):
		b.WriteString("0.")
		for i := int(d.Scale) - len(s); i > 0; i-- {
			b.WriteByte('0')
		}
		b.WriteString(s)
	default:
		split := len(s) - int(d.Scale)
		b.WriteString(s[:split])
		b.WriteByte('.')
		b.WriteString(s[split:])
	}
	return b.String()
}
