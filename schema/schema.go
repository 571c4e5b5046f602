// Package schema provides pre-flight validation of Arrow schemas against
// the closed set of types the document converter supports. Validating a
// schema once up front lets callers reject a whole batch before any row
// conversion starts.
package schema

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Validation errors
var (
	ErrNilSchema       = errors.New("schema is nil")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrMapKeyType      = errors.New("map key type is not string-like")
)

// StringLike reports whether dt can serve as a document key type.
func StringLike(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return true
	default:
		return false
	}
}

// Supported reports whether dt, including all nested types, belongs to
// the converter's supported set.
func Supported(dt arrow.DataType) bool {
	switch t := dt.(type) {
	case *arrow.BinaryType, *arrow.BooleanType,
		*arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Float32Type, *arrow.Float64Type,
		*arrow.Date32Type, *arrow.TimestampType,
		*arrow.StringType, *arrow.LargeStringType,
		*arrow.Decimal128Type, *arrow.NullType:
		return true
	case *arrow.ListType:
		return Supported(t.Elem())
	case *arrow.LargeListType:
		return Supported(t.Elem())
	case *arrow.MapType:
		return StringLike(t.KeyType()) && Supported(t.ItemType())
	case *arrow.StructType:
		for _, f := range t.Fields() {
			if !Supported(f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Validate checks every field of s against the supported type set before
// any conversion work happens. The first offending field is reported by
// name, including nested map key violations.
func Validate(s *arrow.Schema) error {
	if s == nil {
		return ErrNilSchema
	}
	for _, f := range s.Fields() {
		if err := validateType(f.Type); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func validateType(dt arrow.DataType) error {
	switch t := dt.(type) {
	case *arrow.ListType:
		return validateType(t.Elem())
	case *arrow.LargeListType:
		return validateType(t.Elem())
	case *arrow.MapType:
		if !StringLike(t.KeyType()) {
			return fmt.Errorf("%w: %s", ErrMapKeyType, t.KeyType())
		}
		return validateType(t.ItemType())
	case *arrow.StructType:
		for _, f := range t.Fields() {
			if err := validateType(f.Type); err != nil {
				return fmt.Errorf("struct field %q: %w", f.Name, err)
			}
		}
		return nil
	default:
		if !Supported(dt) {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
		}
		return nil
	}
}

// NestingDepth returns how many composite levels dt nests. Scalars are
// depth 0; the converter's recursion depth for a value equals the depth
// of its schema.
func NestingDepth(dt arrow.DataType) int {
	switch t := dt.(type) {
	case *arrow.ListType:
		return 1 + NestingDepth(t.Elem())
	case *arrow.LargeListType:
		return 1 + NestingDepth(t.Elem())
	case *arrow.MapType:
		return 1 + NestingDepth(t.ItemType())
	case *arrow.StructType:
		max := 0
		for _, f := range t.Fields() {
			if d := NestingDepth(f.Type); d > max {
				max = d
			}
		}
		return 1 + max
	default:
		return 0
	}
}
