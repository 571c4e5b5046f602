package schema

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

func TestSupportedScalars(t *testing.T) {
	supported := []arrow.DataType{
		arrow.BinaryTypes.Binary,
		arrow.FixedWidthTypes.Boolean,
		arrow.PrimitiveTypes.Int8,
		arrow.PrimitiveTypes.Int16,
		arrow.PrimitiveTypes.Int32,
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float32,
		arrow.PrimitiveTypes.Float64,
		arrow.FixedWidthTypes.Date32,
		arrow.FixedWidthTypes.Timestamp_us,
		arrow.BinaryTypes.String,
		arrow.BinaryTypes.LargeString,
		&arrow.Decimal128Type{Precision: 9, Scale: 3},
		arrow.Null,
	}
	for _, dt := range supported {
		if !Supported(dt) {
			t.Errorf("Expected %s to be supported", dt)
		}
	}

	unsupported := []arrow.DataType{
		arrow.FixedWidthTypes.Float16,
		arrow.FixedWidthTypes.Time32s,
		arrow.FixedWidthTypes.Duration_ms,
		arrow.PrimitiveTypes.Uint64,
	}
	for _, dt := range unsupported {
		if Supported(dt) {
			t.Errorf("Expected %s to be unsupported", dt)
		}
	}
}

func TestSupportedComposites(t *testing.T) {
	ok := arrow.ListOf(arrow.StructOf(
		arrow.Field{Name: "m", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64)},
	))
	if !Supported(ok) {
		t.Errorf("Expected %s to be supported", ok)
	}

	// An unsupported leaf poisons the whole composite.
	bad := arrow.ListOf(arrow.StructOf(
		arrow.Field{Name: "h", Type: arrow.FixedWidthTypes.Float16},
	))
	if Supported(bad) {
		t.Errorf("Expected %s to be unsupported", bad)
	}
}

func TestStringLike(t *testing.T) {
	if !StringLike(arrow.BinaryTypes.String) {
		t.Error("String should be string-like")
	}
	if !StringLike(arrow.BinaryTypes.LargeString) {
		t.Error("LargeString should be string-like")
	}
	if StringLike(arrow.PrimitiveTypes.Int32) {
		t.Error("Int32 should not be string-like")
	}
	if StringLike(arrow.BinaryTypes.Binary) {
		t.Error("Binary should not be string-like")
	}
}

func TestValidate(t *testing.T) {
	good := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 20, Scale: 4}},
		{Name: "tags", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.BinaryTypes.String)},
	}, nil)
	if err := Validate(good); err != nil {
		t.Errorf("Validation should pass: %v", err)
	}

	if err := Validate(nil); !errors.Is(err, ErrNilSchema) {
		t.Errorf("Expected ErrNilSchema, got %v", err)
	}

	badField := arrow.NewSchema([]arrow.Field{
		{Name: "interval", Type: arrow.FixedWidthTypes.Duration_ms},
	}, nil)
	if err := Validate(badField); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}

	badKey := arrow.NewSchema([]arrow.Field{
		{Name: "m", Type: arrow.MapOf(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int32)},
	}, nil)
	if err := Validate(badKey); !errors.Is(err, ErrMapKeyType) {
		t.Errorf("Expected ErrMapKeyType, got %v", err)
	}

	// Nested violations surface the struct field name.
	nested := arrow.NewSchema([]arrow.Field{
		{Name: "outer", Type: arrow.StructOf(
			arrow.Field{Name: "inner", Type: arrow.FixedWidthTypes.Float16},
		)},
	}, nil)
	err := Validate(nested)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestNestingDepth(t *testing.T) {
	cases := []struct {
		dt   arrow.DataType
		want int
	}{
		{arrow.PrimitiveTypes.Int32, 0},
		{arrow.ListOf(arrow.PrimitiveTypes.Int32), 1},
		{arrow.MapOf(arrow.BinaryTypes.String, arrow.ListOf(arrow.PrimitiveTypes.Int32)), 2},
		{arrow.StructOf(
			arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32},
			arrow.Field{Name: "b", Type: arrow.ListOf(arrow.StructOf(
				arrow.Field{Name: "c", Type: arrow.BinaryTypes.String},
			))},
		), 3},
	}

	for _, tc := range cases {
		if got := NestingDepth(tc.dt); got != tc.want {
			t.Errorf("NestingDepth(%s): expected %d, got %d", tc.dt, tc.want, got)
		}
	}
}
