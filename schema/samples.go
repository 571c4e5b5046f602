package schema

import "github.com/apache/arrow-go/v18/arrow"

// ScalarSample returns a schema exercising every supported scalar kind.
// Services and tests use it as a known-good conversion target.
func ScalarSample() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "binary", Type: arrow.BinaryTypes.Binary},
		{Name: "boolean", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "byte", Type: arrow.PrimitiveTypes.Int8},
		{Name: "date", Type: arrow.PrimitiveTypes.Date32},
		{Name: "decimal", Type: &arrow.Decimal128Type{Precision: 18, Scale: 3}},
		{Name: "double", Type: arrow.PrimitiveTypes.Float64},
		{Name: "float", Type: arrow.PrimitiveTypes.Float32},
		{Name: "integer", Type: arrow.PrimitiveTypes.Int32},
		{Name: "long", Type: arrow.PrimitiveTypes.Int64},
		{Name: "null", Type: arrow.Null},
		{Name: "short", Type: arrow.PrimitiveTypes.Int16},
		{Name: "string", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_us},
	}, nil)
}

// NestedSample returns a schema exercising every supported composite
// kind, including composites inside composites.
func NestedSample() *arrow.Schema {
	point := arrow.StructOf(
		arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	)

	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "attrs", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32)},
		{Name: "point", Type: point},
		{Name: "polygons", Type: arrow.ListOf(arrow.ListOf(point))},
	}, nil)
}
