package arrowio

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// RecordRows materializes every row of a record as a positional value
// vector bound to the record's schema, in the value forms the converter
// accepts. Nested list, map, struct and decimal columns are extracted
// recursively. The returned rows do not alias the record's buffers, so
// they stay valid after the record is released.
func RecordRows(record arrow.Record) ([]convert.Row, error) {
	s := record.Schema()
	rows := make([]convert.Row, record.NumRows())

	for i := 0; i < int(record.NumRows()); i++ {
		values := make([]any, record.NumCols())
		for j := 0; j < int(record.NumCols()); j++ {
			v, err := arrayValue(record.Column(j), i)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i, s.Field(j).Name, err)
			}
			values[j] = v
		}
		rows[i] = convert.Row{Schema: s, Values: values}
	}
	return rows, nil
}

// arrayValue extracts the Go value at index i of a column.
func arrayValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch a := col.(type) {
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i), nil
	case *array.Timestamp:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Decimal128:
		t := a.DataType().(*arrow.Decimal128Type)
		return convert.Decimal{Unscaled: a.Value(i).BigInt(), Scale: t.Scale}, nil
	case *array.Null:
		return nil, nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		return sliceValues(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return sliceValues(a.ListValues(), start, end)
	case *array.Map:
		return mapValue(a, i)
	case *array.Struct:
		values := make([]any, a.NumField())
		for j := 0; j < a.NumField(); j++ {
			v, err := arrayValue(a.Field(j), i)
			if err != nil {
				return nil, fmt.Errorf("struct field %d: %w", j, err)
			}
			values[j] = v
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.DataType())
	}
}

func sliceValues(values arrow.Array, start, end int64) ([]any, error) {
	out := make([]any, 0, end-start)
	for k := start; k < end; k++ {
		v, err := arrayValue(values, int(k))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", k-start, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func mapValue(a *array.Map, i int) (any, error) {
	keys, ok := a.Keys().(*array.String)
	if !ok {
		return nil, fmt.Errorf("map key column is %s, not string", a.Keys().DataType())
	}

	start, end := a.ValueOffsets(i)
	out := make(map[string]any, end-start)
	for k := start; k < end; k++ {
		v, err := arrayValue(a.Items(), int(k))
		if err != nil {
			return nil, fmt.Errorf("map key %q: %w", keys.Value(int(k)), err)
		}
		out[keys.Value(int(k))] = v
	}
	return out, nil
}
