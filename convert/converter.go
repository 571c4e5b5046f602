// Package convert implements the schema-driven conversion of positional
// rows into BSON documents. A row's shape is described by an Arrow
// schema; every supported Arrow type maps to exactly one BSON value
// kind. Conversion is pure and stateless: it reads only its arguments,
// allocates only its result, and is safe to run concurrently from many
// workers.
package convert

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rowbridge-dev/RowBridge-Engine/schema"
)

// Conversion errors. Every failure the converter raises wraps one of
// these sentinels with field and type context.
var (
	ErrMissingSchema   = errors.New("row has no schema")
	ErrRowLength       = errors.New("row length does not match schema")
	ErrUnsupportedType = errors.New("unsupported data type")
	ErrTypeMismatch    = errors.New("value does not match schema type")
	ErrMapKeyType      = errors.New("map key type is not string-like")
)

const millisPerDay = 86_400_000

// Converter converts rows and single values into BSON. The zero value is
// ready to use; a Converter holds no state and may be shared freely.
type Converter struct{}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// FromRow converts a complete row into an ordered BSON document. The row
// must carry a schema and exactly one value per schema field; document
// keys appear in schema field order. The first field that fails to
// convert aborts the whole call, so callers never see a partial document.
func (c *Converter) FromRow(row Row) (bson.D, error) {
	if row.Schema == nil {
		return nil, ErrMissingSchema
	}
	if len(row.Values) != row.Schema.NumFields() {
		return nil, fmt.Errorf("%w: %d values for %d fields",
			ErrRowLength, len(row.Values), row.Schema.NumFields())
	}
	return c.fieldsToDocument(row.Schema.Fields(), row.Values)
}

// fieldsToDocument walks fields in declared order converting one
// positional value per field. Shared by FromRow and the struct case.
func (c *Converter) fieldsToDocument(fields []arrow.Field, values []any) (bson.D, error) {
	doc := make(bson.D, 0, len(fields))
	for i, f := range fields {
		v, err := c.Convert(f.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		doc = append(doc, bson.E{Key: f.Name, Value: v})
	}
	return doc, nil
}

// Convert converts a single (schema type, value) pair into a BSON value.
// A nil value converts to BSON null under any schema type; nullability
// is a per-field schema property enforced by schema owners, not here.
// Any schema type outside the supported set fails, as does any value
// whose dynamic type does not satisfy the schema type's precondition.
func (c *Converter) Convert(dt arrow.DataType, value any) (any, error) {
	if value == nil {
		return primitive.Null{}, nil
	}

	switch t := dt.(type) {
	case *arrow.BinaryType:
		b, ok := value.([]byte)
		if !ok {
			return nil, mismatch(dt, value)
		}
		return primitive.Binary{Subtype: 0x00, Data: append([]byte(nil), b...)}, nil

	case *arrow.BooleanType:
		b, ok := value.(bool)
		if !ok {
			return nil, mismatch(dt, value)
		}
		return b, nil

	case *arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type:
		return toInt32(dt, value)

	case *arrow.Int64Type:
		return toInt64(dt, value)

	case *arrow.Float32Type, *arrow.Float64Type:
		return toFloat64(dt, value)

	case *arrow.Date32Type:
		return dateMillis(dt, value)

	case *arrow.TimestampType:
		return timestampMillis(t, value)

	case *arrow.StringType:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(dt, value)
		}
		return s, nil

	case *arrow.LargeStringType:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(dt, value)
		}
		return s, nil

	case *arrow.Decimal128Type:
		return c.convertDecimal(t, value)

	case *arrow.NullType:
		return primitive.Null{}, nil

	case *arrow.ListType:
		return c.convertList(t.Elem(), value)

	case *arrow.LargeListType:
		return c.convertList(t.Elem(), value)

	case *arrow.MapType:
		return c.convertMap(t, value)

	case *arrow.StructType:
		return c.convertStruct(t, value)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// convertDecimal accepts either a value-carried (unscaled, scale) pair or
// an Arrow decimal128 coefficient whose scale comes from the schema type.
// The schema's declared precision/scale never override a value's own
// scale; identical values encode identically under any compatible schema.
func (c *Converter) convertDecimal(t *arrow.Decimal128Type, value any) (any, error) {
	switch v := value.(type) {
	case Decimal:
		return ToDecimal128(v.Unscaled, v.Scale)
	case decimal128.Num:
		return ToDecimal128(v.BigInt(), t.Scale)
	case *big.Int:
		return ToDecimal128(v, t.Scale)
	default:
		return nil, mismatch(t, value)
	}
}

func (c *Converter) convertList(elem arrow.DataType, value any) (any, error) {
	if vs, ok := value.([]any); ok {
		out := make(bson.A, 0, len(vs))
		for i, v := range vs {
			bv, err := c.Convert(elem, v)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, bv)
		}
		return out, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(arrow.ListOf(elem), value)
	}
	out := make(bson.A, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		bv, err := c.Convert(elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, bv)
	}
	return out, nil
}

// convertMap produces a document whose keys are the map's keys and whose
// values convert under the map's item type. Only string-like key schemas
// are representable as document keys; anything else fails. Keys are
// emitted in sorted order so repeated conversions of the same map yield
// byte-identical documents.
func (c *Converter) convertMap(t *arrow.MapType, value any) (any, error) {
	if !schema.StringLike(t.KeyType()) {
		return nil, fmt.Errorf("%w: %s", ErrMapKeyType, t.KeyType())
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, mismatch(t, value)
	}

	keys := make([]string, 0, rv.Len())
	items := make(map[string]any, rv.Len())
	for _, kv := range rv.MapKeys() {
		if kv.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: key %v is %s", ErrMapKeyType, kv, kv.Kind())
		}
		k := kv.String()
		keys = append(keys, k)
		items[k] = rv.MapIndex(kv).Interface()
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		bv, err := c.Convert(t.ItemType(), items[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		doc = append(doc, bson.E{Key: k, Value: bv})
	}
	return doc, nil
}

// convertStruct treats the value as a nested row aligned positionally to
// the struct's fields and recurses into the document assembler. The
// struct type is authoritative: a nested Row may carry its own schema,
// but its field count must agree.
func (c *Converter) convertStruct(t *arrow.StructType, value any) (any, error) {
	var vals []any
	switch v := value.(type) {
	case Row:
		vals = v.Values
	case []any:
		vals = v
	default:
		return nil, mismatch(t, value)
	}
	if len(vals) != t.NumFields() {
		return nil, fmt.Errorf("%w: %d values for %d struct fields",
			ErrRowLength, len(vals), t.NumFields())
	}
	return c.fieldsToDocument(t.Fields(), vals)
}

// toInt32 widens any integral that fits 32 bits.
func toInt32(dt arrow.DataType, value any) (int32, error) {
	var n int64
	switch v := value.(type) {
	case int8:
		return int32(v), nil
	case int16:
		return int32(v), nil
	case int32:
		return v, nil
	case int:
		n = int64(v)
	case int64:
		n = v
	default:
		return 0, mismatch(dt, value)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d does not fit 32 bits", ErrTypeMismatch, n)
	}
	return int32(n), nil
}

func toInt64(dt arrow.DataType, value any) (int64, error) {
	switch v := value.(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, mismatch(dt, value)
	}
}

// toFloat64 widens float32 to double; no other kinds are accepted, in
// particular integers are not silently promoted.
func toFloat64(dt arrow.DataType, value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, mismatch(dt, value)
	}
}

// dateMillis maps a day count since the Unix epoch to the UTC date-time
// at that day's midnight, in milliseconds.
func dateMillis(dt arrow.DataType, value any) (primitive.DateTime, error) {
	switch v := value.(type) {
	case arrow.Date32:
		return primitive.DateTime(int64(v) * millisPerDay), nil
	case int32:
		return primitive.DateTime(int64(v) * millisPerDay), nil
	case int:
		return primitive.DateTime(int64(v) * millisPerDay), nil
	case time.Time:
		u := v.UTC()
		midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		return primitive.DateTime(midnight.UnixMilli()), nil
	default:
		return 0, mismatch(dt, value)
	}
}

// timestampMillis maps an instant in the schema's time unit to UTC
// milliseconds. Sub-millisecond precision is truncated, not rounded.
func timestampMillis(t *arrow.TimestampType, value any) (primitive.DateTime, error) {
	var n int64
	switch v := value.(type) {
	case arrow.Timestamp:
		n = int64(v)
	case int64:
		n = v
	case time.Time:
		return primitive.DateTime(v.UnixMilli()), nil
	default:
		return 0, mismatch(t, value)
	}

	switch t.Unit {
	case arrow.Second:
		return primitive.DateTime(n * 1000), nil
	case arrow.Millisecond:
		return primitive.DateTime(n), nil
	case arrow.Microsecond:
		return primitive.DateTime(n / 1_000), nil
	case arrow.Nanosecond:
		return primitive.DateTime(n / 1_000_000), nil
	default:
		return 0, fmt.Errorf("%w: timestamp unit %s", ErrUnsupportedType, t.Unit)
	}
}

func mismatch(dt arrow.DataType, value any) error {
	return fmt.Errorf("%w: %T value for %s schema", ErrTypeMismatch, value, dt)
}
