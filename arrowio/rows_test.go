package arrowio

import (
	"errors"
	"reflect"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

func buildTestRecord(t testing.TB) arrow.Record {
	t.Helper()

	s := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 18, Scale: 3}, Nullable: true},
		{Name: "at", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
		{Name: "attrs", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32), Nullable: true},
		{Name: "point", Type: arrow.StructOf(
			arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			arrow.Field{Name: "y", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		), Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), s)
	defer b.Release()

	idB := b.Field(0).(*array.StringBuilder)
	countB := b.Field(1).(*array.Int64Builder)
	amountB := b.Field(2).(*array.Decimal128Builder)
	atB := b.Field(3).(*array.TimestampBuilder)
	tagsB := b.Field(4).(*array.ListBuilder)
	tagsV := tagsB.ValueBuilder().(*array.StringBuilder)
	attrsB := b.Field(5).(*array.MapBuilder)
	attrsK := attrsB.KeyBuilder().(*array.StringBuilder)
	attrsV := attrsB.ItemBuilder().(*array.Int32Builder)
	pointB := b.Field(6).(*array.StructBuilder)
	pointX := pointB.FieldBuilder(0).(*array.Float64Builder)
	pointY := pointB.FieldBuilder(1).(*array.Float64Builder)

	// Row 0: fully populated
	idB.Append("r0")
	countB.Append(42)
	amountB.Append(decimal128.FromI64(123456789))
	atB.Append(arrow.Timestamp(18_000_000_000))
	tagsB.Append(true)
	tagsV.Append("a")
	tagsV.Append("b")
	attrsB.Append(true)
	attrsK.Append("k")
	attrsV.Append(7)
	pointB.Append(true)
	pointX.Append(1.5)
	pointY.Append(-2.5)

	// Row 1: all nulls
	idB.AppendNull()
	countB.AppendNull()
	amountB.AppendNull()
	atB.AppendNull()
	tagsB.AppendNull()
	attrsB.AppendNull()
	pointB.AppendNull()

	return b.NewRecord()
}

func TestRecordRows(t *testing.T) {
	record := buildTestRecord(t)
	defer record.Release()

	rows, err := RecordRows(record)
	if err != nil {
		t.Fatalf("RecordRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	r0 := rows[0]
	if r0.Schema == nil {
		t.Fatal("Row should carry the record schema")
	}
	if r0.Values[0] != "r0" {
		t.Errorf("Expected id 'r0', got %v", r0.Values[0])
	}
	if r0.Values[1] != int64(42) {
		t.Errorf("Expected count 42, got %v", r0.Values[1])
	}
	dec, ok := r0.Values[2].(convert.Decimal)
	if !ok {
		t.Fatalf("Expected Decimal, got %T", r0.Values[2])
	}
	if dec.Scale != 3 || dec.Unscaled.Int64() != 123456789 {
		t.Errorf("Expected (123456789, 3), got (%s, %d)", dec.Unscaled, dec.Scale)
	}
	if !reflect.DeepEqual(r0.Values[4], []any{"a", "b"}) {
		t.Errorf("Expected tags [a b], got %v", r0.Values[4])
	}
	if !reflect.DeepEqual(r0.Values[5], map[string]any{"k": int32(7)}) {
		t.Errorf("Expected attrs map, got %v", r0.Values[5])
	}
	if !reflect.DeepEqual(r0.Values[6], []any{1.5, -2.5}) {
		t.Errorf("Expected struct values [1.5 -2.5], got %v", r0.Values[6])
	}

	for i, v := range rows[1].Values {
		if v != nil {
			t.Errorf("Row 1 value %d: expected nil, got %v", i, v)
		}
	}
}

func TestRecordRowsConvertPipeline(t *testing.T) {
	record := buildTestRecord(t)
	defer record.Release()

	rows, err := RecordRows(record)
	if err != nil {
		t.Fatalf("RecordRows failed: %v", err)
	}

	c := convert.NewConverter()
	doc, err := c.FromRow(rows[0])
	if err != nil {
		t.Fatalf("FromRow failed: %v", err)
	}

	wantAmount, _ := primitive.ParseDecimal128("123456.789")
	want := bson.D{
		{Key: "id", Value: "r0"},
		{Key: "count", Value: int64(42)},
		{Key: "amount", Value: wantAmount},
		{Key: "at", Value: primitive.DateTime(18_000_000)},
		{Key: "tags", Value: bson.A{"a", "b"}},
		{Key: "attrs", Value: bson.D{{Key: "k", Value: int32(7)}}},
		{Key: "point", Value: bson.D{{Key: "x", Value: 1.5}, {Key: "y", Value: -2.5}}},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Document mismatch:\n got  %v\n want %v", doc, want)
	}

	// The all-null row converts to an all-null document.
	nullDoc, err := c.FromRow(rows[1])
	if err != nil {
		t.Fatalf("FromRow failed for null row: %v", err)
	}
	for _, e := range nullDoc {
		if _, ok := e.Value.(primitive.Null); !ok {
			t.Errorf("Field %q: expected null, got %T", e.Key, e.Value)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	record := buildTestRecord(t)
	defer record.Release()

	codec := NewCodec()
	data, err := codec.Serialize(record)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	back, err := codec.ReadFirst(data)
	if err != nil {
		t.Fatalf("ReadFirst failed: %v", err)
	}
	defer back.Release()

	if back.NumRows() != record.NumRows() || back.NumCols() != record.NumCols() {
		t.Errorf("Shape changed: got %dx%d, want %dx%d",
			back.NumRows(), back.NumCols(), record.NumRows(), record.NumCols())
	}
	if !back.Schema().Equal(record.Schema()) {
		t.Error("Schema changed through IPC round trip")
	}
}

func TestCodecReadAll(t *testing.T) {
	r1 := buildTestRecord(t)
	defer r1.Release()
	r2 := buildTestRecord(t)
	defer r2.Release()

	codec := NewCodec()
	data, err := codec.SerializeAll([]arrow.Record{r1, r2})
	if err != nil {
		t.Fatalf("SerializeAll failed: %v", err)
	}

	records, err := codec.ReadAll(data)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestCodecEmptyInput(t *testing.T) {
	codec := NewCodec()

	if _, err := codec.SerializeAll(nil); !errors.Is(err, ErrEmptyStream) {
		t.Errorf("Expected ErrEmptyStream, got %v", err)
	}
	if _, err := codec.ReadFirst([]byte("not arrow")); err == nil {
		t.Error("Expected error for garbage input")
	}
}
