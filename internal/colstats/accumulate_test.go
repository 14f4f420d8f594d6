package colstats

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func flatSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
		{Name: "label", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func buildRecord(t *testing.T, ts []int64, values []float64, labels []*string) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	schema := flatSchema()

	tsB := array.NewInt64Builder(mem)
	valB := array.NewFloat64Builder(mem)
	labB := array.NewStringBuilder(mem)

	for _, v := range ts {
		tsB.Append(v)
	}
	for _, v := range values {
		valB.Append(v)
	}
	for _, l := range labels {
		if l == nil {
			labB.AppendNull()
		} else {
			labB.Append(*l)
		}
	}

	cols := []arrow.Array{tsB.NewArray(), valB.NewArray(), labB.NewArray()}
	return array.NewRecord(schema, cols, int64(len(ts)))
}

func ptr(s string) *string { return &s }

func TestNumericStatsAllNaN(t *testing.T) {
	rec := buildRecord(t, []int64{1, 2, 3}, []float64{math.NaN(), math.NaN(), math.NaN()}, []*string{ptr("a"), ptr("a"), ptr("a")})
	defer rec.Release()

	cs := NewColumnStats(flatSchema())
	if err := cs.Accumulate(rec); err != nil {
		t.Fatal(err)
	}

	val := cs.Numeric["value"]
	if !val.HasNaN {
		t.Fatal("expected HasNaN=true")
	}
	if !math.IsInf(val.Min, 1) || !math.IsInf(val.Max, -1) {
		t.Fatalf("expected sentinel min/max untouched, got min=%v max=%v", val.Min, val.Max)
	}
}

func TestTextStatsWithNulls(t *testing.T) {
	rec := buildRecord(t, []int64{1, 2, 3, 4}, []float64{0, 1, 2, 3}, []*string{nil, ptr("b"), nil, ptr("a")})
	defer rec.Release()

	cs := NewColumnStats(flatSchema())
	if err := cs.Accumulate(rec); err != nil {
		t.Fatal(err)
	}

	label := cs.Text["label"]
	if label.Min != "a" || label.Max != "b" {
		t.Fatalf("got min=%q max=%q, want a/b", label.Min, label.Max)
	}
	if !label.HasNull {
		t.Fatal("expected HasNull=true")
	}
}

func TestNumericStatsMinMax(t *testing.T) {
	rec := buildRecord(t, []int64{1, 2, 3}, []float64{5, -2, 10}, []*string{ptr("x"), ptr("x"), ptr("x")})
	defer rec.Release()

	cs := NewColumnStats(flatSchema())
	if err := cs.Accumulate(rec); err != nil {
		t.Fatal(err)
	}

	val := cs.Numeric["value"]
	if val.Min != -2 || val.Max != 10 {
		t.Fatalf("got min=%v max=%v, want -2/10", val.Min, val.Max)
	}
	if val.HasNull || val.HasNaN {
		t.Fatal("unexpected null/nan flags")
	}
}
