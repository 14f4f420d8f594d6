package colstats

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// NumericStats accumulates min/max/null/NaN over a numeric (or boolean)
// column. Booleans project onto it with false->0, true->1.
type NumericStats struct {
	Min, Max       float64
	HasNull        bool
	HasNaN         bool
	seenFiniteOnce bool
}

// NewNumericStats returns an accumulator with sentinel min/max placeholders.
func NewNumericStats() *NumericStats {
	return &NumericStats{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Observe folds one value into the accumulator. isNull takes priority;
// otherwise a NaN value sets HasNaN without touching Min/Max.
func (s *NumericStats) Observe(v float64, isNull bool) {
	if isNull {
		s.HasNull = true
		return
	}
	if math.IsNaN(v) {
		s.HasNaN = true
		return
	}
	s.seenFiniteOnce = true
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
}

// TextStats accumulates lexicographic min/max/null over a text-like column.
type TextStats struct {
	Min, Max string
	HasNull  bool
	seen     bool
}

// NewTextStats returns an empty text accumulator.
func NewTextStats() *TextStats { return &TextStats{} }

// Observe folds one value into the accumulator. Null counts as absent and
// does not affect Min/Max.
func (s *TextStats) Observe(v string, isNull bool) {
	if isNull {
		s.HasNull = true
		return
	}
	if !s.seen {
		s.Min, s.Max = v, v
		s.seen = true
		return
	}
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
}

// ColumnStats holds one accumulator per flattened column name, keyed by
// dotted path. Exactly one of Numeric/Text is non-nil per entry.
type ColumnStats struct {
	Numeric map[string]*NumericStats
	Text    map[string]*TextStats
}

// NewColumnStats builds an empty stats map seeded from schema's leaves.
// Unsupported leaves are omitted (no row is ever inserted for them).
func NewColumnStats(schema *arrow.Schema) *ColumnStats {
	cs := &ColumnStats{Numeric: map[string]*NumericStats{}, Text: map[string]*TextStats{}}
	for _, leaf := range Flatten(schema) {
		switch leaf.Kind {
		case Numeric:
			cs.Numeric[leaf.Name] = NewNumericStats()
		case Literal:
			cs.Text[leaf.Name] = NewTextStats()
		}
	}
	return cs
}

// Accumulate folds one record batch into cs, resolving each tracked column
// by splitting its dotted name on "." and descending struct columns.
func (cs *ColumnStats) Accumulate(rec arrow.Record) error {
	for name, acc := range cs.Numeric {
		col, err := ColumnByDottedName(rec, name)
		if err != nil {
			return err
		}
		if err := accumulateNumeric(acc, col); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
	}
	for name, acc := range cs.Text {
		col, err := ColumnByDottedName(rec, name)
		if err != nil {
			return err
		}
		if err := accumulateText(acc, col); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
	}
	return nil
}

// ColumnByDottedName splits a dotted column name and descends through
// struct columns of rec to find the leaf array, mirroring
// FieldByDottedName's schema-level traversal at the record-data level.
func ColumnByDottedName(rec arrow.Record, dotted string) (arrow.Array, error) {
	parts := strings.Split(dotted, ".")
	idx := indexOfRecordField(rec.Schema(), parts[0])
	if idx < 0 {
		return nil, fmt.Errorf("field %q not found in record", parts[0])
	}
	col := rec.Column(idx)
	for _, p := range parts[1:] {
		st, ok := col.(*array.Struct)
		if !ok {
			return nil, fmt.Errorf("field %q is not a struct array", p)
		}
		dt, ok := col.DataType().(*arrow.StructType)
		if !ok {
			return nil, fmt.Errorf("field %q has no struct type", p)
		}
		i := indexOfStructField(dt, p)
		if i < 0 {
			return nil, fmt.Errorf("field %q not found in nested struct", p)
		}
		col = st.Field(i)
	}
	return col, nil
}

func indexOfRecordField(schema *arrow.Schema, name string) int {
	for i, f := range schema.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func indexOfStructField(t *arrow.StructType, name string) int {
	for i, f := range t.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func accumulateNumeric(acc *NumericStats, col arrow.Array) error {
	n := col.Len()
	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			acc.Observe(0, true)
			continue
		}
		v, err := NumericValueAt(col, i)
		if err != nil {
			return err
		}
		acc.Observe(v, false)
	}
	return nil
}

// NumericValueAt reads the numeric value of a leaf array at index i,
// projecting booleans onto 0/1.
func NumericValueAt(col arrow.Array, i int) (float64, error) {
	switch a := col.(type) {
	case *array.Int8:
		return float64(a.Value(i)), nil
	case *array.Int16:
		return float64(a.Value(i)), nil
	case *array.Int32:
		return float64(a.Value(i)), nil
	case *array.Int64:
		return float64(a.Value(i)), nil
	case *array.Uint8:
		return float64(a.Value(i)), nil
	case *array.Uint16:
		return float64(a.Value(i)), nil
	case *array.Uint32:
		return float64(a.Value(i)), nil
	case *array.Uint64:
		return float64(a.Value(i)), nil
	case *array.Float16:
		return float64(a.Value(i).Float32()), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		if a.Value(i) {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported numeric array type %T", col)
	}
}

func accumulateText(acc *TextStats, col arrow.Array) error {
	n := col.Len()
	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			acc.Observe("", true)
			continue
		}
		v, err := TextValueAt(col, i)
		if err != nil {
			return err
		}
		acc.Observe(v, false)
	}
	return nil
}

// TextValueAt reads the literal value of a leaf array at index i as its
// string form.
func TextValueAt(col arrow.Array, i int) (string, error) {
	switch a := col.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i).ToTime().String(), nil
	case *array.Date64:
		return a.Value(i).ToTime().String(), nil
	case *array.Time32:
		return fmt.Sprint(a.Value(i)), nil
	case *array.Time64:
		return fmt.Sprint(a.Value(i)), nil
	case *array.Timestamp:
		return fmt.Sprint(int64(a.Value(i))), nil
	default:
		return "", fmt.Errorf("unsupported literal array type %T", col)
	}
}
