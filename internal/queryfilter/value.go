// Package queryfilter implements the JSON filter-tree DSL used by the
// query action: decoding request bodies into a typed Filter, and
// compiling that Filter into SQL fragments (candidate-topic lookup and
// chunk-stats pruning) plus a residual predicate for the columnar engine.
package queryfilter

import "fmt"

// Kind is the dynamic type carried by a Value.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindText
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a heterogeneous scalar: exactly one of Int, Float, Text, Bool
// is meaningful, selected by Kind. This mirrors the dynamic Value enum
// filter predicates are built from, since field types aren't known until
// the ontology schema is consulted.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Bool  bool
}

func IntValue(v int64) Value   { return Value{Kind: KindInteger, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }
func BoolValue(v bool) Value   { return Value{Kind: KindBoolean, Bool: v} }

// SupportEq reports whether the $eq/$neq operators apply to this value's
// kind. All kinds support equality.
func (v Value) SupportEq() bool { return true }

// SupportOrdering reports whether $leq/$geq/$lt/$gt/$between apply.
func (v Value) SupportOrdering() bool {
	switch v.Kind {
	case KindInteger, KindFloat:
		return true
	default:
		return false
	}
}

// SupportIn reports whether $in applies. Text, numeric and boolean all
// support membership tests.
func (v Value) SupportIn() bool {
	return true
}

// SupportMatch reports whether $match (LIKE %v%) applies. Only text does.
func (v Value) SupportMatch() bool {
	return v.Kind == KindText
}

// asFloat64 returns a numeric value as float64 for ordering comparisons
// between Int and Float kinds (e.g. a Range built from mixed literals).
func (v Value) asFloat64() float64 {
	if v.Kind == KindInteger {
		return float64(v.Int)
	}
	return v.Float
}

func (v Value) compareOrdering(other Value) int {
	a, b := v.asFloat64(), other.asFloat64()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// DriverArg returns the value in the form the database/sql driver should
// bind it as.
func (v Value) DriverArg() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	case KindBoolean:
		if v.Bool {
			return int64(1)
		}
		return int64(0)
	default:
		panic(fmt.Sprintf("queryfilter: unknown value kind %d", v.Kind))
	}
}

// Range is an inclusive [Min, Max] bound used by $between.
type Range struct {
	Min Value
	Max Value
}

// NewRange validates min <= max before constructing a Range.
func NewRange(min, max Value) (Range, error) {
	if !min.SupportOrdering() {
		return Range{}, fmt.Errorf("%w: %s does not support ordering", ErrUnsupportedOperation, min.Kind)
	}
	if min.compareOrdering(max) > 0 {
		return Range{}, ErrEmptyRange
	}
	return Range{Min: min, Max: max}, nil
}
