// Package colstats flattens nested Arrow schemas into dotted column paths and
// accumulates per-column min/max/null/NaN statistics over record batches.
package colstats

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind classifies a leaf field for statistics purposes.
type Kind int

const (
	Unsupported Kind = iota
	Numeric
	Literal
)

// Leaf is one flattened (dotted path, arrow field) pair.
type Leaf struct {
	Name  string
	Field arrow.Field
	Kind  Kind
}

// Flatten performs a depth-first traversal of schema, descending only
// STRUCT fields. List/Map and other container types are yielded as opaque
// leaves (never descended). Every leaf is yielded exactly once, in
// depth-first field order.
func Flatten(schema *arrow.Schema) []Leaf {
	var out []Leaf
	for _, f := range schema.Fields() {
		flattenField(f.Name, f, &out)
	}
	return out
}

func flattenField(prefix string, f arrow.Field, out *[]Leaf) {
	if f.Type.ID() == arrow.STRUCT {
		st, ok := f.Type.(*arrow.StructType)
		if !ok {
			*out = append(*out, Leaf{Name: prefix, Field: f, Kind: ClassifyKind(f.Type)})
			return
		}
		for _, child := range st.Fields() {
			flattenField(prefix+"."+child.Name, child, out)
		}
		return
	}
	*out = append(*out, Leaf{Name: prefix, Field: f, Kind: ClassifyKind(f.Type)})
}

// ClassifyKind maps an Arrow data type to its statistics classification.
func ClassifyKind(t arrow.DataType) Kind {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.BOOL:
		return Numeric
	case arrow.STRING, arrow.LARGE_STRING,
		arrow.DATE32, arrow.DATE64,
		arrow.TIME32, arrow.TIME64,
		arrow.TIMESTAMP:
		return Literal
	default:
		return Unsupported
	}
}

// FieldByDottedName resolves a dotted path (e.g. "profile.location.city") in
// a nested schema, descending only STRUCT fields. Returns an error if any
// intermediate component is missing or not a struct.
func FieldByDottedName(schema *arrow.Schema, dotted string) (arrow.Field, error) {
	parts := strings.Split(dotted, ".")
	fields := schema.Fields()
	var cur arrow.Field
	for i, p := range parts {
		idx := indexOfField(fields, p)
		if idx < 0 {
			return arrow.Field{}, fmt.Errorf("field %q not found in schema at path %q", p, dotted)
		}
		cur = fields[idx]
		if i == len(parts)-1 {
			return cur, nil
		}
		st, ok := cur.Type.(*arrow.StructType)
		if !ok {
			return arrow.Field{}, fmt.Errorf("field %q is not a struct, cannot descend into %q", p, dotted)
		}
		fields = st.Fields()
	}
	return cur, nil
}

func indexOfField(fields []arrow.Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
