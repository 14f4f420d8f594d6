package columnar

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"mosaico/internal/colstats"
	"mosaico/internal/queryfilter"
)

// filterRecord evaluates predicate's conjuncts (AND semantics) against
// every row of rec and returns a new record holding only the rows that
// satisfy all of them. Rows are selected by slicing contiguous runs of
// matching rows and concatenating the runs back together, so any column
// type NewSlice/Concatenate support (including nested structs) works
// without a per-type row-copy implementation.
func filterRecord(schema *arrow.Schema, rec arrow.Record, predicate queryfilter.ResidualPredicate) (arrow.Record, error) {
	n := int(rec.NumRows())
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	for _, c := range predicate.Conjuncts {
		// Ex/Nex describe schema-level existence, not a per-row null
		// check, matching the source's ontology_filter_to_df_expr, which
		// maps Ex/Nex to no DataFrame expression at all.
		if c.Op.Kind == queryfilter.OpEx || c.Op.Kind == queryfilter.OpNex {
			continue
		}

		col, err := colstats.ColumnByDottedName(rec, c.Field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", c.Field, err)
		}
		kind := colstats.ClassifyKind(col.DataType())

		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			ok, err := rowSatisfies(col, i, kind, c.Op)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", c.Field, err)
			}
			if !ok {
				keep[i] = false
			}
		}
	}

	return selectRows(schema, rec, keep)
}

// rowSatisfies evaluates one operator against the value at row i. A null
// cell never satisfies a value-bearing operator.
func rowSatisfies(col arrow.Array, i int, kind colstats.Kind, op queryfilter.Op) (bool, error) {
	if col.IsNull(i) {
		return false, nil
	}

	switch kind {
	case colstats.Numeric:
		v, err := colstats.NumericValueAt(col, i)
		if err != nil {
			return false, err
		}
		return evalNumericOp(v, op)
	case colstats.Literal:
		v, err := colstats.TextValueAt(col, i)
		if err != nil {
			return false, err
		}
		return evalTextOp(v, op)
	default:
		return false, fmt.Errorf("%w: unsupported column type %s", queryfilter.ErrUnsupportedOperation, col.DataType())
	}
}

func evalNumericOp(v float64, op queryfilter.Op) (bool, error) {
	switch op.Kind {
	case queryfilter.OpEq:
		return v == numberOf(op.Value), nil
	case queryfilter.OpNeq:
		return v != numberOf(op.Value), nil
	case queryfilter.OpLeq:
		return v <= numberOf(op.Value), nil
	case queryfilter.OpGeq:
		return v >= numberOf(op.Value), nil
	case queryfilter.OpLt:
		return v < numberOf(op.Value), nil
	case queryfilter.OpGt:
		return v > numberOf(op.Value), nil
	case queryfilter.OpBetween:
		return v >= numberOf(op.Range.Min) && v <= numberOf(op.Range.Max), nil
	case queryfilter.OpIn:
		for _, item := range op.Values {
			if v == numberOf(item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: operator not valid on a numeric column", queryfilter.ErrUnsupportedOperation)
	}
}

func evalTextOp(v string, op queryfilter.Op) (bool, error) {
	switch op.Kind {
	case queryfilter.OpEq:
		return v == op.Value.Text, nil
	case queryfilter.OpNeq:
		return v != op.Value.Text, nil
	case queryfilter.OpIn:
		for _, item := range op.Values {
			if v == item.Text {
				return true, nil
			}
		}
		return false, nil
	case queryfilter.OpMatch:
		return strings.Contains(v, op.Value.Text), nil
	default:
		return false, fmt.Errorf("%w: operator not valid on a text column", queryfilter.ErrUnsupportedOperation)
	}
}

// numberOf reads a queryfilter.Value's numeric form directly from its
// exported fields, projecting booleans onto 0/1 like colstats does.
func numberOf(v queryfilter.Value) float64 {
	switch v.Kind {
	case queryfilter.KindInteger:
		return float64(v.Int)
	case queryfilter.KindBoolean:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return v.Float
	}
}

