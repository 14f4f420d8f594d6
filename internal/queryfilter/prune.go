package queryfilter

import (
	"fmt"
	"strings"
)

// ColumnResolver looks up the metadata column id backing an ontology
// field, scoped to the ontology tag it was declared under. Implemented
// by the planner against internal/metadata, which is why
// queryfilter only depends on a function value rather than on the
// metadata package directly.
type ColumnResolver func(ontologyTag, field string) (columnID int64, ok bool, err error)

// ChunkPruneQuery is the compiled INTERSECT chain over
// column_chunk_numeric/column_chunk_literal that narrows a topic's
// chunks to the ones that can possibly satisfy an ontology filter.
// NoPruningApplied is set when every entry's operator is unsupported
// for pruning (e.g. $neq, $in, $match) — callers must fall back to
// scanning every chunk of the topic and rely on the residual predicate
// alone.
type ChunkPruneQuery struct {
	SQL              string
	Args             []any
	NoPruningApplied bool
}

// BuildChunkPruneQuery compiles an ontology filter into a chunk-id
// candidate query. Entries whose operator cannot be range-pruned are
// skipped here (they still apply via the residual predicate); this
// narrows the candidate set, it never excludes rows the residual
// predicate would have kept.
func BuildChunkPruneQuery(of OntologyFilter, resolve ColumnResolver) (ChunkPruneQuery, error) {
	var subqueries []string
	var args []any

	for _, e := range of.Entries {
		constraintSQL, constraintArgs, kind, supported := pruneConstraint(e.Op)
		if !supported {
			continue
		}

		columnID, ok, err := resolve(e.Field.OntologyTag(), e.Field.Field())
		if err != nil {
			return ChunkPruneQuery{}, fmt.Errorf("resolve column for %s: %w", e.Field.Value(), err)
		}
		if !ok {
			// No column was ever recorded for this field: no chunk can
			// possibly satisfy the filter.
			return ChunkPruneQuery{SQL: "SELECT id FROM chunk WHERE 0"}, nil
		}

		table := "column_chunk_numeric"
		if kind == KindText {
			table = "column_chunk_literal"
		}

		subqueries = append(subqueries, fmt.Sprintf(
			"SELECT chunk_id FROM %s WHERE column_id = ? AND (%s)", table, constraintSQL))
		args = append(args, columnID)
		args = append(args, constraintArgs...)
	}

	if len(subqueries) == 0 {
		return ChunkPruneQuery{NoPruningApplied: true}, nil
	}

	return ChunkPruneQuery{SQL: strings.Join(subqueries, " INTERSECT "), Args: args}, nil
}

// pruneConstraint returns the min/max range-overlap predicate for the
// operators that support chunk pruning:
//
//	$eq v          -> min <= v <= max
//	$lt v / $leq v -> min < v  / min <= v
//	$gt v / $geq v -> max > v / max >= v
//	$between [a,b] -> min <= b AND max >= a
//
// Every other operator ($neq, $ex, $nex, $in, $match) returns
// supported=false.
func pruneConstraint(op Op) (sql string, args []any, kind Kind, supported bool) {
	switch op.Kind {
	case OpEq:
		return "min <= ? AND max >= ?", []any{op.Value.DriverArg(), op.Value.DriverArg()}, op.Value.Kind, true
	case OpLt:
		return "min < ?", []any{op.Value.DriverArg()}, op.Value.Kind, true
	case OpLeq:
		return "min <= ?", []any{op.Value.DriverArg()}, op.Value.Kind, true
	case OpGt:
		return "max > ?", []any{op.Value.DriverArg()}, op.Value.Kind, true
	case OpGeq:
		return "max >= ?", []any{op.Value.DriverArg()}, op.Value.Kind, true
	case OpBetween:
		return "min <= ? AND max >= ?", []any{op.Range.Max.DriverArg(), op.Range.Min.DriverArg()}, op.Range.Min.Kind, true
	default:
		return "", nil, 0, false
	}
}

// ResidualConjunct is one ontology-filter entry in a form the columnar
// engine can evaluate directly against a decoded record, regardless of
// whether chunk pruning could narrow candidates for it.
type ResidualConjunct struct {
	OntologyTag string
	Field       string
	Op          Op
}

// ResidualPredicate is the full set of per-row checks the columnar
// engine must apply after chunk pruning: pruning only narrows which
// chunks are read, it never guarantees every row in a surviving chunk
// satisfies the filter.
type ResidualPredicate struct {
	Conjuncts []ResidualConjunct
}

// BuildResidualPredicate lowers an ontology filter into row-evaluable
// conjuncts.
func BuildResidualPredicate(of OntologyFilter) ResidualPredicate {
	conjuncts := make([]ResidualConjunct, len(of.Entries))
	for i, e := range of.Entries {
		conjuncts[i] = ResidualConjunct{
			OntologyTag: e.Field.OntologyTag(),
			Field:       e.Field.Field(),
			Op:          e.Op,
		}
	}
	return ResidualPredicate{Conjuncts: conjuncts}
}
