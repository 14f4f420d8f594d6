package queryfilter

import "fmt"

// JSONCompiler compiles clauses against dotted sub-fields of a JSON
// column (e.g. sequence.user_metadata_json), casting each extracted
// value per operand kind. Grounded on the source's internal
// JsonQueryCompiler and OntologyColumnFmt, adapted from Postgres's
// "col #>> '{a,b,c}'" accessor to SQLite's json_extract(col, '$.a.b.c').
// $in and $match are unsupported here, matching the source: the JSON
// compiler never implements those two arms.
type JSONCompiler struct {
	column string
}

func NewJSONCompiler(column string) *JSONCompiler {
	return &JSONCompiler{column: column}
}

var (
	_ ClauseCompiler  = (*JSONCompiler)(nil)
	_ ColumnFormatter = (*JSONCompiler)(nil)
)

// FormatColumn builds the json_extract(...) accessor for a dotted path.
func (c *JSONCompiler) FormatColumn(dottedPath string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", c.column, dottedPath)
}

func (c *JSONCompiler) cast(extractExpr string, v Value) string {
	switch v.Kind {
	case KindInteger, KindFloat:
		return "CAST(" + extractExpr + " AS REAL)"
	case KindBoolean:
		return "CAST(" + extractExpr + " AS INTEGER)"
	default:
		return extractExpr
	}
}

// CompileClause expects field to already be a FormatColumn(...) result
// (ClausesBuilder.Filter always calls FormatColumn before invoking this).
func (c *JSONCompiler) CompileClause(field string, op Op) (CompiledClause, error) {
	if !op.isSupported() {
		return CompiledClause{}, unsupportedOpErr(field)
	}

	switch op.Kind {
	case OpEq:
		return CompiledClause{SQL: c.cast(field, op.Value) + " = ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpNeq:
		return CompiledClause{SQL: c.cast(field, op.Value) + " != ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpLeq:
		return CompiledClause{SQL: c.cast(field, op.Value) + " <= ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpGeq:
		return CompiledClause{SQL: c.cast(field, op.Value) + " >= ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpLt:
		return CompiledClause{SQL: c.cast(field, op.Value) + " < ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpGt:
		return CompiledClause{SQL: c.cast(field, op.Value) + " > ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpEx:
		return CompiledClause{SQL: "(" + field + ") IS NOT NULL"}, nil
	case OpNex:
		return CompiledClause{SQL: "(" + field + ") IS NULL"}, nil
	case OpBetween:
		castField := c.cast(field, op.Range.Min)
		return CompiledClause{
			SQL:  "(" + castField + " >= ?) AND (" + castField + " <= ?)",
			Args: []any{op.Range.Min.DriverArg(), op.Range.Max.DriverArg()},
		}, nil
	case OpIn, OpMatch:
		return CompiledClause{}, unsupportedOpErr(field)
	default:
		return CompiledClause{}, unsupportedOpErr(field)
	}
}
