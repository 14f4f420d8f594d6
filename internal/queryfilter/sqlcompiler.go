package queryfilter

import "strings"

// SQLCompiler compiles clauses against plain top-level table columns
// (sequence.name, topic.ontology_tag, and so on). Grounded on the
// source's SqlQueryCompiler; SQLite's driver binds "?" placeholders
// positionally, so unlike the source's Postgres "$N" compiler there is
// no placeholder counter to thread through callers.
type SQLCompiler struct{}

func NewSQLCompiler() *SQLCompiler { return &SQLCompiler{} }

var _ ClauseCompiler = (*SQLCompiler)(nil)

func (c *SQLCompiler) CompileClause(field string, op Op) (CompiledClause, error) {
	if !op.isSupported() {
		return CompiledClause{}, unsupportedOpErr(field)
	}

	switch op.Kind {
	case OpEq:
		return CompiledClause{SQL: field + " = ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpNeq:
		return CompiledClause{SQL: field + " != ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpLeq:
		return CompiledClause{SQL: field + " <= ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpGeq:
		return CompiledClause{SQL: field + " >= ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpLt:
		return CompiledClause{SQL: field + " < ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpGt:
		return CompiledClause{SQL: field + " > ?", Args: []any{op.Value.DriverArg()}}, nil
	case OpEx:
		return CompiledClause{SQL: "(" + field + ") IS NOT NULL"}, nil
	case OpNex:
		return CompiledClause{SQL: "(" + field + ") IS NULL"}, nil
	case OpBetween:
		return CompiledClause{
			SQL:  "(" + field + " >= ?) AND (" + field + " <= ?)",
			Args: []any{op.Range.Min.DriverArg(), op.Range.Max.DriverArg()},
		}, nil
	case OpIn:
		if len(op.Values) == 0 {
			return CompiledClause{}, nil
		}
		placeholders := make([]string, len(op.Values))
		args := make([]any, len(op.Values))
		for i, v := range op.Values {
			placeholders[i] = "?"
			args[i] = v.DriverArg()
		}
		return CompiledClause{
			SQL:  field + " IN (" + strings.Join(placeholders, ", ") + ")",
			Args: args,
		}, nil
	case OpMatch:
		if op.Value.Kind != KindText {
			return CompiledClause{}, unsupportedOpErr(field)
		}
		return CompiledClause{SQL: field + " LIKE ?", Args: []any{"%" + op.Value.Text + "%"}}, nil
	default:
		return CompiledClause{}, unsupportedOpErr(field)
	}
}
