package queryfilter

import "fmt"

// CompiledClause is one SQL boolean expression plus its positional bind
// arguments, in the order the placeholders appear in SQL.
type CompiledClause struct {
	SQL  string
	Args []any
}

func (c CompiledClause) isEmpty() bool { return c.SQL == "" }

// ClauseCompiler turns one field/operator pair into a CompiledClause.
// SQLCompiler and JSONCompiler are the two implementations; both share
// the same interface so ClausesBuilder can drive either.
type ClauseCompiler interface {
	CompileClause(field string, op Op) (CompiledClause, error)
}

// ColumnFormatter builds the SQL expression that reaches a dotted
// sub-field inside a JSON column (e.g. user_metadata_json). Only
// JSONCompiler implements it.
type ColumnFormatter interface {
	FormatColumn(dottedPath string) string
}

// CompilerResult is the accumulated output of a ClausesBuilder run: every
// compiled clause and its arguments, ready to be AND-joined into a WHERE
// clause.
type CompilerResult struct {
	Clauses []string
	Args    []any
}

// IsUnfiltered reports whether no clauses were accumulated;
// BuildCandidateTopicQuery reports this as NoFilterApplied.
func (r CompilerResult) IsUnfiltered() bool { return len(r.Clauses) == 0 }

// WhereSQL joins the accumulated clauses with AND. Returns "" when
// unfiltered; callers must check IsUnfiltered rather than rely on this.
func (r CompilerResult) WhereSQL() string {
	sql := ""
	for i, c := range r.Clauses {
		if i > 0 {
			sql += " AND "
		}
		sql += c
	}
	return sql
}

// ClausesBuilder accumulates compiled clauses across several fields,
// short-circuiting on the first compile error.
type ClausesBuilder struct {
	clauses []string
	args    []any
	err     error
}

func NewClausesBuilder() *ClausesBuilder {
	return &ClausesBuilder{}
}

// Expr compiles a single field/operator pair with compiler and appends it.
func (b *ClausesBuilder) Expr(field string, op Op, compiler ClauseCompiler) *ClausesBuilder {
	if b.err != nil {
		return b
	}
	cc, err := compiler.CompileClause(field, op)
	if err != nil {
		b.err = err
		return b
	}
	if !cc.isEmpty() {
		b.clauses = append(b.clauses, cc.SQL)
		b.args = append(b.args, cc.Args...)
	}
	return b
}

// Filter compiles every entry of an OntologyFilter against formatter,
// which must also implement ClauseCompiler (JSONCompiler does both).
func (b *ClausesBuilder) Filter(of OntologyFilter, formatter interface {
	ClauseCompiler
	ColumnFormatter
}) *ClausesBuilder {
	if b.err != nil {
		return b
	}
	for _, e := range of.Entries {
		field := formatter.FormatColumn(e.Field.Value())
		b = b.Expr(field, e.Op, formatter)
	}
	return b
}

func (b *ClausesBuilder) Compile() (CompilerResult, error) {
	if b.err != nil {
		return CompilerResult{}, b.err
	}
	return CompilerResult{Clauses: b.clauses, Args: b.args}, nil
}

func unsupportedOpErr(field string) error {
	return fmt.Errorf("%s: %w", field, ErrUnsupportedOperation)
}
