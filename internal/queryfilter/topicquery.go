package queryfilter

// CandidateTopicQuery is the compiled SQL for step 1 of the planner
// pipeline: narrowing to a candidate set of topics by sequence/topic
// filter. NoFilterApplied is set when neither group was supplied, per
// "no topic filter applied" in the planner notes — callers must not run
// SQL in that case and should instead let chunk pruning (if any) drive
// topic discovery.
type CandidateTopicQuery struct {
	SQL             string
	Args            []any
	NoFilterApplied bool
}

// BuildCandidateTopicQuery compiles the sequence/topic filter groups into
// a single WHERE clause against "topic JOIN sequence".
func BuildCandidateTopicQuery(f Filter) (CandidateTopicQuery, error) {
	b := NewClausesBuilder()
	sqlc := NewSQLCompiler()

	if f.Sequence != nil {
		if f.Sequence.Name != nil {
			b = b.Expr("sequence.name", *f.Sequence.Name, sqlc)
		}
		if f.Sequence.Creation != nil {
			b = b.Expr("sequence.created_unix_ms", *f.Sequence.Creation, sqlc)
		}
		if f.Sequence.UserMetadata != nil {
			b = b.Filter(*f.Sequence.UserMetadata, NewJSONCompiler("sequence.user_metadata_json"))
		}
	}

	if f.Topic != nil {
		if f.Topic.Name != nil {
			b = b.Expr("topic.name", *f.Topic.Name, sqlc)
		}
		if f.Topic.Creation != nil {
			b = b.Expr("topic.created_unix_ms", *f.Topic.Creation, sqlc)
		}
		if f.Topic.OntologyTag != nil {
			b = b.Expr("topic.ontology_tag", *f.Topic.OntologyTag, sqlc)
		}
		if f.Topic.SerializationFormat != nil {
			b = b.Expr("topic.serialization_format", *f.Topic.SerializationFormat, sqlc)
		}
		if f.Topic.UserMetadata != nil {
			b = b.Filter(*f.Topic.UserMetadata, NewJSONCompiler("topic.user_metadata_json"))
		}
	}

	result, err := b.Compile()
	if err != nil {
		return CandidateTopicQuery{}, err
	}
	if result.IsUnfiltered() {
		return CandidateTopicQuery{NoFilterApplied: true}, nil
	}

	sql := "SELECT topic.id, topic.uuid, topic.name, sequence.name AS sequence_name " +
		"FROM topic JOIN sequence ON topic.sequence_id = sequence.id WHERE " + result.WhereSQL()
	return CandidateTopicQuery{SQL: sql, Args: result.Args}, nil
}
