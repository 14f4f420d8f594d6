// Package planner implements the three-step query plan §4.7 describes:
// narrow to candidate topics by sequence/topic filter, prune each
// candidate's chunks by the ontology filter's range-prunable entries
// (falling back to a residual row predicate for the rest), and group the
// surviving rows by sequence.
//
// Grounded on original_source/mosaicod/src/server/endpoints/do_action.rs's
// query-action arm: topic_from_query_filter narrows by sequence/topic
// filter, an optional data-catalog filter then prunes candidate chunks
// (retaining only topics with a surviving chunk), and
// sequences_group_from_topics groups the result by sequence. Adapted from
// its imperative HashSet-retain shape to sequential per-topic reads since
// Go's iter.Seq2 (used by internal/columnar.Result.Stream) already gives
// lazy row delivery without needing an explicit id-set intersection step.
package planner

import (
	"context"
	"fmt"

	"mosaico/internal/columnar"
	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
	"mosaico/internal/objectstore"
	"mosaico/internal/queryfilter"
)

// TopicResult is one candidate topic's surviving row count after chunk
// pruning and residual filtering.
type TopicResult struct {
	TopicName string
	RowCount  int64
}

// SequenceResult groups every matched topic's result under its parent
// sequence's name.
type SequenceResult struct {
	SequenceName string
	Topics       []TopicResult
}

// Planner executes query actions against the metadata store and the
// columnar engine.
type Planner struct {
	repo   *metadata.Repository
	engine *columnar.Engine
}

func New(repo *metadata.Repository, store objectstore.Store) *Planner {
	return &Planner{repo: repo, engine: columnar.NewEngine(store)}
}

// Execute runs the full plan for filter and returns its matches grouped
// by sequence. An entirely empty filter is refused outright (SPEC_FULL
// §8: "a query with no sequence/topic/ontology filters returns an empty
// result set"), since enumerating the whole catalog unfiltered is never
// the caller's intent.
func (p *Planner) Execute(ctx context.Context, filter queryfilter.Filter) ([]SequenceResult, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	candidates, err := p.candidateTopics(ctx, filter)
	if err != nil {
		return nil, err
	}

	bySequence := map[string][]TopicResult{}
	var order []string

	for _, c := range candidates {
		of := relevantOntologyEntries(filter.Ontology, c.OntologyTag)

		rowCount, err := p.matchTopic(ctx, c, of)
		if err != nil {
			return nil, err
		}
		// A topic matched purely by the sequence/topic filter is kept even
		// with zero rows: chunks_from_filters/the row-count check in
		// do_action.rs only runs when a data-catalog (ontology) filter was
		// given at all. With none, topics pass straight from
		// topic_from_query_filter through to sequences_group_from_topics
		// unfiltered by data.
		if filter.Ontology != nil && rowCount == 0 {
			continue
		}

		if _, seen := bySequence[c.SequenceName]; !seen {
			order = append(order, c.SequenceName)
		}
		bySequence[c.SequenceName] = append(bySequence[c.SequenceName], TopicResult{
			TopicName: c.TopicName,
			RowCount:  rowCount,
		})
	}

	out := make([]SequenceResult, 0, len(order))
	for _, name := range order {
		out = append(out, SequenceResult{SequenceName: name, Topics: bySequence[name]})
	}
	return out, nil
}

func (p *Planner) candidateTopics(ctx context.Context, filter queryfilter.Filter) ([]metadata.CandidateTopic, error) {
	q, err := queryfilter.BuildCandidateTopicQuery(filter)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.UnsupportedOperation, err)
	}
	if q.NoFilterApplied {
		out, err := p.repo.ListAllTopicsWithSequence(ctx)
		if err != nil {
			return nil, mosaicoerr.New(mosaicoerr.Internal, err)
		}
		return out, nil
	}

	out, err := p.repo.QueryCandidateTopics(ctx, whereOnly(q.SQL), q.Args)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return out, nil
}

// whereOnly strips queryfilter's own "SELECT ... WHERE " prefix, since
// metadata.QueryCandidateTopics builds its own SELECT around the WHERE
// clause so it can additionally project ontology_tag.
func whereOnly(sql string) string {
	const marker = " WHERE "
	for i := 0; i+len(marker) <= len(sql); i++ {
		if sql[i:i+len(marker)] == marker {
			return sql[i+len(marker):]
		}
	}
	return sql
}

// relevantOntologyEntries narrows an ontology filter to the entries whose
// tag matches a topic's own ontology_tag: a topic carries exactly one
// tag, so entries naming other tags describe constraints on other
// topics, not row-level predicates this topic could ever satisfy or
// violate.
func relevantOntologyEntries(of *queryfilter.OntologyFilter, ontologyTag string) queryfilter.OntologyFilter {
	if of == nil {
		return queryfilter.OntologyFilter{}
	}
	var entries []queryfilter.OntologyEntry
	for _, e := range of.Entries {
		if e.Field.OntologyTag() == ontologyTag {
			entries = append(entries, e)
		}
	}
	return queryfilter.NewOntologyFilter(entries...)
}

func (p *Planner) matchTopic(ctx context.Context, c metadata.CandidateTopic, of queryfilter.OntologyFilter) (int64, error) {
	resolver := func(ontologyTag, field string) (int64, bool, error) {
		return p.repo.GetColumnID(ctx, ontologyTag, field)
	}

	pruneQuery, err := queryfilter.BuildChunkPruneQuery(of, resolver)
	if err != nil {
		return 0, mosaicoerr.New(mosaicoerr.UnsupportedOperation, err)
	}

	pruneSQL := pruneQuery.SQL
	if pruneQuery.NoPruningApplied {
		pruneSQL = ""
	}

	chunks, err := p.repo.ChunksMatchingPrune(ctx, c.TopicID, pruneSQL, pruneQuery.Args)
	if err != nil {
		return 0, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	paths := make([]string, len(chunks))
	for i, ch := range chunks {
		paths[i] = ch.DataFilePath
	}

	result, err := p.engine.ReadFiles(ctx, paths, false, 0)
	if err != nil {
		return 0, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("read chunks for topic %q: %w", c.TopicName, err))
	}

	if !of.IsEmpty() {
		result = result.Filter(queryfilter.BuildResidualPredicate(of))
	}

	count, err := result.Count(ctx)
	if err != nil {
		return 0, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return count, nil
}
