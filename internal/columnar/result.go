package columnar

import (
	"context"
	"fmt"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"

	"mosaico/internal/queryfilter"
)

// Result is a timestamp-ordered sequence of record batches read from a
// topic's chunk blobs, with an optional residual predicate applied
// lazily at Stream/Count time.
type Result struct {
	schema    *arrow.Schema
	records   []arrow.Record
	predicate *queryfilter.ResidualPredicate
}

// Filter attaches an ontology filter to be applied as a row-level
// predicate; chunk pruning (over internal/metadata's column stats) has
// already narrowed which chunks were read, so this only needs to drop
// the rows within those chunks that don't actually match.
func (r *Result) Filter(predicate queryfilter.ResidualPredicate) *Result {
	return &Result{schema: r.schema, records: r.records, predicate: &predicate}
}

// SchemaWithMetadata overlays key/value metadata onto the result's
// schema, used to carry topic attributes back to clients on get-info.
func (r *Result) SchemaWithMetadata(meta map[string]string) *arrow.Schema {
	var fields []arrow.Field
	if r.schema != nil {
		fields = r.schema.Fields()
	}

	keys := make([]string, 0, len(meta))
	vals := make([]string, 0, len(meta))
	for k, v := range meta {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	md := arrow.NewMetadata(keys, vals)
	return arrow.NewSchema(fields, &md)
}

// Stream yields each surviving record batch in order. Iteration stops
// early, releasing no further records, if the consumer's yield returns
// false or ctx is canceled.
func (r *Result) Stream(ctx context.Context) iter.Seq2[arrow.Record, error] {
	return func(yield func(arrow.Record, error) bool) {
		for _, rec := range r.records {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			out := rec
			if r.predicate != nil {
				filtered, err := filterRecord(r.schema, rec, *r.predicate)
				if err != nil {
					yield(nil, fmt.Errorf("apply residual predicate: %w", err))
					return
				}
				out = filtered
			}
			if out.NumRows() == 0 {
				continue
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Count materializes the total row count across every surviving batch.
func (r *Result) Count(ctx context.Context) (int64, error) {
	var total int64
	for rec, err := range r.Stream(ctx) {
		if err != nil {
			return 0, err
		}
		total += rec.NumRows()
	}
	return total, nil
}
