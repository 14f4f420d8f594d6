package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// concatRecords merges records column-by-column into a single record,
// using arrow's Concatenate rather than a per-type row-copy loop so
// nested (struct) columns are handled the same way as flat ones.
func concatRecords(schema *arrow.Schema, records []arrow.Record) (arrow.Record, error) {
	if len(records) == 0 {
		return array.NewRecord(schema, nil, 0), nil
	}
	if len(records) == 1 {
		return records[0], nil
	}

	numCols := int(schema.NumFields())
	cols := make([]arrow.Array, numCols)
	var total int64
	for i := 0; i < numCols; i++ {
		parts := make([]arrow.Array, len(records))
		for j, r := range records {
			parts[j] = r.Column(i)
		}
		merged, err := array.Concatenate(parts, memory.DefaultAllocator)
		if err != nil {
			return nil, fmt.Errorf("concatenate column %q: %w", schema.Field(i).Name, err)
		}
		cols[i] = merged
	}
	for _, r := range records {
		total += r.NumRows()
	}
	return array.NewRecord(schema, cols, total), nil
}

// selectRows keeps only the rows of rec where keep[i] is true, selecting
// contiguous runs and concatenating them back together.
func selectRows(schema *arrow.Schema, rec arrow.Record, keep []bool) (arrow.Record, error) {
	var runs []arrow.Record
	i := 0
	for i < len(keep) {
		if !keep[i] {
			i++
			continue
		}
		start := i
		for i < len(keep) && keep[i] {
			i++
		}
		runs = append(runs, rec.NewSlice(int64(start), int64(i)))
	}
	if len(runs) == 0 {
		return rec.NewSlice(0, 0), nil
	}
	return concatRecords(schema, runs)
}

// repartitionRecords re-batches records so each output batch holds close
// to targetRows rows, mirroring the source's optimal-batch-size
// computation (targetMessageBytes * rowCount / totalBytes).
func repartitionRecords(schema *arrow.Schema, records []arrow.Record, targetRows int64) ([]arrow.Record, error) {
	if targetRows <= 0 || len(records) == 0 {
		return records, nil
	}

	merged, err := concatRecords(schema, records)
	if err != nil {
		return nil, err
	}

	total := merged.NumRows()
	if total <= targetRows {
		return []arrow.Record{merged}, nil
	}

	var out []arrow.Record
	for offset := int64(0); offset < total; offset += targetRows {
		end := offset + targetRows
		if end > total {
			end = total
		}
		out = append(out, merged.NewSlice(offset, end))
	}
	return out, nil
}
