package colstats

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// TimestampColumn is the required column name on every topic schema.
const TimestampColumn = "timestamp"

var (
	// ErrMissingTimestamp is returned when a schema has no top-level
	// "timestamp" field. The name is case-sensitive: "TimeStAmP" does not
	// satisfy this requirement.
	ErrMissingTimestamp = errors.New("schema missing required timestamp column")
	// ErrWrongTimestampType is returned when "timestamp" is present but not
	// a 64-bit signed integer.
	ErrWrongTimestampType = errors.New("timestamp column must be int64")
)

// CheckSchema validates that schema carries a top-level int64 "timestamp"
// field. Lookup is case-sensitive and only considers top-level fields (the
// timestamp column is never nested).
func CheckSchema(schema *arrow.Schema) error {
	idx := indexOfRecordField(schema, TimestampColumn)
	if idx < 0 {
		return ErrMissingTimestamp
	}
	f := schema.Field(idx)
	if f.Type.ID() != arrow.INT64 {
		return fmt.Errorf("%w: got %s", ErrWrongTimestampType, f.Type)
	}
	return nil
}
