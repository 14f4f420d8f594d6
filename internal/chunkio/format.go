// Package chunkio implements the Chunk Writer and Chunked Writer: the
// conversion of an unbounded stream of Arrow record batches into one or more
// numbered Parquet blobs with accompanying per-column statistics.
package chunkio

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
)

// Format selects a writer-property tuning profile. The tag is persisted
// alongside the topic and governs compression/index options on every chunk
// written for that topic; the on-disk file extension is identical across
// all profiles.
type Format string

const (
	FormatDefault Format = "default"
	FormatRagged  Format = "ragged"
	FormatImage   Format = "image"
)

// Extension returns the object-store file extension for any format profile.
func (Format) Extension() string { return "parquet" }

// ParseFormat validates a format tag read back from metadata storage.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDefault, FormatRagged, FormatImage:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown serialization format %q", s)
	}
}

// writerProperties builds the parquet.WriterProperties for a format profile.
// The timestamp column receives special treatment under ragged/image:
// stored uncompressed with page statistics and a bloom filter enabled, so
// range queries over it can prune pages without decompression.
func writerProperties(format Format, schema *arrow.Schema) (*parquet.WriterProperties, error) {
	switch format {
	case FormatDefault:
		return parquet.NewWriterProperties(
			parquet.WithDictionaryDefault(true),
		), nil
	case FormatRagged:
		return raggedOrImageProperties(schema, compress.Codecs.Zstd, 5)
	case FormatImage:
		return raggedOrImageProperties(schema, compress.Codecs.Zstd, 22)
	default:
		return nil, fmt.Errorf("unknown serialization format %q", format)
	}
}

func raggedOrImageProperties(schema *arrow.Schema, codec compress.Compression, level int) (*parquet.WriterProperties, error) {
	opts := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithCompressionLevel(level),
		parquet.WithDictionaryDefault(false),
	}

	for _, f := range schema.Fields() {
		if f.Name != "timestamp" {
			continue
		}
		opts = append(opts,
			parquet.WithCompressionFor(f.Name, compress.Codecs.Uncompressed),
			parquet.WithDictionaryFor(f.Name, false),
			parquet.WithStatsFor(f.Name, true),
			parquet.WithBloomFilterEnabledFor(f.Name, true),
		)
	}

	return parquet.NewWriterProperties(opts...), nil
}
