package queryfilter

import (
	"encoding/json"
	"fmt"
	"math"
)

// DecodeFilter parses a query action's JSON filter tree:
//
//	{
//	  "sequence": {"name": {"$eq": "seq1"}, "user_metadata": {"driver": {"$eq": "jon"}}},
//	  "topic":    {"ontology_tag": {"$eq": "sensor"}},
//	  "ontology": {"sensor.value": {"$between": [0.5, 0.7]}}
//	}
//
// Any of the three top-level groups may be omitted.
func DecodeFilter(data []byte) (Filter, error) {
	var wire struct {
		Sequence json.RawMessage `json:"sequence"`
		Topic    json.RawMessage `json:"topic"`
		Ontology json.RawMessage `json:"ontology"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &wire); err != nil {
			return Filter{}, fmt.Errorf("decode filter: %w", err)
		}
	}

	var f Filter
	var err error

	if len(wire.Sequence) > 0 {
		f.Sequence, err = decodeSequenceFilter(wire.Sequence)
		if err != nil {
			return Filter{}, err
		}
	}
	if len(wire.Topic) > 0 {
		f.Topic, err = decodeTopicFilter(wire.Topic)
		if err != nil {
			return Filter{}, err
		}
	}
	if len(wire.Ontology) > 0 {
		of, err := decodeOntologyMap(wire.Ontology)
		if err != nil {
			return Filter{}, err
		}
		f.Ontology = &of
	}

	return f, nil
}

func decodeSequenceFilter(data json.RawMessage) (*SequenceFilter, error) {
	var wire struct {
		Name              json.RawMessage `json:"name"`
		CreatedTimestamp  json.RawMessage `json:"created_timestamp"`
		UserMetadata      json.RawMessage `json:"user_metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode sequence filter: %w", err)
	}

	var f SequenceFilter
	var err error
	if f.Name, err = decodeOptionalOp(wire.Name); err != nil {
		return nil, err
	}
	if f.Creation, err = decodeOptionalOp(wire.CreatedTimestamp); err != nil {
		return nil, err
	}
	if len(wire.UserMetadata) > 0 {
		of, err := decodeOntologyMap(wire.UserMetadata)
		if err != nil {
			return nil, err
		}
		f.UserMetadata = &of
	}
	return &f, nil
}

func decodeTopicFilter(data json.RawMessage) (*TopicFilter, error) {
	var wire struct {
		Name                 json.RawMessage `json:"name"`
		CreatedTimestamp     json.RawMessage `json:"created_timestamp"`
		OntologyTag          json.RawMessage `json:"ontology_tag"`
		SerializationFormat  json.RawMessage `json:"serialization_format"`
		UserMetadata         json.RawMessage `json:"user_metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode topic filter: %w", err)
	}

	var f TopicFilter
	var err error
	if f.Name, err = decodeOptionalOp(wire.Name); err != nil {
		return nil, err
	}
	if f.Creation, err = decodeOptionalOp(wire.CreatedTimestamp); err != nil {
		return nil, err
	}
	if f.OntologyTag, err = decodeOptionalOp(wire.OntologyTag); err != nil {
		return nil, err
	}
	if f.SerializationFormat, err = decodeOptionalOp(wire.SerializationFormat); err != nil {
		return nil, err
	}
	if len(wire.UserMetadata) > 0 {
		of, err := decodeOntologyMap(wire.UserMetadata)
		if err != nil {
			return nil, err
		}
		f.UserMetadata = &of
	}
	return &f, nil
}

func decodeOptionalOp(data json.RawMessage) (*Op, error) {
	if len(data) == 0 {
		return nil, nil
	}
	op, err := decodeOp(data)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// decodeOntologyMap parses a dotted-path -> operator map into an
// OntologyFilter. Map iteration order is randomized by Go's runtime, so
// results are sorted by field value for deterministic clause ordering.
func decodeOntologyMap(data json.RawMessage) (OntologyFilter, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return OntologyFilter{}, fmt.Errorf("decode ontology filter: %w", err)
	}

	entries := make([]OntologyEntry, 0, len(raw))
	for path, opData := range raw {
		field, err := NewOntologyField(path)
		if err != nil {
			return OntologyFilter{}, err
		}
		op, err := decodeOp(opData)
		if err != nil {
			return OntologyFilter{}, err
		}
		if !op.isSupported() {
			return OntologyFilter{}, fmt.Errorf("%s: %w", path, ErrUnsupportedOperation)
		}
		entries = append(entries, OntologyEntry{Field: field, Op: op})
	}
	sortOntologyEntries(entries)

	return NewOntologyFilter(entries...), nil
}

func sortOntologyEntries(entries []OntologyEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Field.Value() < entries[j-1].Field.Value(); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func decodeOp(data json.RawMessage) (Op, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return Op{}, fmt.Errorf("decode operator: %w", err)
	}
	if len(m) != 1 {
		return Op{}, fmt.Errorf("decode operator: expected exactly one operator key, got %d", len(m))
	}

	for k, v := range m {
		switch k {
		case "$eq":
			val, err := decodeValue(v)
			return Op{Kind: OpEq, Value: val}, err
		case "$neq":
			val, err := decodeValue(v)
			return Op{Kind: OpNeq, Value: val}, err
		case "$leq":
			val, err := decodeValue(v)
			return Op{Kind: OpLeq, Value: val}, err
		case "$geq":
			val, err := decodeValue(v)
			return Op{Kind: OpGeq, Value: val}, err
		case "$lt":
			val, err := decodeValue(v)
			return Op{Kind: OpLt, Value: val}, err
		case "$gt":
			val, err := decodeValue(v)
			return Op{Kind: OpGt, Value: val}, err
		case "$ex":
			return Op{Kind: OpEx}, nil
		case "$nex":
			return Op{Kind: OpNex}, nil
		case "$between":
			var pair [2]json.RawMessage
			if err := json.Unmarshal(v, &pair); err != nil {
				return Op{}, fmt.Errorf("decode $between: %w", err)
			}
			min, err := decodeValue(pair[0])
			if err != nil {
				return Op{}, err
			}
			max, err := decodeValue(pair[1])
			if err != nil {
				return Op{}, err
			}
			rng, err := NewRange(min, max)
			return Op{Kind: OpBetween, Range: rng}, err
		case "$in":
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				return Op{}, fmt.Errorf("decode $in: %w", err)
			}
			values := make([]Value, len(items))
			for i, it := range items {
				val, err := decodeValue(it)
				if err != nil {
					return Op{}, err
				}
				values[i] = val
			}
			return Op{Kind: OpIn, Values: values}, nil
		case "$match":
			val, err := decodeValue(v)
			return Op{Kind: OpMatch, Value: val}, err
		default:
			return Op{}, fmt.Errorf("decode operator: unknown operator %q", k)
		}
	}

	panic("unreachable")
}

func decodeValue(data json.RawMessage) (Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, fmt.Errorf("decode value: %w", err)
	}
	switch t := v.(type) {
	case string:
		return TextValue(t), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return IntValue(int64(t)), nil
		}
		return FloatValue(t), nil
	default:
		return Value{}, fmt.Errorf("decode value: unsupported json value %v", v)
	}
}
