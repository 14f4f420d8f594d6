package queryfilter

import (
	"strings"
)

// OntologyField is a dotted path whose first component is the ontology
// tag and whose remainder is the column path within it, e.g.
// "image.info.height" splits into tag="image", field="info.height". A
// path with no "." is a bare tag with an empty field, used by
// user_metadata sub-maps where the whole key names a tag and there is no
// further column to descend into (e.g. "driver" in
// {"user_metadata": {"driver": {"$eq": "jon"}}}).
type OntologyField struct {
	value  string
	tagLen int
}

// NewOntologyField parses a dotted path. It never fails: a path with no
// "." is treated as a bare tag (tagLen == len(v)), matching the original
// OntologyField::try_new's v.split(".").next(), which always yields at
// least the whole string.
func NewOntologyField(v string) (OntologyField, error) {
	tagLen := len(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		tagLen = i
	}
	return OntologyField{value: v, tagLen: tagLen}, nil
}

func (f OntologyField) OntologyTag() string { return f.value[:f.tagLen] }

// Field returns the path remainder after the tag, or "" for a bare tag
// with no "." separator.
func (f OntologyField) Field() string {
	if f.tagLen >= len(f.value) {
		return ""
	}
	return f.value[f.tagLen+1:]
}
func (f OntologyField) Value() string { return f.value }

// OntologyEntry pairs a parsed field path with the operator applied to it.
type OntologyEntry struct {
	Field OntologyField
	Op    Op
}

// OntologyFilter is an ordered set of field/operator pairs describing
// per-row predicates, used both for topic user_metadata sub-maps and for
// the top-level ontology (data-catalog) filter group.
type OntologyFilter struct {
	Entries []OntologyEntry
}

func NewOntologyFilter(entries ...OntologyEntry) OntologyFilter {
	return OntologyFilter{Entries: entries}
}

func (f OntologyFilter) IsEmpty() bool { return len(f.Entries) == 0 }

// SequenceFilter constrains candidate sequences by name, creation time and
// user metadata.
type SequenceFilter struct {
	Name         *Op
	Creation     *Op
	UserMetadata *OntologyFilter
}

func (f *SequenceFilter) IsEmpty() bool {
	return f == nil || (f.Name == nil && f.Creation == nil && f.UserMetadata == nil)
}

// TopicFilter constrains candidate topics by name, creation time,
// ontology tag, serialization format and user metadata.
type TopicFilter struct {
	Name                 *Op
	Creation             *Op
	OntologyTag          *Op
	SerializationFormat  *Op
	UserMetadata         *OntologyFilter
}

func (f *TopicFilter) IsEmpty() bool {
	return f == nil || (f.Name == nil && f.Creation == nil && f.OntologyTag == nil &&
		f.SerializationFormat == nil && f.UserMetadata == nil)
}

// Filter is the root of a query action's filter tree. All three groups
// are optional; nil implies no filtering for that domain.
type Filter struct {
	Sequence *SequenceFilter
	Topic    *TopicFilter
	Ontology *OntologyFilter
}

func (f Filter) IsEmpty() bool {
	return f.Sequence.IsEmpty() && f.Topic.IsEmpty() && (f.Ontology == nil || f.Ontology.IsEmpty())
}
