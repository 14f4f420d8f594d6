// Package locator provides the normalized resource-naming value type shared
// by sequences, topics, and their derived paths in the object store.
package locator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies which resource a Locator names. The set is closed.
type Kind int

const (
	Sequence Kind = iota
	Topic
)

func (k Kind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case Topic:
		return "topic"
	default:
		return "unknown"
	}
}

// Locator is a sanitized resource name plus the kind it identifies.
// It is a value type: two Locators with the same Kind and Name are equal.
type Locator struct {
	kind Kind
	name string
}

// Sanitize trims surrounding whitespace and strips a single leading '/'.
// Sanitize(Sanitize(n)) == Sanitize(n) for all n.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	return name
}

// New builds a Locator from a raw (possibly unsanitized) name.
func New(kind Kind, rawName string) Locator {
	return Locator{kind: kind, name: Sanitize(rawName)}
}

// Kind returns the resource kind this locator identifies.
func (l Locator) Kind() Kind { return l.kind }

// Name returns the sanitized name, also used as the wire ticket string.
func (l Locator) Name() string { return l.name }

// MetadataPath returns the object-store path of this resource's metadata blob.
func (l Locator) MetadataPath() string {
	return l.name + "/metadata.json"
}

// DatafilePath returns the object-store path of the chunk at chunkIndex,
// zero-padded to 5 digits, e.g. "seq1/t1/data-00003.parquet".
func (l Locator) DatafilePath(chunkIndex int, extension string) string {
	return fmt.Sprintf("%s/data-%05d.%s", l.name, chunkIndex, extension)
}

// IsSubResourceOf reports whether l's name is a strict child of parent's
// name: l.name must start with parent.name followed by a '/'. Equal names
// are reflexive under plain prefix matching but are NOT considered a valid
// sub-resource relation here — callers enforcing parent/child invariants
// (facades) rely on this being false for l == parent.
func (l Locator) IsSubResourceOf(parent Locator) bool {
	prefix := parent.name + "/"
	return strings.HasPrefix(l.name, prefix)
}

// String renders the display form, e.g. "[sequence|foo]".
func (l Locator) String() string {
	return fmt.Sprintf("[%s|%s]", l.kind, l.name)
}

// MarshalJSON serializes the locator as its bare ticket string.
func (l Locator) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.name)
}

// UnmarshalJSON restores a locator from its bare ticket string. The kind is
// left as its zero value (Sequence); callers that need a specific kind
// should set it explicitly after decoding, e.g. via New.
func (l *Locator) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	l.name = Sanitize(name)
	return nil
}
