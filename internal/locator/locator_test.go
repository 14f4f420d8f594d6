package locator

import "testing"

func TestSanitizeIdempotent(t *testing.T) {
	cases := []string{"foo", "/foo", "  /foo  ", "foo/bar", "//foo"}
	for _, c := range cases {
		once := Sanitize(c)
		twice := Sanitize(once)
		if once != twice {
			t.Fatalf("Sanitize not idempotent for %q: %q vs %q", c, once, twice)
		}
	}
}

func TestSanitizeStripsSingleLeadingSlash(t *testing.T) {
	if got := Sanitize("/foo"); got != "foo" {
		t.Fatalf("got %q, want %q", got, "foo")
	}
	if got := Sanitize("//foo"); got != "/foo" {
		t.Fatalf("got %q, want %q", got, "/foo")
	}
}

func TestMetadataAndDatafilePaths(t *testing.T) {
	l := New(Topic, "seq1/t1")
	if got := l.MetadataPath(); got != "seq1/t1/metadata.json" {
		t.Fatalf("got %q", got)
	}
	if got := l.DatafilePath(3, "parquet"); got != "seq1/t1/data-00003.parquet" {
		t.Fatalf("got %q", got)
	}
	if got := l.DatafilePath(0, "parquet"); got != "seq1/t1/data-00000.parquet" {
		t.Fatalf("got %q", got)
	}
}

func TestIsSubResourceOf(t *testing.T) {
	seq := New(Sequence, "seq1")
	child := New(Topic, "seq1/t1")
	notChild := New(Topic, "seq1x/t1")
	sameName := New(Sequence, "seq1")

	if !child.IsSubResourceOf(seq) {
		t.Fatal("expected seq1/t1 to be sub-resource of seq1")
	}
	if notChild.IsSubResourceOf(seq) {
		t.Fatal("seq1x/t1 must not be a sub-resource of seq1")
	}
	if sameName.IsSubResourceOf(seq) {
		t.Fatal("equal names must not count as a sub-resource")
	}
}

func TestDisplayForm(t *testing.T) {
	l := New(Sequence, "foo")
	if got := l.String(); got != "[sequence|foo]" {
		t.Fatalf("got %q", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	l := New(Topic, "seq1/t1")
	data, err := l.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var out Locator
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if out.Name() != l.Name() {
		t.Fatalf("got %q, want %q", out.Name(), l.Name())
	}
}
