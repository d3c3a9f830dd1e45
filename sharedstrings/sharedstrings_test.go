package sharedstrings

import (
	"strings"
	"testing"
)

func TestParseSimpleEntries(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">
  <si><t>hello</t></si>
  <si><t>world</t></si>
</sst>`
	tbl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if s, ok := tbl.Get(0); !ok || s != "hello" {
		t.Fatalf("Get(0) = %q, %v, want hello, true", s, ok)
	}
	if s, ok := tbl.Get(1); !ok || s != "world" {
		t.Fatalf("Get(1) = %q, %v, want world, true", s, ok)
	}
	if _, ok := tbl.Get(2); ok {
		t.Fatalf("Get(2) ok = true, want false")
	}
}

func TestParseRichTextRuns(t *testing.T) {
	// Rich text splits one logical string across multiple <r><t> runs; the
	// table entry is their concatenation in document order.
	doc := `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><r><t>bo</t></r><r><t>ld</t></r></si>
</sst>`
	tbl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s, _ := tbl.Get(0); s != "bold" {
		t.Fatalf("Get(0) = %q, want bold", s)
	}
}

func TestParseSkipsPhoneticGuides(t *testing.T) {
	doc := `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>漢字</t><rPh sb="0" eb="2"><t>かんじ</t></rPh></si>
</sst>`
	tbl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s, _ := tbl.Get(0); s != "漢字" {
		t.Fatalf("Get(0) = %q, want 漢字 (phonetic guide text excluded)", s)
	}
}

func TestParsePreservesWhitespace(t *testing.T) {
	doc := `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t xml:space="preserve">  padded  </t></si>
</sst>`
	tbl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s, _ := tbl.Get(0); s != "  padded  " {
		t.Fatalf("Get(0) = %q, want preserved whitespace", s)
	}
}

func TestEmptyTable(t *testing.T) {
	tbl := Empty()
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tbl.Len())
	}
	if _, ok := tbl.Get(0); ok {
		t.Fatalf("Get(0) ok = true, want false")
	}
}
