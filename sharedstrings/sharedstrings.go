// Package sharedstrings parses xl/sharedStrings.xml into the workbook's
// shared string table: an ordered, zero-indexed sequence of strings that
// worksheet cells of type "s" refer to positionally.
package sharedstrings

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// Table is an immutable, ordered shared string pool, built once per pass.
type Table struct {
	strings []string
}

// Get returns the string at index i. ok is false for an out-of-range index;
// callers translate that into a SHARED_STRING_INDEX error, since what counts
// as "out of range" depends on which cell referenced it.
func (t *Table) Get(i int) (string, bool) {
	if i < 0 || i >= len(t.strings) {
		return "", false
	}
	return t.strings[i], true
}

// Len reports how many strings the table holds.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.strings)
}

// Empty returns a zero-length table, used when xl/sharedStrings.xml is
// absent from the package — an allowed, non-error condition.
func Empty() *Table {
	return &Table{}
}

// Parse streams xl/sharedStrings.xml and builds the table. Each <si> entry
// becomes one table slot; its text is the concatenation, in document order,
// of every descendant <t> node's character data except those nested under a
// phonetic guide (<rPh>), which records furigana-style reading hints rather
// than the displayed string. xml:space="preserve" does not change how text
// is handled here: per the worksheet streamer's whitespace rule, text nodes
// are always opaque and never trimmed, preserve or not.
func Parse(r io.Reader) (*Table, error) {
	dec := xml.NewDecoder(r)
	var entries []string
	var cur strings.Builder
	inEntry := false
	inText := false
	phoneticDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerr.Wrap(xerr.MalformedXML, "sharedStrings.xml", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				inEntry = true
				cur.Reset()
			case "rPh":
				phoneticDepth++
			case "t":
				inText = phoneticDepth == 0
			}
		case xml.CharData:
			if inEntry && inText {
				cur.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "rPh":
				if phoneticDepth > 0 {
					phoneticDepth--
				}
			case "si":
				entries = append(entries, cur.String())
				inEntry = false
			}
		}
	}
	return &Table{strings: entries}, nil
}
