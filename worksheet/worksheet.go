// Package worksheet implements the Worksheet Streamer: a bounded-memory,
// single forward pass over one worksheet XML part that emits dense rows.
// Only <sheetData> and its descendants are held live; everything else in
// the worksheet part (column formatting, merge cells, page setup, ...) is
// skipped without being buffered, since none of it is in scope here.
package worksheet

import (
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/bsirb/xlsxstream/internal/xerr"
	"github.com/bsirb/xlsxstream/sharedstrings"
)

// Streamer parses one worksheet XML member incrementally.
type Streamer struct {
	r       io.Reader
	strings *sharedstrings.Table
}

// New wraps a worksheet member's decompressed byte stream. strings resolves
// SHARED_STRING_REF cells; pass sharedstrings.Empty() for a workbook with no
// shared string table.
func New(r io.Reader, strings *sharedstrings.Table) *Streamer {
	return &Streamer{r: r, strings: strings}
}

// Rows returns a lazy sequence of dense rows, in the order their </row>
// elements are observed. Ties on declared row number (malformed input) are
// not resolved by sorting; document order wins. Iteration stops, yielding a
// final error, on any taxonomy failure — most commonly a truncated member
// surfacing UNEXPECTED_EOF or CRC_MISMATCH from the layer below.
func (s *Streamer) Rows() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		dec := xml.NewDecoder(s.r)

		var (
			inSheetData  bool
			inRow        bool
			sparse       map[int]string
			maxCol       int
			lastCol      int
			curCol       int
			curType      string
			inValue      bool
			inInlineStr  bool
			inInlineText bool
			value        strings.Builder
		)

		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, classifyXMLError(err))
				return
			}

			switch el := tok.(type) {
			case xml.StartElement:
				switch el.Name.Local {
				case "sheetData":
					inSheetData = true
				case "row":
					if inSheetData {
						inRow = true
						sparse = make(map[int]string)
						maxCol = -1
						lastCol = -1
					}
				case "c":
					if !inRow {
						break
					}
					value.Reset()
					if ref, ok := attrValue(el.Attr, "r"); ok {
						col, _, err := ParseAddress(ref)
						if err != nil {
							yield(nil, err)
							return
						}
						curCol = col
					} else {
						curCol = lastCol + 1
					}
					lastCol = curCol
					if curCol > maxCol {
						maxCol = curCol
					}
					if t, ok := attrValue(el.Attr, "t"); ok {
						curType = t
					} else {
						curType = "n"
					}
				case "v":
					if inRow {
						inValue = true
						value.Reset()
					}
				case "is":
					if inRow {
						inInlineStr = true
					}
				case "t":
					if inInlineStr {
						inInlineText = true
						value.Reset()
					}
				}
			case xml.CharData:
				if inValue || inInlineText {
					value.Write(el)
				}
			case xml.EndElement:
				switch el.Name.Local {
				case "t":
					inInlineText = false
				case "v":
					inValue = false
				case "is":
					inInlineStr = false
				case "c":
					if inRow {
						cellValue, err := resolveCellValue(curType, value.String(), s.strings)
						if err != nil {
							yield(nil, err)
							return
						}
						sparse[curCol] = cellValue
					}
				case "row":
					if inRow {
						dense := makeDense(sparse, maxCol)
						inRow = false
						if !yield(dense, nil) {
							return
						}
					}
				case "sheetData":
					// Nothing past sheetData (page setup, drawings, ...) is
					// in scope; stop decoding rather than walking the rest
					// of the part just to reach EOF.
					inSheetData = false
					return
				}
			}
		}
	}
}

func resolveCellValue(cellType, raw string, table *sharedstrings.Table) (string, error) {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", xerr.Wrap(xerr.SharedStringIndex, raw, err)
		}
		v, ok := table.Get(idx)
		if !ok {
			return "", xerr.New(xerr.SharedStringIndex, fmt.Sprintf("index %d out of range (table has %d entries)", idx, table.Len()))
		}
		return v, nil
	case "b":
		switch raw {
		case "1":
			return "true", nil
		case "0":
			return "false", nil
		default:
			return raw, nil
		}
	default:
		// inlineStr, str, e, n, and an absent/unrecognized t all pass their
		// raw text through unchanged: numeric literals are never parsed or
		// validated here (see the worksheet-level design note on non-numeric
		// <v> content), and error tokens/formula results are themselves
		// already plain text.
		return raw, nil
	}
}

func makeDense(sparse map[int]string, maxCol int) []string {
	if maxCol < 0 {
		return []string{}
	}
	dense := make([]string, maxCol+1)
	for col, v := range sparse {
		dense[col] = v
	}
	return dense
}

func attrValue(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// classifyXMLError preserves a taxonomy error surfaced from lower layers
// (e.g. a truncated archive member) and classifies everything else as
// MALFORMED_XML, since encoding/xml's own syntax errors have no kind of
// their own.
func classifyXMLError(err error) error {
	if _, ok := xerr.Of(err); ok {
		return err
	}
	return xerr.Wrap(xerr.MalformedXML, "worksheet xml", err)
}
