// Package workbookindex implements the Package Index: the first of the
// reader facade's two passes. It streams the package's ZIP archive forward
// exactly once and recovers the shared string table plus the worksheet
// directory (sheet name -> worksheet XML member path), joining
// xl/workbook.xml's <sheet> list against xl/_rels/workbook.xml.rels by
// relationship id.
package workbookindex

import (
	"encoding/xml"
	"io"

	"github.com/bsirb/xlsxstream/internal/rels"
	"github.com/bsirb/xlsxstream/internal/xerr"
	"github.com/bsirb/xlsxstream/internal/ziparchive"
	"github.com/bsirb/xlsxstream/sharedstrings"
)

const (
	workbookPart     = "xl/workbook.xml"
	workbookRelsPart = "xl/_rels/workbook.xml.rels"
	sharedStringPart = "xl/sharedStrings.xml"
)

// Sheet is one entry in the worksheet directory, in the order its <sheet>
// element appeared in xl/workbook.xml.
type Sheet struct {
	Name   string
	Target string
}

// Index is the fully populated Package Index from one pass over the
// archive.
type Index struct {
	Sheets  []Sheet
	Strings *sharedstrings.Table
}

// ByName looks up a sheet by its user-visible name.
func (ix *Index) ByName(name string) (Sheet, bool) {
	for _, s := range ix.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// First returns the first sheet recorded in workbook.xml document order,
// used when the caller does not request a specific sheet.
func (ix *Index) First() (Sheet, bool) {
	if len(ix.Sheets) == 0 {
		return Sheet{}, false
	}
	return ix.Sheets[0], true
}

type sheetRecord struct {
	name string
	rid  string
}

// Build streams r (a ZIP archive) and constructs the Package Index. Members
// are read until all three relevant parts (workbook, relationships, and the
// optional shared string table) have been observed; if that never happens
// before EOF, the archive is exhausted and absence is treated as the
// sharedStrings.xml part simply not existing (an empty table), or as a
// MISSING_WORKBOOK_PART / MISSING_RELATIONSHIPS_PART error for the two
// required parts.
func Build(r io.Reader, obs xerr.Observer) (*Index, error) {
	archive := ziparchive.NewArchive(r)

	var (
		records      []sheetRecord
		relsTable    *rels.Table
		stringsTable *sharedstrings.Table
		haveWorkbook bool
		haveRels     bool
		haveStrings  bool
	)

	for {
		hdr, member, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch hdr.Name {
		case workbookPart:
			records, err = parseWorkbookSheets(member)
			if err != nil {
				return nil, err
			}
			haveWorkbook = true
		case workbookRelsPart:
			relsTable, err = rels.Parse(member)
			if err != nil {
				return nil, err
			}
			haveRels = true
		case sharedStringPart:
			stringsTable, err = sharedstrings.Parse(member)
			if err != nil {
				return nil, err
			}
			haveStrings = true
		default:
			// Not one of the three parts this pass cares about; drained by
			// the next Next() call.
		}

		if haveWorkbook && haveRels && haveStrings {
			break
		}
	}

	if !haveWorkbook {
		return nil, xerr.New(xerr.MissingWorkbookPart, workbookPart)
	}
	if !haveRels {
		return nil, xerr.New(xerr.MissingRelationshipsPart, workbookRelsPart)
	}
	if stringsTable == nil {
		stringsTable = sharedstrings.Empty()
	}

	sheets := joinSheets(records, relsTable, obs)
	if len(sheets) == 0 {
		xerr.Notify(obs, xerr.EmptyWorkbook, workbookPart)
	}

	return &Index{Sheets: sheets, Strings: stringsTable}, nil
}

func joinSheets(records []sheetRecord, relsTable *rels.Table, obs xerr.Observer) []Sheet {
	seen := make(map[string]bool, len(records))
	sheets := make([]Sheet, 0, len(records))
	for _, rec := range records {
		target, ok := relsTable.ResolveWorksheet(rec.rid)
		if !ok {
			continue
		}
		if seen[rec.name] {
			xerr.Notify(obs, xerr.DuplicateSheetName, rec.name)
			continue
		}
		seen[rec.name] = true
		sheets = append(sheets, Sheet{Name: rec.name, Target: target})
	}
	return sheets
}

// parseWorkbookSheets streams xl/workbook.xml and collects the <sheet>
// elements under <sheets>, in document order, each paired with its
// relationship id.
func parseWorkbookSheets(r io.Reader) ([]sheetRecord, error) {
	dec := xml.NewDecoder(r)
	var records []sheetRecord
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := xerr.Of(err); ok {
				return nil, err
			}
			return nil, xerr.Wrap(xerr.MalformedXML, workbookPart, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "sheet" {
			continue
		}
		var name, rid string
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "name":
				name = a.Value
			case "id":
				rid = a.Value
			}
		}
		if name == "" || rid == "" {
			continue
		}
		records = append(records, sheetRecord{name: name, rid: rid})
	}
	return records, nil
}
