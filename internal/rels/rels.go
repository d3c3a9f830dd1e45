// Package rels parses OOXML relationship XML files (.rels).
//
// It exists to eliminate duplicated relationship-parsing code between
// workbookindex and any future consumer of other .rels parts (e.g. sheet-level
// rels), which cannot share the code directly due to the import graph.
package rels

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// WorksheetType is the relationship Type value OOXML uses for worksheet
// parts. Relationships of any other Type are not worksheet candidates and
// are ignored when building a worksheet directory.
const WorksheetType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"

// Relationships is the root element of a .rels XML document.
type Relationships struct {
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship is one entry in a .rels XML document.
type Relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// Table is a parsed .rels document indexed by relationship ID.
type Table struct {
	byID map[string]Relationship
}

// Parse reads a .rels XML document in full and indexes it by relationship ID.
// Relationship parts are package metadata, always small relative to a
// worksheet, so reading them to completion rather than streaming is the
// right tradeoff here.
func Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		if _, ok := xerr.Of(err); ok {
			return nil, err
		}
		return nil, xerr.Wrap(xerr.MalformedXML, "reading relationships part", err)
	}
	var doc Relationships
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, xerr.Wrap(xerr.MalformedXML, "parsing relationships XML", err)
	}
	t := &Table{byID: make(map[string]Relationship, len(doc.Relationships))}
	for _, rel := range doc.Relationships {
		t.byID[rel.ID] = rel
	}
	return t, nil
}

// Target returns the raw Target attribute for a relationship ID.
func (t *Table) Target(id string) (string, bool) {
	rel, ok := t.byID[id]
	return rel.Target, ok
}

// ResolveWorksheet returns the package-rooted target path for a relationship
// ID if it exists and its Type identifies a worksheet part. Targets are
// resolved relative to "xl/" when not already package-absolute, matching how
// workbook.xml.rels stores worksheet targets as paths relative to the xl/
// directory (e.g. "worksheets/sheet1.xml").
func (t *Table) ResolveWorksheet(id string) (string, bool) {
	rel, ok := t.byID[id]
	if !ok || rel.Type != WorksheetType {
		return "", false
	}
	return resolveTarget(rel.Target), true
}

func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return "xl/" + target
}
