package xlsxstream_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bsirb/xlsxstream"
)

type fixtureEntry struct {
	name    string
	content string
}

// buildWorkbook assembles a minimal but real .xlsx package on disk and
// returns its path, using the standard library's zip writer the same way the
// workbookindex test suite does. Its CreateHeader writes each deflated
// member with a trailing data descriptor rather than sizes in the local
// header.
func buildWorkbook(t *testing.T, entries []fixtureEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.content)); err != nil {
			t.Fatalf("Write(%q): %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Writer.Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("f.Close: %v", err)
	}
	return path
}

const relsXML = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`

func singleSheetWorkbookXML(sheetName string) string {
	return `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="` + sheetName + `" sheetId="1" r:id="rId1"/>
  </sheets>
</workbook>`
}

// S1: two-column two-row sheet.
func TestScenarioS1TwoColumnTwoRowSheet(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="inlineStr"><is><t>name</t></is></c>
      <c r="B1" t="inlineStr"><is><t>age</t></is></c>
    </row>
    <row r="2">
      <c r="A2" t="inlineStr"><is><t>alice</t></is></c>
      <c r="B2"><v>30</v></c>
    </row>
  </sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})

	r, err := xlsxstream.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	n, err := r.ToCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}
	if n != 2 {
		t.Fatalf("row count = %d, want 2", n)
	}
	want := "name,age\r\nalice,30\r\n"
	if buf.String() != want {
		t.Fatalf("CSV = %q, want %q", buf.String(), want)
	}
}

// S3: shared strings.
func TestScenarioS3SharedStrings(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1" t="s"><v>1</v></c></row></sheetData>
</worksheet>`
	sstXML := `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>hello</t></si><si><t>world</t></si>
</sst>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/sharedStrings.xml", sstXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})

	r, err := xlsxstream.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var rows [][]string
	for row, err := range r.Rows(context.Background()) {
		if err != nil {
			t.Fatalf("Rows: %v", err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 1 || len(rows[0]) != 1 || rows[0][0] != "world" {
		t.Fatalf("rows = %v, want [[world]]", rows)
	}
}

// S4: non-default sheet selection.
func TestScenarioS4NonDefaultSheet(t *testing.T) {
	multiSheetWB := `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Summary" sheetId="1" r:id="rId1"/>
    <sheet name="Data" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`
	rels := `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
</Relationships>`
	summarySheet := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>summary-cell</t></is></c></row></sheetData>
</worksheet>`
	dataSheet := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>data-cell</t></is></c></row></sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", multiSheetWB},
		{"xl/_rels/workbook.xml.rels", rels},
		{"xl/worksheets/sheet1.xml", summarySheet},
		{"xl/worksheets/sheet2.xml", dataSheet},
	})

	r, err := xlsxstream.New(path, xlsxstream.WithSheetName("Data"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var rows [][]string
	for row, err := range r.Rows(context.Background()) {
		if err != nil {
			t.Fatalf("Rows: %v", err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 1 || rows[0][0] != "data-cell" {
		t.Fatalf("rows = %v, want [[data-cell]]", rows)
	}
}

// S5: missing sheet.
func TestScenarioS5MissingSheet(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>x</t></is></c></row></sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})

	r, err := xlsxstream.New(path, xlsxstream.WithSheetName("Ghost"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var sawRow bool
	var gotErr error
	for row, err := range r.Rows(context.Background()) {
		if row != nil {
			sawRow = true
		}
		if err != nil {
			gotErr = err
		}
	}
	if sawRow {
		t.Fatalf("expected no rows before SHEET_NOT_FOUND")
	}
	kind, ok := xlsxstream.KindOf(gotErr)
	if !ok || kind != xlsxstream.SheetNotFound {
		t.Fatalf("err = %v, want SHEET_NOT_FOUND", gotErr)
	}
}

func TestIdempotentToCSV(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>x</t></is></c></row></sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})

	run := func() string {
		r, err := xlsxstream.New(path)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var buf bytes.Buffer
		if _, err := r.ToCSV(context.Background(), &buf); err != nil {
			t.Fatalf("ToCSV: %v", err)
		}
		return buf.String()
	}
	a, b := run(), run()
	if a != b {
		t.Fatalf("non-idempotent output:\n%q\nvs\n%q", a, b)
	}
}

func TestMetadataReportsSheetNamesAfterPass(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData></sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})

	r, err := xlsxstream.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before, err := r.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if before.SheetNames != nil {
		t.Fatalf("SheetNames before any pass = %v, want nil", before.SheetNames)
	}

	for range r.Rows(context.Background()) {
	}

	after, err := r.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if len(after.SheetNames) != 1 || after.SheetNames[0] != "Sheet1" {
		t.Fatalf("SheetNames after pass = %v, want [Sheet1]", after.SheetNames)
	}
}

func TestUnsupportedSourceURI(t *testing.T) {
	// "ftp://..." falls through to "local path" in the grammar (anything not
	// s3/http is treated as a filesystem path), so construction itself
	// succeeds; exercise the genuinely malformed s3 URI instead, which is
	// rejected at construction time.
	_, err := xlsxstream.New("s3://")
	kind, ok := xlsxstream.KindOf(err)
	if !ok || kind != xlsxstream.UnsupportedSource {
		t.Fatalf("err = %v, want UNSUPPORTED_SOURCE", err)
	}
}

func TestRowsContextCancelled(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData><row r="1"><c r="A1"><v>1</v></c></row></sheetData>
</worksheet>`
	path := buildWorkbook(t, []fixtureEntry{
		{"xl/workbook.xml", singleSheetWorkbookXML("Sheet1")},
		{"xl/_rels/workbook.xml.rels", relsXML},
		{"xl/worksheets/sheet1.xml", sheetXML},
	})
	r, err := xlsxstream.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var gotErr error
	for _, err := range r.Rows(ctx) {
		if err != nil {
			gotErr = err
		}
	}
	if gotErr == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestParseURIThroughNewUsesLocalPathForPlainStrings(t *testing.T) {
	// Guards that a bare relative path is never misclassified as a remote
	// source by New's URI grammar.
	r, err := xlsxstream.New(strings.Repeat("a", 3) + ".xlsx")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// The file does not exist, so only the local transport reports NOT_FOUND.
	_, err = r.Metadata(context.Background())
	if kind, ok := xlsxstream.KindOf(err); !ok || kind != xlsxstream.NotFound {
		t.Fatalf("Metadata err = %v, want NOT_FOUND from the local source", err)
	}
}
