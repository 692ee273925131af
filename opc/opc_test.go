package opc

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/arvonova/xlsxflat/zipio"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
</Types>`

const minimalRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

func openArchive(t *testing.T, entries map[string]string) *zipio.Reader {
	t.Helper()
	path := buildZip(t, entries)
	r, err := zipio.Open(path, zipio.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpenLocatesWorkbookPart(t *testing.T) {
	archive := openArchive(t, map[string]string{
		"[Content_Types].xml": minimalContentTypes,
		"_rels/.rels":         minimalRootRels,
		"xl/workbook.xml":     "<workbook/>",
	})

	pkg, err := Open(archive)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pkg.WorkbookPart() != "xl/workbook.xml" {
		t.Errorf("WorkbookPart() = %q, want xl/workbook.xml", pkg.WorkbookPart())
	}
}

func TestOpenMissingContentTypes(t *testing.T) {
	archive := openArchive(t, map[string]string{
		"_rels/.rels": minimalRootRels,
	})
	_, err := Open(archive)
	se, ok := err.(*StructuralError)
	if !ok || se.Kind != "MissingContentTypes" {
		t.Errorf("err = %v, want MissingContentTypes", err)
	}
}

func TestOpenMissingRootRels(t *testing.T) {
	archive := openArchive(t, map[string]string{
		"[Content_Types].xml": minimalContentTypes,
	})
	_, err := Open(archive)
	se, ok := err.(*StructuralError)
	if !ok || se.Kind != "MissingRootRels" {
		t.Errorf("err = %v, want MissingRootRels", err)
	}
}

func TestOpenWorkbookNotFound(t *testing.T) {
	noOfficeDoc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail" Target="docProps/thumbnail.jpeg"/>
</Relationships>`
	archive := openArchive(t, map[string]string{
		"[Content_Types].xml": minimalContentTypes,
		"_rels/.rels":         noOfficeDoc,
	})
	_, err := Open(archive)
	se, ok := err.(*StructuralError)
	if !ok || se.Kind != "WorkbookNotFound" {
		t.Errorf("err = %v, want WorkbookNotFound", err)
	}
}

func TestContentTypeLookup(t *testing.T) {
	archive := openArchive(t, map[string]string{
		"[Content_Types].xml": minimalContentTypes,
		"_rels/.rels":         minimalRootRels,
		"xl/workbook.xml":     "<workbook/>",
	})
	pkg, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	if ct, ok := pkg.ContentType("xl/workbook.xml"); !ok || ct == "" {
		t.Errorf("ContentType(xl/workbook.xml) = %q, %v", ct, ok)
	}
	if ct, ok := pkg.ContentType("_rels/.rels"); !ok || ct == "" {
		t.Errorf("ContentType(_rels/.rels) via default = %q, %v", ct, ok)
	}
}
