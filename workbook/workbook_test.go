package workbook

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/arvonova/xlsxflat/opc"
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

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
</Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

func openPackage(t *testing.T, extra map[string]string) *opc.Package {
	t.Helper()
	entries := map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         rootRels,
	}
	for k, v := range extra {
		entries[k] = v
	}
	path := buildZip(t, entries)
	r, err := zipio.Open(path, zipio.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	pkg, err := opc.Open(r)
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func TestOpenParsesSheetsAndEpoch(t *testing.T) {
	wbXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <workbookPr date1904="1"/>
  <sheets>
    <sheet name="Data" sheetId="1" r:id="rId1"/>
    <sheet name="Hidden" sheetId="2" state="hidden" r:id="rId2"/>
  </sheets>
</workbook>`
	wbRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
</Relationships>`

	pkg := openPackage(t, map[string]string{
		"xl/workbook.xml":               wbXML,
		"xl/_rels/workbook.xml.rels":    wbRels,
	})

	wb, err := Open(pkg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if wb.DateEpoch() != Epoch1904 {
		t.Errorf("DateEpoch() = %v, want Epoch1904", wb.DateEpoch())
	}
	sheets := wb.Sheets()
	if len(sheets) != 2 {
		t.Fatalf("len(sheets) = %d, want 2", len(sheets))
	}
	if sheets[0].Target != "xl/worksheets/sheet1.xml" {
		t.Errorf("sheets[0].Target = %q", sheets[0].Target)
	}
	if sheets[1].Visibility != Hidden {
		t.Errorf("sheets[1].Visibility = %v, want Hidden", sheets[1].Visibility)
	}

	found, err := wb.Find("Data")
	if err != nil || found.Name != "Data" {
		t.Errorf("Find(Data) = %+v, %v", found, err)
	}

	byIndex, err := wb.FindIndex(-1)
	if err != nil || byIndex.Name != "Data" {
		t.Errorf("FindIndex(-1) = %+v, %v", byIndex, err)
	}
}

func TestDanglingSheetRelationship(t *testing.T) {
	wbXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Data" sheetId="1" r:id="rId99"/>
  </sheets>
</workbook>`
	pkg := openPackage(t, map[string]string{
		"xl/workbook.xml": wbXML,
	})
	_, err := Open(pkg)
	if _, ok := err.(*DanglingSheetRelationshipError); !ok {
		t.Errorf("err = %v, want DanglingSheetRelationshipError", err)
	}
}

func TestDefaultEpochIs1900(t *testing.T) {
	wbXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets/>
</workbook>`
	pkg := openPackage(t, map[string]string{"xl/workbook.xml": wbXML})
	wb, err := Open(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if wb.DateEpoch() != Epoch1900 {
		t.Errorf("DateEpoch() = %v, want Epoch1900", wb.DateEpoch())
	}
}
