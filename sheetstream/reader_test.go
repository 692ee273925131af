package sheetstream

import "testing"

type recordingHandler struct {
	rows     []Row
	metadata []Metadata
	errors   []string
}

func (h *recordingHandler) OnRow(r Row)                  { h.rows = append(h.rows, r) }
func (h *recordingHandler) OnWorksheetMetadata(m Metadata) { h.metadata = append(h.metadata, m) }
func (h *recordingHandler) OnError(msg string)            { h.errors = append(h.errors, msg) }

func TestParseSheetBasicRows(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <dimension ref="A1:B2"/>
  <sheetData>
    <row r="1" spans="1:2">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1"><v>42</v></c>
    </row>
    <row r="2">
      <c r="A2" t="inlineStr"><is><t>World</t></is></c>
      <c r="B2" t="b"><v>1</v></c>
    </row>
  </sheetData>
</worksheet>`

	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatalf("ParseSheet: %v", err)
	}
	if len(h.rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(h.rows))
	}

	r1 := h.rows[0]
	if len(r1.Cells) != 2 {
		t.Fatalf("row 1 cells = %d, want 2", len(r1.Cells))
	}
	if r1.Cells[0].Value.Kind != KindSharedString || r1.Cells[0].Value.SharedIndex != 0 {
		t.Errorf("A1 = %+v", r1.Cells[0].Value)
	}
	if r1.Cells[1].Value.Kind != KindNumber || r1.Cells[1].Value.Number != 42 {
		t.Errorf("B1 = %+v", r1.Cells[1].Value)
	}

	r2 := h.rows[1]
	if r2.Cells[0].Value.Kind != KindInlineString || r2.Cells[0].Value.Text != "World" {
		t.Errorf("A2 = %+v", r2.Cells[0].Value)
	}
	if r2.Cells[1].Value.Kind != KindBoolean || !r2.Cells[1].Value.Bool {
		t.Errorf("B2 = %+v", r2.Cells[1].Value)
	}
}

func TestParseSheetEmptyCellsAndRows(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1"/></row>
    <row r="2"/>
  </sheetData>
</worksheet>`
	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatal(err)
	}
	if len(h.rows) != 2 {
		t.Fatalf("len(rows) = %d", len(h.rows))
	}
	if h.rows[0].Cells[0].Value.Kind != KindEmpty {
		t.Errorf("A1 should be Empty, got %+v", h.rows[0].Cells[0].Value)
	}
	if len(h.rows[1].Cells) != 0 {
		t.Errorf("row 2 should have zero cells, got %d", len(h.rows[1].Cells))
	}
}

func TestParseSheetHiddenRow(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1" hidden="1"><c r="A1"><v>1</v></c></row>
  </sheetData>
</worksheet>`
	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatal(err)
	}
	if !h.rows[0].Hidden {
		t.Error("row should be hidden")
	}
}

func TestParseSheetMergeCellsAndCols(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <cols>
    <col min="1" max="2" hidden="1" width="12"/>
  </cols>
  <sheetData>
    <row r="1"><c r="A1"><v>1</v></c></row>
  </sheetData>
  <mergeCells count="1">
    <mergeCell ref="A1:B1"/>
  </mergeCells>
</worksheet>`
	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatal(err)
	}
	final := h.metadata[len(h.metadata)-1]
	if len(final.Columns) != 2 {
		t.Fatalf("Columns = %+v", final.Columns)
	}
	if !final.Columns[0].Hidden || final.Columns[0].Width != 12 {
		t.Errorf("Columns[0] = %+v", final.Columns[0])
	}
	if len(final.MergedRanges) != 1 {
		t.Fatalf("MergedRanges = %+v", final.MergedRanges)
	}
	mr := final.MergedRanges[0]
	if mr.TopLeft != (Coord{1, 1}) || mr.BottomRight != (Coord{1, 2}) {
		t.Errorf("MergedRanges[0] = %+v", mr)
	}
}

func TestParseSheetRejectsInvertedMergeRange(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData/>
  <mergeCells count="1">
    <mergeCell ref="B2:A1"/>
  </mergeCells>
</worksheet>`
	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatal(err)
	}
	final := h.metadata[len(h.metadata)-1]
	if len(final.MergedRanges) != 0 {
		t.Errorf("inverted range should be rejected, got %+v", final.MergedRanges)
	}
}

func TestParseSheetSpanCapHint(t *testing.T) {
	if got := spanCapacityHint("1:99999"); got != maxSpanHint {
		t.Errorf("spanCapacityHint = %d, want capped at %d", got, maxSpanHint)
	}
}

func TestParseSheetUnparseableNumberIsEmpty(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1"><v>not-a-number</v></c></row>
  </sheetData>
</worksheet>`
	h := &recordingHandler{}
	if err := ParseSheet([]byte(doc), h); err != nil {
		t.Fatal(err)
	}
	if h.rows[0].Cells[0].Value.Kind != KindEmpty {
		t.Errorf("unparseable number should decode Empty, got %+v", h.rows[0].Cells[0].Value)
	}
}
