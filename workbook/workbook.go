// Package workbook parses the xl/workbook.xml part and its sibling
// relationships file, exposing the sheet list, date epoch, and rId
// resolution.
package workbook

import (
	"encoding/xml"
	"path"
	"strings"

	"github.com/arvonova/xlsxflat/opc"
)

// DateEpoch identifies which day is serial 0/1.
type DateEpoch int

const (
	Epoch1900 DateEpoch = iota
	Epoch1904
)

// Visibility mirrors the OOXML sheet @state attribute.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
	VeryHidden
)

// SheetInfo describes one entry in the workbook's sheet list.
type SheetInfo struct {
	Name       string
	SheetID    string
	RID        string
	Target     string // resolved, package-absolute
	Visibility Visibility
}

type workbookXML struct {
	XMLName   xml.Name     `xml:"workbook"`
	Props     workbookPrXML `xml:"workbookPr"`
	Sheets    sheetsXML    `xml:"sheets"`
}

type workbookPrXML struct {
	Date1904 string `xml:"date1904,attr"`
}

type sheetsXML struct {
	Sheet []sheetRefXML `xml:"sheet"`
}

type sheetRefXML struct {
	Name    string `xml:"name,attr"`
	SheetID string `xml:"sheetId,attr"`
	State   string `xml:"state,attr"`
	RID     string `xml:"id,attr"`
}

type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// Workbook holds the parsed sheet list, date epoch, and rId -> target map
// resolved relative to the workbook part's own directory.
type Workbook struct {
	part      string
	base      string
	epoch     DateEpoch
	sheets    []SheetInfo
	relByID   map[string]string
}

// Open parses the workbook part located by pkg and its
// _rels/<part>.rels sibling.
func Open(pkg *opc.Package) (*Workbook, error) {
	part := pkg.WorkbookPart()
	base := path.Dir(part)
	if base == "." {
		base = ""
	}

	data, err := pkg.Archive().Read(part)
	if err != nil {
		return nil, err
	}
	var wb workbookXML
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, &InvalidXMLError{Part: part, Err: err}
	}

	relByID := make(map[string]string)
	relsPart := relsPathFor(part)
	if relsData, err := pkg.Archive().Read(relsPart); err == nil {
		var rels relationshipsXML
		if err := xml.Unmarshal(relsData, &rels); err != nil {
			return nil, &InvalidXMLError{Part: relsPart, Err: err}
		}
		for _, r := range rels.Relationship {
			relByID[r.ID] = r.Target
		}
	}

	w := &Workbook{
		part:    part,
		base:    base,
		epoch:   parseEpoch(wb.Props.Date1904),
		relByID: relByID,
	}

	for _, s := range wb.Sheets.Sheet {
		target, ok := relByID[s.RID]
		if !ok {
			return nil, &DanglingSheetRelationshipError{SheetName: s.Name, RID: s.RID}
		}
		w.sheets = append(w.sheets, SheetInfo{
			Name:       s.Name,
			SheetID:    s.SheetID,
			RID:        s.RID,
			Target:     w.joinBase(target),
			Visibility: parseVisibility(s.State),
		})
	}

	return w, nil
}

// relsPathFor returns the relationships sibling for an arbitrary part
// path: "<dir>/_rels/<file>.rels".
func relsPathFor(part string) string {
	dir := path.Dir(part)
	file := path.Base(part)
	if dir == "." {
		return "_rels/" + file + ".rels"
	}
	return dir + "/_rels/" + file + ".rels"
}

func parseEpoch(date1904 string) DateEpoch {
	switch strings.ToLower(strings.TrimSpace(date1904)) {
	case "1", "true":
		return Epoch1904
	default:
		return Epoch1900
	}
}

func parseVisibility(state string) Visibility {
	switch state {
	case "hidden":
		return Hidden
	case "veryHidden":
		return VeryHidden
	default:
		return Visible
	}
}

// joinBase resolves a sheet relationship target, which is relative to the
// workbook part's own directory, into a package-absolute path.
func (w *Workbook) joinBase(target string) string {
	target = strings.TrimPrefix(target, "/")
	if w.base == "" {
		return target
	}
	return path.Join(w.base, target)
}

// Sheets returns the workbook's sheet list in document order.
func (w *Workbook) Sheets() []SheetInfo {
	out := make([]SheetInfo, len(w.sheets))
	copy(out, w.sheets)
	return out
}

// Find looks up a sheet by name.
func (w *Workbook) Find(name string) (SheetInfo, error) {
	for _, s := range w.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return SheetInfo{}, &SheetNotFoundError{Selector: name}
}

// FindIndex looks up a sheet by its zero-based position; -1 selects the
// first sheet.
func (w *Workbook) FindIndex(index int) (SheetInfo, error) {
	if index == -1 {
		index = 0
	}
	if index < 0 || index >= len(w.sheets) {
		return SheetInfo{}, &SheetNotFoundError{Selector: "index"}
	}
	return w.sheets[index], nil
}

// DateEpoch returns the workbook's date epoch.
func (w *Workbook) DateEpoch() DateEpoch { return w.epoch }

// Resolve maps a relationship id to its package-absolute target, relative
// to the workbook part's base directory.
func (w *Workbook) Resolve(rid string) (string, bool) {
	target, ok := w.relByID[rid]
	if !ok {
		return "", false
	}
	return w.joinBase(target), true
}

// Base returns the workbook part's own directory, used by downstream
// components that need to resolve sibling-relative paths themselves.
func (w *Workbook) Base() string { return w.base }
