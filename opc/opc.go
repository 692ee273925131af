// Package opc resolves the Open Packaging Conventions layer of an OOXML
// archive: the content-types catalog and the root relationship set, used
// to locate the workbook part.
package opc

import (
	"encoding/xml"
	"strings"

	"github.com/arvonova/xlsxflat/zipio"
)

const (
	contentTypesPart = "[Content_Types].xml"
	rootRelsPart     = "_rels/.rels"
)

type contentTypesXML struct {
	XMLName  xml.Name        `xml:"Types"`
	Default  []defaultXML    `xml:"Default"`
	Override []overrideXML   `xml:"Override"`
}

type defaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
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

// Package is a parsed OOXML package: its content-types catalog and root
// relationships, with the workbook part already located.
type Package struct {
	archive       *zipio.Reader
	defaultTypes  map[string]string // extension (no dot) -> content type
	overrideTypes map[string]string // part name -> content type
	workbookPart  string
}

// Open parses [Content_Types].xml and _rels/.rels from the given archive
// and locates the workbook part.
func Open(archive *zipio.Reader) (*Package, error) {
	p := &Package{
		archive:       archive,
		defaultTypes:  make(map[string]string),
		overrideTypes: make(map[string]string),
	}

	ctData, err := archive.Read(contentTypesPart)
	if err != nil {
		return nil, &StructuralError{Kind: "MissingContentTypes"}
	}
	var ct contentTypesXML
	if err := xml.Unmarshal(ctData, &ct); err != nil {
		return nil, &InvalidXMLError{Part: contentTypesPart, Err: err}
	}
	for _, d := range ct.Default {
		p.defaultTypes[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range ct.Override {
		p.overrideTypes[o.PartName] = o.ContentType
	}

	relsData, err := archive.Read(rootRelsPart)
	if err != nil {
		return nil, &StructuralError{Kind: "MissingRootRels"}
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(relsData, &rels); err != nil {
		return nil, &InvalidXMLError{Part: rootRelsPart, Err: err}
	}

	for _, rel := range rels.Relationship {
		if strings.Contains(rel.Type, "officeDocument") {
			p.workbookPart = normalizeTarget(rel.Target)
			break
		}
	}
	if p.workbookPart == "" {
		return nil, &StructuralError{Kind: "WorkbookNotFound"}
	}

	return p, nil
}

// normalizeTarget strips a leading slash from a package-absolute target,
// since the archive's own catalog stores paths without one.
func normalizeTarget(target string) string {
	return strings.TrimPrefix(target, "/")
}

// Archive returns the underlying Zip reader, for components that need to
// read sibling parts directly (styles, shared strings, worksheets).
func (p *Package) Archive() *zipio.Reader { return p.archive }

// WorkbookPart returns the package-absolute path of the workbook part
// located via the root relationships.
func (p *Package) WorkbookPart() string { return p.workbookPart }

// ContentType returns the declared content type for a part, consulting
// Override entries first and falling back to the Default for the part's
// extension. It is informational only; nothing in the pipeline depends on
// matching a specific declared type.
func (p *Package) ContentType(partName string) (string, bool) {
	if ct, ok := p.overrideTypes["/"+strings.TrimPrefix(partName, "/")]; ok {
		return ct, true
	}
	ext := partName
	if i := strings.LastIndex(partName, "."); i >= 0 {
		ext = partName[i+1:]
	}
	ct, ok := p.defaultTypes[strings.ToLower(ext)]
	return ct, ok
}
