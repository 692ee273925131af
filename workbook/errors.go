package workbook

import "fmt"

// DanglingSheetRelationshipError is returned when a sheet element
// references an rId absent from the workbook's relationship file.
type DanglingSheetRelationshipError struct {
	SheetName string
	RID       string
}

func (e *DanglingSheetRelationshipError) Error() string {
	return fmt.Sprintf("workbook: sheet %q references unknown relationship %q", e.SheetName, e.RID)
}

// SheetNotFoundError is returned by Find when no sheet matches the given
// name or index.
type SheetNotFoundError struct {
	Selector string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("workbook: sheet not found: %s", e.Selector)
}

// InvalidXMLError wraps an XML decode failure for the workbook part or its
// relationships.
type InvalidXMLError struct {
	Part string
	Err  error
}

func (e *InvalidXMLError) Error() string {
	return fmt.Sprintf("workbook: invalid xml in %s: %v", e.Part, e.Err)
}
func (e *InvalidXMLError) Unwrap() error { return e.Err }
