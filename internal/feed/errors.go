package feed

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingHeader is returned when a feed has no header row
	ErrMissingHeader = errors.New("feed header is missing")
	// ErrMissingColumn is matched by MissingColumnError
	ErrMissingColumn = errors.New("feed header is missing a required column")
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported feed format")
)

// MissingColumnError reports every required column absent from a header.
type MissingColumnError struct {
	Columns []string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("feed header is missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Is lets errors.Is match ErrMissingColumn
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// IssueKind classifies a skipped row
type IssueKind string

const (
	// IssueMalformedRow marks empty rows and rows shorter than the required column count
	IssueMalformedRow IssueKind = "malformed_row"
	// IssueFieldExtraction marks rows where a named column could not be read
	IssueFieldExtraction IssueKind = "field_extraction"
)

// RowIssue describes one row dropped during a load.
type RowIssue struct {
	// Row is the 1-based position within the supplied rows; the header is row 1.
	Row    int       `json:"row"`
	Kind   IssueKind `json:"kind"`
	Reason string    `json:"reason"`
	Cells  []string  `json:"cells,omitempty"`
}
