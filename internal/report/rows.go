package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"feeddiff/internal/compare"
	"feeddiff/internal/feed"
)

// Row types
const (
	TypeDiff           = "Diff"
	TypeMissingInFeed1 = "Missing in Feed 1"
	TypeMissingInFeed2 = "Missing in Feed 2"
)

// Headers are the report columns
var Headers = []string{"Type", "Asset ID", "Index", "Feed1", "Feed2"}

// Document is everything a report renders
type Document struct {
	Result      *compare.Result
	Feed1       *feed.LoadReport
	Feed2       *feed.LoadReport
	GeneratedAt time.Time
}

// Rows flattens a result into report rows, without the header
func Rows(res *compare.Result) [][]string {
	if res == nil {
		return [][]string{}
	}

	rows := make([][]string, 0, len(res.Diffs)+res.Unmatched1.Count()+res.Unmatched2.Count())
	for _, d := range res.Diffs {
		rows = append(rows, []string{TypeDiff, d.AssetID, strconv.Itoa(d.Index), d.Feed1.String(), d.Feed2.String()})
	}
	for _, asset := range res.Unmatched1.Assets() {
		for _, r := range res.Unmatched1[asset] {
			rows = append(rows, []string{TypeMissingInFeed1, asset, "", r.String(), ""})
		}
	}
	for _, asset := range res.Unmatched2.Assets() {
		for _, r := range res.Unmatched2[asset] {
			rows = append(rows, []string{TypeMissingInFeed2, asset, "", "", r.String()})
		}
	}
	return rows
}

// Format is a report output format
type Format string

// Supported formats
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat resolves a format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName replaces the extension of name with the format's
func (f Format) FileName(name string) string {
	if name == "" {
		name = "diff_report"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + f.Extension()
}
