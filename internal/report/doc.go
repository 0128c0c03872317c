// Package report renders a comparison result as a diff report.
//
// Every format carries the same rows, with the columns
//
//	Type, Asset ID, Index, Feed1, Feed2
//
// Diff rows come first in comparison order, followed by the records only
// present in feed 1 ("Missing in Feed 1") and then the records only present
// in feed 2 ("Missing in Feed 2"), each grouped by sorted asset ID.
//
// CSV is the default format. XLSX adds a Summary sheet and JSON embeds the
// full result together with the load reports of both feeds.
package report
