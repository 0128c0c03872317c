package feed

import (
	"sort"
	"strings"
)

// Column names every feed header must carry
const (
	ColumnAssetID = "asset_id"
	ColumnDate    = "Date"
	ColumnOpen    = "Open"
	ColumnClose   = "Close"
	ColumnHigh    = "High"
	ColumnLow     = "Low"
	ColumnVolume  = "Volume"
)

// RequiredColumns lists the header columns a feed must provide.
// Header order in the source file is irrelevant, lookup is by name.
var RequiredColumns = []string{
	ColumnAssetID,
	ColumnDate,
	ColumnOpen,
	ColumnClose,
	ColumnHigh,
	ColumnLow,
	ColumnVolume,
}

// fieldSeparator joins record fields when a record is rendered as one cell
const fieldSeparator = ";"

// Record is one per-day row of a feed. All values keep their original text,
// two records are equal only when every field matches exactly.
type Record struct {
	Date   string `json:"date"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// Fields returns the record values in their fixed order:
// date, open, high, low, close, volume.
func (r Record) Fields() []string {
	return []string{r.Date, r.Open, r.High, r.Low, r.Close, r.Volume}
}

// String renders the record as a single report cell
func (r Record) String() string {
	return strings.Join(r.Fields(), fieldSeparator)
}

// Table maps an asset identifier to its records in source row order.
type Table map[string][]Record

// Assets returns the asset identifiers of the table, sorted
func (t Table) Assets() []string {
	assets := make([]string, 0, len(t))
	for asset := range t {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// RecordCount returns the number of records across all assets
func (t Table) RecordCount() int {
	n := 0
	for _, records := range t {
		n += len(records)
	}
	return n
}

// Records returns the records of an asset, or nil when the asset is absent.
func (t Table) Records(asset string) []Record {
	return t[asset]
}
