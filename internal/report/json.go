package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"feeddiff/internal/compare"
	"feeddiff/internal/feed"
)

type jsonDocument struct {
	GeneratedAt *time.Time           `json:"generated_at,omitempty"`
	Summary     compare.Summary      `json:"summary"`
	Rows        []jsonRow            `json:"rows"`
	Diffs       []compare.Diff       `json:"diffs"`
	Unmatched1  compare.UnmatchedSet `json:"unmatched_feed1"`
	Unmatched2  compare.UnmatchedSet `json:"unmatched_feed2"`
	Feed1       *feed.LoadReport     `json:"feed1,omitempty"`
	Feed2       *feed.LoadReport     `json:"feed2,omitempty"`
}

type jsonRow struct {
	Type    string `json:"type"`
	AssetID string `json:"asset_id"`
	Index   string `json:"index"`
	Feed1   string `json:"feed1"`
	Feed2   string `json:"feed2"`
}

// EncodeJSON writes doc as an indented JSON document
func EncodeJSON(out io.Writer, doc *Document) error {
	res := doc.Result
	if res == nil {
		res = &compare.Result{Diffs: []compare.Diff{}, Unmatched1: compare.UnmatchedSet{}, Unmatched2: compare.UnmatchedSet{}}
	}

	jd := jsonDocument{
		Summary:    res.Summary,
		Diffs:      res.Diffs,
		Unmatched1: res.Unmatched1,
		Unmatched2: res.Unmatched2,
		Feed1:      doc.Feed1,
		Feed2:      doc.Feed2,
	}
	if !doc.GeneratedAt.IsZero() {
		ts := doc.GeneratedAt.UTC()
		jd.GeneratedAt = &ts
	}

	rows := Rows(res)
	jd.Rows = make([]jsonRow, len(rows))
	for i, r := range rows {
		jd.Rows[i] = jsonRow{Type: r[0], AssetID: r[1], Index: r[2], Feed1: r[3], Feed2: r[4]}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jd); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
