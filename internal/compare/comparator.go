// Package compare aligns the records of two feeds per asset and reports
// where they disagree.
package compare

import (
	"sort"

	"feeddiff/internal/feed"
)

// Diff is a positional mismatch between the two feeds for one asset
type Diff struct {
	AssetID string      `json:"asset_id"`
	Index   int         `json:"index"`
	Feed1   feed.Record `json:"feed1"`
	Feed2   feed.Record `json:"feed2"`
}

// UnmatchedSet holds, per asset, the trailing records one feed has and the
// other lacks. Assets without leftovers have no key.
type UnmatchedSet map[string][]feed.Record

// Assets returns the asset identifiers of the set, sorted
func (u UnmatchedSet) Assets() []string {
	assets := make([]string, 0, len(u))
	for asset := range u {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Count returns the number of records across all assets
func (u UnmatchedSet) Count() int {
	n := 0
	for _, records := range u {
		n += len(records)
	}
	return n
}

// Summary holds the counters of one comparison
type Summary struct {
	Assets        int `json:"assets"`
	ComparedPairs int `json:"compared_pairs"`
	EqualPairs    int `json:"equal_pairs"`
	Diffs         int `json:"diffs"`
	Unmatched1    int `json:"unmatched_feed1"`
	Unmatched2    int `json:"unmatched_feed2"`
}

// Result is the outcome of comparing two feeds
type Result struct {
	// Diffs are ordered by asset, then by index.
	Diffs []Diff `json:"diffs"`
	// Unmatched1 holds records present only in feed 1.
	Unmatched1 UnmatchedSet `json:"unmatched_feed1"`
	// Unmatched2 holds records present only in feed 2.
	Unmatched2 UnmatchedSet `json:"unmatched_feed2"`
	Summary    Summary      `json:"summary"`
}

// HasDifferences reports whether the feeds disagree anywhere
func (r *Result) HasDifferences() bool {
	return len(r.Diffs) > 0 || len(r.Unmatched1) > 0 || len(r.Unmatched2) > 0
}

// Compare aligns the records of every asset by position. Records at the
// same index are compared field by field as exact strings. Records beyond
// the shorter list are reported as unmatched on the side that has them.
//
// Compare does not modify its inputs and always produces the same result
// for the same tables.
func Compare(feed1, feed2 feed.Table) *Result {
	res := &Result{
		Diffs:      []Diff{},
		Unmatched1: UnmatchedSet{},
		Unmatched2: UnmatchedSet{},
	}

	assets := unionAssets(feed1, feed2)
	res.Summary.Assets = len(assets)

	for _, asset := range assets {
		list1, list2 := feed1[asset], feed2[asset]
		minLen := min(len(list1), len(list2))

		for i := 0; i < minLen; i++ {
			res.Summary.ComparedPairs++
			if list1[i] == list2[i] {
				res.Summary.EqualPairs++
				continue
			}
			res.Diffs = append(res.Diffs, Diff{
				AssetID: asset,
				Index:   i,
				Feed1:   list1[i],
				Feed2:   list2[i],
			})
		}

		if len(list1) > minLen {
			res.Unmatched1[asset] = append([]feed.Record(nil), list1[minLen:]...)
		}
		if len(list2) > minLen {
			res.Unmatched2[asset] = append([]feed.Record(nil), list2[minLen:]...)
		}
	}

	res.Summary.Diffs = len(res.Diffs)
	res.Summary.Unmatched1 = res.Unmatched1.Count()
	res.Summary.Unmatched2 = res.Unmatched2.Count()
	return res
}

func unionAssets(feed1, feed2 feed.Table) []string {
	seen := make(map[string]struct{}, len(feed1)+len(feed2))
	for asset := range feed1 {
		seen[asset] = struct{}{}
	}
	for asset := range feed2 {
		seen[asset] = struct{}{}
	}

	assets := make([]string, 0, len(seen))
	for asset := range seen {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
