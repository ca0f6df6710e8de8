// Package ranking merges per-partition results into one total order.
package ranking

import (
	"sort"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/shopspring/decimal"
)

// PriceBand is the width within which prices rank as equal.
var PriceBand = decimal.NewFromInt(1000)

// Ranker orders listings. ExclusiveThreshold is the id below which a listing
// is in the exclusivity tier.
type Ranker struct {
	ExclusiveThreshold int64
}

// Merge unions the partitions, keeps the most recently modified copy of any
// duplicated id, and sorts the result.
func (r Ranker) Merge(partitions ...[]listing.Listing) []listing.Listing {
	byID := make(map[int64]int)
	var out []listing.Listing
	for _, rows := range partitions {
		for _, row := range rows {
			if i, seen := byID[row.ID]; seen {
				if row.ModifiedAt.After(out[i].ModifiedAt) {
					out[i] = row
				}
				continue
			}
			byID[row.ID] = len(out)
			out = append(out, row)
		}
	}
	r.Sort(out)
	return out
}

// Sort orders rows by exclusivity tier, status tier, price band (descending),
// modification time (descending) and finally id.
func (r Ranker) Sort(rows []listing.Listing) {
	sort.SliceStable(rows, func(i, j int) bool {
		return r.Less(&rows[i], &rows[j])
	})
}

// Less is the ranking comparison.
func (r Ranker) Less(a, b *listing.Listing) bool {
	if ta, tb := r.exclusivityTier(a), r.exclusivityTier(b); ta != tb {
		return ta < tb
	}
	if ta, tb := StatusTier(a.Status), StatusTier(b.Status); ta != tb {
		return ta < tb
	}
	if ba, bb := Band(a.EffectivePrice()), Band(b.EffectivePrice()); !ba.Equal(bb) {
		return ba.GreaterThan(bb)
	}
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	return a.ID < b.ID
}

func (r Ranker) exclusivityTier(l *listing.Listing) int {
	if l.ID < r.ExclusiveThreshold {
		return 0
	}
	return 1
}

// StatusTier ranks Active first, then the in-contract states, then the rest.
func StatusTier(s listing.Status) int {
	switch s {
	case listing.StatusActive:
		return 0
	case listing.StatusPending, listing.StatusActiveUnderContract:
		return 1
	}
	return 2
}

// Band floors a price to its $1,000 band.
func Band(price decimal.Decimal) decimal.Decimal {
	return price.Div(PriceBand).Floor()
}

// Page returns rows[offset:offset+limit], clamped. A limit <= 0 means no limit.
func Page(rows []listing.Listing, offset, limit int) []listing.Listing {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []listing.Listing{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
