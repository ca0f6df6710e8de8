package filter

import (
	"strings"

	"github.com/parcelmap/listing-search/internal/core/listing"
)

var statusKeyCleaner = strings.NewReplacer(" ", "", "_", "", "-", "")

// statusAliases maps client status labels onto stored statuses.
// "Pending" and "Under Agreement" both cover the two in-contract states.
var statusAliases = map[string][]listing.Status{
	"active":              {listing.StatusActive},
	"activeundercontract": {listing.StatusActiveUnderContract},
	"pending":             {listing.StatusPending, listing.StatusActiveUnderContract},
	"underagreement":      {listing.StatusPending, listing.StatusActiveUnderContract},
	"closed":              {listing.StatusClosed},
	"sold":                {listing.StatusClosed},
	"expired":             {listing.StatusExpired},
	"withdrawn":           {listing.StatusWithdrawn},
	"canceled":            {listing.StatusCanceled},
	"cancelled":           {listing.StatusCanceled},
}

// ResolveStatuses expands labels through the alias table. Unknown labels are
// dropped; the result keeps first-seen order without duplicates.
func ResolveStatuses(labels []string) []listing.Status {
	seen := make(map[listing.Status]bool)
	var out []listing.Status
	for _, label := range labels {
		for _, s := range statusAliases[strings.ToLower(statusKeyCleaner.Replace(label))] {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Statuses returns the statuses a set asks for. explicit is false when the
// status filter is absent or unusable, in which case the live set applies.
func Statuses(s *Set) (statuses []listing.Status, explicit bool) {
	if v, ok := s.Get("status"); ok && !IsEmpty(v) {
		if labels, ok := AsStrings(v); ok {
			if resolved := ResolveStatuses(labels); len(resolved) > 0 {
				return resolved, true
			}
		}
	}
	return append([]listing.Status(nil), listing.LiveStatuses...), false
}

// Partitions returns the normalized-store partitions a status list touches,
// live first.
func Partitions(statuses []listing.Status) []listing.Partition {
	var live, archive bool
	for _, s := range statuses {
		if s.IsLive() {
			live = true
		} else {
			archive = true
		}
	}
	var out []listing.Partition
	if live {
		out = append(out, listing.PartitionLive)
	}
	if archive {
		out = append(out, listing.PartitionArchive)
	}
	return out
}

// DefaultSchoolRadiusMiles is used when a school filter names no radius.
const DefaultSchoolRadiusMiles = 1.0

// SchoolCriteria is the post-query school-quality filter.
type SchoolCriteria struct {
	MinGrade         listing.Grade
	RadiusMiles      float64
	MinDistrictGrade listing.Grade
}

// Active reports whether any school constraint applies.
func (c SchoolCriteria) Active() bool {
	return c.MinGrade != "" || c.MinDistrictGrade != ""
}

// School reads school_grade ("B+" or {"min":"B+","radius_miles":2}) and
// district_grade ("A-"). Unparseable grades are ignored.
func School(s *Set) SchoolCriteria {
	c := SchoolCriteria{RadiusMiles: DefaultSchoolRadiusMiles}
	if v, ok := s.Get("school_grade"); ok && !IsEmpty(v) {
		switch val := v.(type) {
		case string:
			if g, ok := listing.ParseGrade(val); ok {
				c.MinGrade = g
			}
		case map[string]any:
			if raw, ok := val["min"].(string); ok {
				if g, ok := listing.ParseGrade(raw); ok {
					c.MinGrade = g
				}
			}
			if r, ok := AsDecimal(val["radius_miles"]); ok && r.IsPositive() {
				c.RadiusMiles = r.InexactFloat64()
			}
		}
	}
	if v, ok := s.Get("district_grade"); ok {
		if raw, ok := v.(string); ok {
			if g, ok := listing.ParseGrade(raw); ok {
				c.MinDistrictGrade = g
			}
		}
	}
	return c
}
