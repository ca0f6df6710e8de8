// Package plan decides which physical store and which partitions answer a
// filter set.
package plan

import (
	"github.com/parcelmap/listing-search/internal/core/address"
	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
)

// Reason records which routing rule produced a plan.
type Reason string

const (
	ReasonLookup      Reason = "lookup"
	ReasonArchive     Reason = "archive_status"
	ReasonUnsupported Reason = "unsupported_filter"
	ReasonUnavailable Reason = "optimized_unavailable"
	ReasonOptimized   Reason = "optimized"
	ReasonFallback    Reason = "schema_fallback"
)

// Target is one partition to query. A failing optional target is tolerated.
type Target struct {
	Partition listing.Partition
	Required  bool
}

// Plan is the routing decision for one request.
type Plan struct {
	UseOptimized bool
	Partitions   []Target
	// BypassStatus drops the status predicate entirely.
	BypassStatus bool
	Reason       Reason
}

// Select applies the routing rules in order:
//  1. an MLS-number or parsed street-address lookup queries both partitions
//     with no status predicate and never the optimized store;
//  2. a status outside the live set requires the archive partition;
//  3. a key the optimized store cannot answer forces the normalized store on
//     both partitions, keeping the status predicate;
//  4. otherwise the optimized store alone answers.
//
// optimizedAvailable is false when the optimized table was missing at startup.
func Select(set *filter.Set, optimizedAvailable bool) Plan {
	if IsLookup(set) {
		return Plan{
			Partitions: []Target{
				{Partition: listing.PartitionLive, Required: true},
				{Partition: listing.PartitionArchive, Required: false},
			},
			BypassStatus: true,
			Reason:       ReasonLookup,
		}
	}

	statuses, _ := filter.Statuses(set)
	partitions := filter.Partitions(statuses)
	for _, p := range partitions {
		if p == listing.PartitionArchive {
			return normalized(partitions, ReasonArchive)
		}
	}

	if UnsupportedKey(set) != "" {
		// The archive also holds live statuses.
		return Plan{
			Partitions: []Target{
				{Partition: listing.PartitionLive, Required: true},
				{Partition: listing.PartitionArchive, Required: false},
			},
			Reason: ReasonUnsupported,
		}
	}
	if !optimizedAvailable {
		return normalized(partitions, ReasonUnavailable)
	}
	return Plan{UseOptimized: true, Reason: ReasonOptimized}
}

// Fallback converts an optimized plan into the equivalent normalized plan.
// The optimized store only holds live listings, so that is the partition.
func (p Plan) Fallback() Plan {
	if !p.UseOptimized {
		return p
	}
	return Plan{
		Partitions: []Target{{Partition: listing.PartitionLive, Required: true}},
		Reason:     ReasonFallback,
	}
}

func normalized(partitions []listing.Partition, reason Reason) Plan {
	targets := make([]Target, 0, len(partitions))
	for _, p := range partitions {
		targets = append(targets, Target{Partition: p, Required: true})
	}
	return Plan{Partitions: targets, Reason: reason}
}

// IsLookup reports whether the set carries an exact MLS-number filter or a
// street address that parses into number + street. The compiler uses the same
// test to decide whether to drop the status predicate.
func IsLookup(set *filter.Set) bool {
	for _, e := range set.Active() {
		def, ok := filter.Lookup(e.Key)
		if !ok {
			continue
		}
		switch def.Strategy {
		case filter.StrategyIdentifier:
			if _, ok := filter.AsStrings(e.Value); ok {
				return true
			}
		case filter.StrategyAddress:
			if s, ok := e.Value.(string); ok {
				if _, ok := address.Parse(s); ok {
					return true
				}
			}
		}
	}
	return false
}

// UnsupportedKey returns the first active key the optimized store cannot
// answer, or "" when there is none.
func UnsupportedKey(set *filter.Set) string {
	for _, e := range set.Active() {
		def, ok := filter.Lookup(e.Key)
		if ok && !def.OptimizedSupported {
			return e.Key
		}
	}
	return ""
}
