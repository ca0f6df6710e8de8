package filter

import (
	"sort"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/predicate"
)

// Strategy is the compilation rule a filter kind follows.
type Strategy int

const (
	StrategyRange Strategy = iota
	StrategyMultiNumber
	StrategyCategorical
	StrategyRegion
	StrategyStatus
	StrategyPropertyType
	StrategyArrayText
	StrategyBool
	StrategyFreeText
	StrategyAddress
	StrategyIdentifier
	StrategyAgent
	StrategySchool
)

var strategyNames = map[Strategy]string{
	StrategyRange:        "range",
	StrategyMultiNumber:  "multi_number",
	StrategyCategorical:  "categorical",
	StrategyRegion:       "region",
	StrategyStatus:       "status",
	StrategyPropertyType: "property_type",
	StrategyArrayText:    "array_text",
	StrategyBool:         "bool",
	StrategyFreeText:     "free_text",
	StrategyAddress:      "address",
	StrategyIdentifier:   "identifier",
	StrategyAgent:        "agent",
	StrategySchool:       "school",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// Definition describes one recognized filter key.
type Definition struct {
	Key      string
	Field    listing.Field
	Strategy Strategy
	// OptimizedSupported is false for keys the denormalized store cannot answer.
	OptimizedSupported bool
	// Unit is the unit client values are expressed in.
	Unit predicate.Unit
}

// table is the static list of filter kinds. It is indexed once at init;
// lookups never switch on raw strings.
var table = []Definition{
	// Ranges.
	{Key: "price", Field: listing.FieldPrice, Strategy: StrategyRange, OptimizedSupported: true},
	{Key: "sqft", Field: listing.FieldLivingArea, Strategy: StrategyRange, OptimizedSupported: true},
	{Key: "living_area", Field: listing.FieldLivingArea, Strategy: StrategyRange, OptimizedSupported: true},
	{Key: "year_built", Field: listing.FieldYearBuilt, Strategy: StrategyRange, OptimizedSupported: true},
	{Key: "lot_size", Field: listing.FieldLotSize, Strategy: StrategyRange, OptimizedSupported: true, Unit: predicate.UnitSquareFeet},
	{Key: "lot_acres", Field: listing.FieldLotSize, Strategy: StrategyRange, OptimizedSupported: true, Unit: predicate.UnitAcres},
	{Key: "days_on_market", Field: listing.FieldDaysOnMarket, Strategy: StrategyRange, OptimizedSupported: true},
	{Key: "hoa_fee", Field: listing.FieldHOAFee, Strategy: StrategyRange},
	{Key: "garage_spaces", Field: listing.FieldGarageSpaces, Strategy: StrategyRange},
	{Key: "parking_total", Field: listing.FieldParkingTotal, Strategy: StrategyRange},
	{Key: "stories", Field: listing.FieldStories, Strategy: StrategyRange},

	// Bedroom/bathroom pickers: [3], "4+", {min,max}.
	{Key: "beds", Field: listing.FieldBedrooms, Strategy: StrategyMultiNumber, OptimizedSupported: true},
	{Key: "bedrooms", Field: listing.FieldBedrooms, Strategy: StrategyMultiNumber, OptimizedSupported: true},
	{Key: "baths", Field: listing.FieldBathrooms, Strategy: StrategyMultiNumber, OptimizedSupported: true},
	{Key: "bathrooms", Field: listing.FieldBathrooms, Strategy: StrategyMultiNumber, OptimizedSupported: true},

	// Categorical.
	{Key: "status", Field: listing.FieldStatus, Strategy: StrategyStatus, OptimizedSupported: true},
	{Key: "property_type", Field: listing.FieldPropertyType, Strategy: StrategyPropertyType, OptimizedSupported: true},
	{Key: "property_subtype", Field: listing.FieldPropertySubType, Strategy: StrategyCategorical, OptimizedSupported: true},
	{Key: "state", Field: listing.FieldState, Strategy: StrategyCategorical, OptimizedSupported: true},
	{Key: "lease_term", Field: listing.FieldLeaseTerm, Strategy: StrategyCategorical},

	// Named regions share the spatial OR group.
	{Key: "city", Field: listing.FieldCity, Strategy: StrategyRegion, OptimizedSupported: true},
	{Key: "neighborhood", Field: listing.FieldNeighborhood, Strategy: StrategyRegion, OptimizedSupported: true},
	{Key: "postal_code", Field: listing.FieldPostalCode, Strategy: StrategyRegion, OptimizedSupported: true},
	{Key: "zip", Field: listing.FieldPostalCode, Strategy: StrategyRegion, OptimizedSupported: true},
	{Key: "county", Field: listing.FieldCounty, Strategy: StrategyRegion},

	// Multi-value columns stored as JSON text.
	{Key: "structure_type", Field: listing.FieldStructureType, Strategy: StrategyArrayText},
	{Key: "architectural_style", Field: listing.FieldArchitecturalStyle, Strategy: StrategyArrayText},
	{Key: "rent_includes", Field: listing.FieldRentIncludes, Strategy: StrategyArrayText},

	// Amenity flags.
	{Key: "waterfront", Field: listing.FieldWaterfront, Strategy: StrategyBool, OptimizedSupported: true},
	{Key: "pool", Field: listing.FieldPool, Strategy: StrategyBool, OptimizedSupported: true},
	{Key: "new_construction", Field: listing.FieldNewConstruction, Strategy: StrategyBool, OptimizedSupported: true},
	{Key: "virtual_tour", Field: listing.FieldVirtualTour, Strategy: StrategyBool, OptimizedSupported: true},
	{Key: "fireplace", Field: listing.FieldFireplace, Strategy: StrategyBool},
	{Key: "cooling", Field: listing.FieldCooling, Strategy: StrategyBool},
	{Key: "senior_community", Field: listing.FieldSeniorCommunity, Strategy: StrategyBool},
	{Key: "pets_allowed", Field: listing.FieldPetsAllowed, Strategy: StrategyBool},
	{Key: "basement", Field: listing.FieldBasement, Strategy: StrategyBool},
	{Key: "horse_property", Field: listing.FieldHorseProperty, Strategy: StrategyBool},
	{Key: "spa", Field: listing.FieldSpa, Strategy: StrategyBool},
	{Key: "green_energy", Field: listing.FieldGreenEnergy, Strategy: StrategyBool},
	{Key: "furnished", Field: listing.FieldFurnished, Strategy: StrategyBool},

	// Text lookups.
	{Key: "street", Field: listing.FieldStreetName, Strategy: StrategyFreeText, OptimizedSupported: true},
	{Key: "address", Field: listing.FieldStreetName, Strategy: StrategyAddress},
	{Key: "mls_number", Field: listing.FieldMLSNumber, Strategy: StrategyIdentifier},
	{Key: "mls", Field: listing.FieldMLSNumber, Strategy: StrategyIdentifier},

	// Agent assignment.
	{Key: "list_agent", Field: listing.FieldListAgent, Strategy: StrategyAgent},
	{Key: "buyer_agent", Field: listing.FieldBuyerAgent, Strategy: StrategyAgent},
	{Key: "team_member", Field: listing.FieldTeamMembers, Strategy: StrategyAgent},
	{Key: "agent", Strategy: StrategyAgent},

	// School quality is applied after the query.
	{Key: "school_grade", Strategy: StrategySchool},
	{Key: "district_grade", Strategy: StrategySchool},
}

var definitions = func() map[string]Definition {
	m := make(map[string]Definition, len(table))
	for _, d := range table {
		if _, dup := m[d.Key]; dup {
			panic("filter: duplicate definition for " + d.Key)
		}
		m[d.Key] = d
	}
	return m
}()

// Lookup returns the definition for a filter key.
func Lookup(key string) (Definition, bool) {
	d, ok := definitions[key]
	return d, ok
}

// Definitions returns every recognized filter kind in table order.
func Definitions() []Definition {
	return append([]Definition(nil), table...)
}

// UnsupportedByOptimized lists the keys that force the normalized store, sorted.
func UnsupportedByOptimized() []string {
	var keys []string
	for _, d := range table {
		if !d.OptimizedSupported {
			keys = append(keys, d.Key)
		}
	}
	sort.Strings(keys)
	return keys
}
