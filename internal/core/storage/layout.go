package storage

import (
	"fmt"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/predicate"
)

// Sub-table aliases of the normalized store.
const (
	TableLocation  = "loc"
	TableDetails   = "d"
	TableFinancial = "f"
	TableFeatures  = "ft"
)

// Layout describes how one physical table family stores listings.
type Layout struct {
	Name string
	// From is the base table with its alias.
	From string
	// Key is the base table's id column.
	Key string
	// Joins holds the join clause per sub-table alias, in JoinOrder.
	Joins     map[string]string
	JoinOrder []string
	// Display lists the sub-tables a row fetch always joins for the select list.
	Display []string
	Columns map[listing.Field]predicate.Column
	// Projection is the select list in the order rows are scanned.
	Projection []string
	// HasGeometry is true when Columns carries a native geometry for FieldLocation.
	HasGeometry bool
}

// Column returns the physical column for a logical field.
func (l Layout) Column(f listing.Field) (predicate.Column, bool) {
	c, ok := l.Columns[f]
	return c, ok
}

// JoinClauses returns the join clauses for the requested sub-tables in a
// stable order. Unknown aliases are ignored.
func (l Layout) JoinClauses(tables ...[]string) []string {
	want := make(map[string]bool)
	for _, group := range tables {
		for _, t := range group {
			want[t] = true
		}
	}
	var out []string
	for _, alias := range l.JoinOrder {
		if want[alias] {
			out = append(out, l.Joins[alias])
		}
	}
	return out
}

// scanOrder is the logical field order every Projection follows.
var scanOrder = []listing.Field{
	listing.FieldID,
	listing.FieldMLSNumber,
	listing.FieldStatus,
	listing.FieldPropertyType,
	listing.FieldPropertySubType,
	"list_price",
	"close_price",
	listing.FieldLatitude,
	listing.FieldLongitude,
	listing.FieldStreetNumber,
	listing.FieldStreetName,
	listing.FieldUnit,
	listing.FieldCity,
	listing.FieldState,
	listing.FieldPostalCode,
	listing.FieldNeighborhood,
	listing.FieldCounty,
	listing.FieldBedrooms,
	listing.FieldBathrooms,
	listing.FieldLivingArea,
	listing.FieldYearBuilt,
	"lot_size_acres",
	listing.FieldGarageSpaces,
	listing.FieldParkingTotal,
	listing.FieldStories,
	listing.FieldDaysOnMarket,
	listing.FieldHOAFee,
	listing.FieldStructureType,
	listing.FieldArchitecturalStyle,
	listing.FieldWaterfront,
	listing.FieldPool,
	listing.FieldFireplace,
	listing.FieldCooling,
	listing.FieldSeniorCommunity,
	listing.FieldPetsAllowed,
	listing.FieldBasement,
	listing.FieldNewConstruction,
	listing.FieldHorseProperty,
	listing.FieldSpa,
	listing.FieldGreenEnergy,
	listing.FieldVirtualTour,
	listing.FieldFurnished,
	listing.FieldListAgent,
	listing.FieldBuyerAgent,
	listing.FieldTeamMembers,
	listing.FieldLeaseTerm,
	listing.FieldRentIncludes,
	"photo_url",
	listing.FieldModifiedAt,
}

// ProjectionWidth is the number of columns every Projection selects.
var ProjectionWidth = len(scanOrder)

// integerFields are stored as INTEGER in every layout.
var integerFields = map[listing.Field]bool{
	listing.FieldBedrooms:     true,
	listing.FieldLivingArea:   true,
	listing.FieldYearBuilt:    true,
	listing.FieldDaysOnMarket: true,
	listing.FieldGarageSpaces: true,
	listing.FieldParkingTotal: true,
	listing.FieldStories:      true,
}

func col(f listing.Field, expr string, tables ...string) predicate.Column {
	return predicate.Column{Field: f, Expr: expr, Tables: tables, Integer: integerFields[f]}
}

// OptimizedLayout is the single denormalized live table. It carries scalar
// coordinates only and stores lot size in square feet.
func OptimizedLayout() Layout {
	cols := map[listing.Field]predicate.Column{
		listing.FieldID:              col(listing.FieldID, "s.id"),
		listing.FieldMLSNumber:       col(listing.FieldMLSNumber, "s.mls_number"),
		listing.FieldStatus:          col(listing.FieldStatus, "s.status"),
		listing.FieldPropertyType:    col(listing.FieldPropertyType, "s.property_type"),
		listing.FieldPropertySubType: col(listing.FieldPropertySubType, "s.property_subtype"),
		listing.FieldPrice:           col(listing.FieldPrice, "s.list_price"),
		listing.FieldLatitude:        col(listing.FieldLatitude, "s.latitude"),
		listing.FieldLongitude:       col(listing.FieldLongitude, "s.longitude"),
		listing.FieldStreetNumber:    col(listing.FieldStreetNumber, "s.street_number"),
		listing.FieldStreetName:      col(listing.FieldStreetName, "s.street_name"),
		listing.FieldUnit:            col(listing.FieldUnit, "s.unit"),
		listing.FieldCity:            col(listing.FieldCity, "s.city"),
		listing.FieldState:           col(listing.FieldState, "s.state"),
		listing.FieldPostalCode:      col(listing.FieldPostalCode, "s.postal_code"),
		listing.FieldNeighborhood:    col(listing.FieldNeighborhood, "s.neighborhood"),
		listing.FieldBedrooms:        col(listing.FieldBedrooms, "s.bedrooms"),
		listing.FieldBathrooms:       col(listing.FieldBathrooms, "s.bathrooms"),
		listing.FieldLivingArea:      col(listing.FieldLivingArea, "s.living_area"),
		listing.FieldYearBuilt:       col(listing.FieldYearBuilt, "s.year_built"),
		listing.FieldDaysOnMarket:    col(listing.FieldDaysOnMarket, "s.days_on_market"),
		listing.FieldWaterfront:      col(listing.FieldWaterfront, "s.waterfront"),
		listing.FieldPool:            col(listing.FieldPool, "s.pool"),
		listing.FieldNewConstruction: col(listing.FieldNewConstruction, "s.new_construction"),
		listing.FieldVirtualTour:     col(listing.FieldVirtualTour, "s.virtual_tour"),
		listing.FieldModifiedAt:      col(listing.FieldModifiedAt, "s.modified_at"),
	}
	lot := col(listing.FieldLotSize, "s.lot_size_sqft")
	lot.Unit = predicate.UnitSquareFeet
	cols[listing.FieldLotSize] = lot

	return Layout{
		Name:    "optimized",
		From:    "listing_search s",
		Key:     "s.id",
		Joins:   map[string]string{},
		Columns: cols,
		Projection: projection(cols, map[listing.Field]string{
			"list_price":     "s.list_price",
			"close_price":    "NULL::numeric",
			"lot_size_acres": "s.lot_size_sqft / 43560.0",
			"photo_url":      "s.photo_url",
		}),
	}
}

// NormalizedLayout is the joined table family of one partition. Tables are
// prefixed with the partition name ("live_listing", "archive_listing_details").
func NormalizedLayout(p listing.Partition) Layout {
	prefix := string(p) + "_"
	price := "COALESCE(CASE WHEN l.status = 'Closed' THEN l.close_price END, l.list_price)"

	cols := map[listing.Field]predicate.Column{
		listing.FieldID:                 col(listing.FieldID, "l.id"),
		listing.FieldMLSNumber:          col(listing.FieldMLSNumber, "l.mls_number"),
		listing.FieldStatus:             col(listing.FieldStatus, "l.status"),
		listing.FieldPropertyType:       col(listing.FieldPropertyType, "l.property_type"),
		listing.FieldPropertySubType:    col(listing.FieldPropertySubType, "l.property_subtype"),
		listing.FieldPrice:              col(listing.FieldPrice, price),
		listing.FieldLatitude:           col(listing.FieldLatitude, "l.latitude"),
		listing.FieldLongitude:          col(listing.FieldLongitude, "l.longitude"),
		listing.FieldLocation:           col(listing.FieldLocation, "loc.geom", TableLocation),
		listing.FieldStreetNumber:       col(listing.FieldStreetNumber, "l.street_number"),
		listing.FieldStreetName:         col(listing.FieldStreetName, "l.street_name"),
		listing.FieldUnit:               col(listing.FieldUnit, "l.unit"),
		listing.FieldCity:               col(listing.FieldCity, "l.city"),
		listing.FieldState:              col(listing.FieldState, "l.state"),
		listing.FieldPostalCode:         col(listing.FieldPostalCode, "l.postal_code"),
		listing.FieldNeighborhood:       col(listing.FieldNeighborhood, "l.neighborhood"),
		listing.FieldCounty:             col(listing.FieldCounty, "l.county"),
		listing.FieldBedrooms:           col(listing.FieldBedrooms, "l.bedrooms"),
		listing.FieldBathrooms:          col(listing.FieldBathrooms, "l.bathrooms"),
		listing.FieldLivingArea:         col(listing.FieldLivingArea, "l.living_area"),
		listing.FieldDaysOnMarket:       col(listing.FieldDaysOnMarket, "l.days_on_market"),
		listing.FieldListAgent:          col(listing.FieldListAgent, "l.list_agent_key"),
		listing.FieldBuyerAgent:         col(listing.FieldBuyerAgent, "l.buyer_agent_key"),
		listing.FieldTeamMembers:        col(listing.FieldTeamMembers, "l.team_member_keys"),
		listing.FieldModifiedAt:         col(listing.FieldModifiedAt, "l.modified_at"),
		listing.FieldYearBuilt:          col(listing.FieldYearBuilt, "d.year_built", TableDetails),
		listing.FieldGarageSpaces:       col(listing.FieldGarageSpaces, "d.garage_spaces", TableDetails),
		listing.FieldParkingTotal:       col(listing.FieldParkingTotal, "d.parking_total", TableDetails),
		listing.FieldStories:            col(listing.FieldStories, "d.stories", TableDetails),
		listing.FieldStructureType:      col(listing.FieldStructureType, "d.structure_type", TableDetails),
		listing.FieldArchitecturalStyle: col(listing.FieldArchitecturalStyle, "d.architectural_style", TableDetails),
		listing.FieldHOAFee:             col(listing.FieldHOAFee, "f.hoa_fee", TableFinancial),
		listing.FieldLeaseTerm:          col(listing.FieldLeaseTerm, "f.lease_term", TableFinancial),
		listing.FieldRentIncludes:       col(listing.FieldRentIncludes, "f.rent_includes", TableFinancial),
	}
	lot := col(listing.FieldLotSize, "d.lot_size_acres", TableDetails)
	lot.Unit = predicate.UnitAcres
	cols[listing.FieldLotSize] = lot

	for _, f := range []listing.Field{
		listing.FieldWaterfront, listing.FieldPool, listing.FieldFireplace, listing.FieldCooling,
		listing.FieldSeniorCommunity, listing.FieldPetsAllowed, listing.FieldBasement,
		listing.FieldNewConstruction, listing.FieldHorseProperty, listing.FieldSpa,
		listing.FieldGreenEnergy, listing.FieldVirtualTour, listing.FieldFurnished,
	} {
		cols[f] = col(f, "ft."+string(f), TableFeatures)
	}

	join := func(table, alias string) string {
		return fmt.Sprintf("LEFT JOIN %s%s %s ON %s.listing_id = l.id", prefix, table, alias, alias)
	}

	return Layout{
		Name: string(p),
		From: prefix + "listing l",
		Key:  "l.id",
		Joins: map[string]string{
			TableLocation:  join("listing_location", TableLocation),
			TableDetails:   join("listing_details", TableDetails),
			TableFinancial: join("listing_financial", TableFinancial),
			TableFeatures:  join("listing_features", TableFeatures),
		},
		JoinOrder: []string{TableLocation, TableDetails, TableFinancial, TableFeatures},
		Display:   []string{TableDetails, TableFinancial, TableFeatures},
		Columns:   cols,
		Projection: projection(cols, map[listing.Field]string{
			"list_price":     "l.list_price",
			"close_price":    "l.close_price",
			"lot_size_acres": "d.lot_size_acres",
			"photo_url":      "l.photo_url",
		}),
		HasGeometry: true,
	}
}

// projection renders scanOrder against a column map. Fields the layout does
// not store select NULL so both stores scan through the same code.
func projection(cols map[listing.Field]predicate.Column, extra map[listing.Field]string) []string {
	out := make([]string, 0, len(scanOrder))
	for _, f := range scanOrder {
		if expr, ok := extra[f]; ok {
			out = append(out, expr)
			continue
		}
		if c, ok := cols[f]; ok {
			out = append(out, c.Expr)
			continue
		}
		out = append(out, "NULL")
	}
	return out
}
