package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanListingRow scans one row of a storage.Layout projection. Columns a
// layout does not store arrive as NULL and leave the zero value.
func scanListingRow(row scanner) (listing.Listing, error) {
	var (
		l                                         listing.Listing
		mls, status, propertyType, subType        sql.NullString
		closePrice, listPrice, baths, lot, hoa    decimal.NullDecimal
		lat, lng                                  sql.NullFloat64
		number, street, unit, city, state, postal sql.NullString
		neighborhood, county                      sql.NullString
		beds, living, yearBuilt, garage, parking  sql.NullInt64
		stories, dom                              sql.NullInt64
		structureType, style                      sql.NullString
		amenities                                 [13]sql.NullBool
		listAgent, buyerAgent, team               sql.NullString
		leaseTerm, rentIncludes, photo            sql.NullString
		modified                                  sql.NullTime
	)

	dest := []interface{}{
		&l.ID, &mls, &status, &propertyType, &subType,
		&listPrice, &closePrice, &lat, &lng,
		&number, &street, &unit, &city, &state, &postal, &neighborhood, &county,
		&beds, &baths, &living, &yearBuilt, &lot, &garage, &parking, &stories, &dom, &hoa,
		&structureType, &style,
	}
	for i := range amenities {
		dest = append(dest, &amenities[i])
	}
	dest = append(dest, &listAgent, &buyerAgent, &team, &leaseTerm, &rentIncludes, &photo, &modified)

	if err := row.Scan(dest...); err != nil {
		return listing.Listing{}, fmt.Errorf("failed to scan listing row: %w", err)
	}

	l.MLSNumber = mls.String
	l.Status = listing.Status(status.String)
	l.PropertyType = propertyType.String
	l.PropertySubType = subType.String
	l.ListPrice = listPrice.Decimal
	l.ClosePrice = closePrice
	l.Latitude = lat.Float64
	l.Longitude = lng.Float64
	l.Address = listing.Address{
		StreetNumber: number.String,
		StreetName:   street.String,
		Unit:         unit.String,
		City:         city.String,
		State:        state.String,
		PostalCode:   postal.String,
	}
	l.Neighborhood = neighborhood.String
	l.County = county.String
	l.Bedrooms = int(beds.Int64)
	l.Bathrooms = baths.Decimal
	l.LivingArea = int(living.Int64)
	l.YearBuilt = int(yearBuilt.Int64)
	l.LotSizeAcres = lot.Decimal.Round(4)
	l.GarageSpaces = int(garage.Int64)
	l.ParkingTotal = int(parking.Int64)
	l.Stories = int(stories.Int64)
	l.DaysOnMarket = int(dom.Int64)
	l.HOAFee = hoa.Decimal
	l.StructureType = decodeTextArray(structureType)
	l.ArchitecturalStyle = decodeTextArray(style)

	flags := []*bool{
		&l.Amenities.Waterfront, &l.Amenities.Pool, &l.Amenities.Fireplace, &l.Amenities.Cooling,
		&l.Amenities.SeniorCommunity, &l.Amenities.PetsAllowed, &l.Amenities.Basement,
		&l.Amenities.NewConstruction, &l.Amenities.HorseProperty, &l.Amenities.Spa,
		&l.Amenities.GreenEnergy, &l.Amenities.VirtualTour, &l.Amenities.Furnished,
	}
	for i, f := range flags {
		*f = amenities[i].Bool
	}

	l.ListAgentKey = listAgent.String
	l.BuyerAgentKey = buyerAgent.String
	l.TeamKeys = decodeTextArray(team)
	l.LeaseTerm = leaseTerm.String
	l.RentIncludes = decodeTextArray(rentIncludes)
	l.PhotoURL = photo.String
	l.ModifiedAt = modified.Time
	return l, nil
}

// decodeTextArray reads a multi-value column stored as JSON text. Anything
// that is not a JSON string array reads as empty.
func decodeTextArray(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}
