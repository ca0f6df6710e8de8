package listing

import (
	"github.com/shopspring/decimal"
)

// Field is a logical listing attribute that filters and storage layouts refer to.
type Field string

const (
	FieldID                 Field = "id"
	FieldMLSNumber          Field = "mls_number"
	FieldStatus             Field = "status"
	FieldPropertyType       Field = "property_type"
	FieldPropertySubType    Field = "property_subtype"
	FieldPrice              Field = "price"
	FieldLatitude           Field = "latitude"
	FieldLongitude          Field = "longitude"
	FieldLocation           Field = "location"
	FieldStreetNumber       Field = "street_number"
	FieldStreetName         Field = "street_name"
	FieldUnit               Field = "unit"
	FieldCity               Field = "city"
	FieldState              Field = "state"
	FieldPostalCode         Field = "postal_code"
	FieldNeighborhood       Field = "neighborhood"
	FieldCounty             Field = "county"
	FieldBedrooms           Field = "bedrooms"
	FieldBathrooms          Field = "bathrooms"
	FieldLivingArea         Field = "living_area"
	FieldYearBuilt          Field = "year_built"
	FieldLotSize            Field = "lot_size"
	FieldGarageSpaces       Field = "garage_spaces"
	FieldParkingTotal       Field = "parking_total"
	FieldStories            Field = "stories"
	FieldDaysOnMarket       Field = "days_on_market"
	FieldHOAFee             Field = "hoa_fee"
	FieldStructureType      Field = "structure_type"
	FieldArchitecturalStyle Field = "architectural_style"
	FieldWaterfront         Field = "waterfront"
	FieldPool               Field = "pool"
	FieldFireplace          Field = "fireplace"
	FieldCooling            Field = "cooling"
	FieldSeniorCommunity    Field = "senior_community"
	FieldPetsAllowed        Field = "pets_allowed"
	FieldBasement           Field = "basement"
	FieldNewConstruction    Field = "new_construction"
	FieldHorseProperty      Field = "horse_property"
	FieldSpa                Field = "spa"
	FieldGreenEnergy        Field = "green_energy"
	FieldVirtualTour        Field = "virtual_tour"
	FieldFurnished          Field = "furnished"
	FieldListAgent          Field = "list_agent"
	FieldBuyerAgent         Field = "buyer_agent"
	FieldTeamMembers        Field = "team_members"
	FieldLeaseTerm          Field = "lease_term"
	FieldRentIncludes       Field = "rent_includes"
	FieldModifiedAt         Field = "modified_at"
)

// Value returns the field the way the stores hold it: numbers as decimals,
// coordinates as float64, multi-value columns as JSON text, flags as bool.
// Lot size is always reported in acres; storage layouts convert units on their side.
func (l *Listing) Value(f Field) (any, bool) {
	switch f {
	case FieldID:
		return decimal.NewFromInt(l.ID), true
	case FieldMLSNumber:
		return l.MLSNumber, true
	case FieldStatus:
		return string(l.Status), true
	case FieldPropertyType:
		return l.PropertyType, true
	case FieldPropertySubType:
		return l.PropertySubType, true
	case FieldPrice:
		return l.EffectivePrice(), true
	case FieldLatitude:
		return l.Latitude, true
	case FieldLongitude:
		return l.Longitude, true
	case FieldStreetNumber:
		return l.Address.StreetNumber, true
	case FieldStreetName:
		return l.Address.StreetName, true
	case FieldUnit:
		return l.Address.Unit, true
	case FieldCity:
		return l.Address.City, true
	case FieldState:
		return l.Address.State, true
	case FieldPostalCode:
		return l.Address.PostalCode, true
	case FieldNeighborhood:
		return l.Neighborhood, true
	case FieldCounty:
		return l.County, true
	case FieldBedrooms:
		return decimal.NewFromInt(int64(l.Bedrooms)), true
	case FieldBathrooms:
		return l.Bathrooms, true
	case FieldLivingArea:
		return decimal.NewFromInt(int64(l.LivingArea)), true
	case FieldYearBuilt:
		return decimal.NewFromInt(int64(l.YearBuilt)), true
	case FieldLotSize:
		return l.LotSizeAcres, true
	case FieldGarageSpaces:
		return decimal.NewFromInt(int64(l.GarageSpaces)), true
	case FieldParkingTotal:
		return decimal.NewFromInt(int64(l.ParkingTotal)), true
	case FieldStories:
		return decimal.NewFromInt(int64(l.Stories)), true
	case FieldDaysOnMarket:
		return decimal.NewFromInt(int64(l.DaysOnMarket)), true
	case FieldHOAFee:
		return l.HOAFee, true
	case FieldStructureType:
		return encodeTextArray(l.StructureType), true
	case FieldArchitecturalStyle:
		return encodeTextArray(l.ArchitecturalStyle), true
	case FieldWaterfront:
		return l.Amenities.Waterfront, true
	case FieldPool:
		return l.Amenities.Pool, true
	case FieldFireplace:
		return l.Amenities.Fireplace, true
	case FieldCooling:
		return l.Amenities.Cooling, true
	case FieldSeniorCommunity:
		return l.Amenities.SeniorCommunity, true
	case FieldPetsAllowed:
		return l.Amenities.PetsAllowed, true
	case FieldBasement:
		return l.Amenities.Basement, true
	case FieldNewConstruction:
		return l.Amenities.NewConstruction, true
	case FieldHorseProperty:
		return l.Amenities.HorseProperty, true
	case FieldSpa:
		return l.Amenities.Spa, true
	case FieldGreenEnergy:
		return l.Amenities.GreenEnergy, true
	case FieldVirtualTour:
		return l.Amenities.VirtualTour, true
	case FieldFurnished:
		return l.Amenities.Furnished, true
	case FieldListAgent:
		return l.ListAgentKey, true
	case FieldBuyerAgent:
		return l.BuyerAgentKey, true
	case FieldTeamMembers:
		return encodeTextArray(l.TeamKeys), true
	case FieldLeaseTerm:
		return l.LeaseTerm, true
	case FieldRentIncludes:
		return encodeTextArray(l.RentIncludes), true
	case FieldModifiedAt:
		return l.ModifiedAt, true
	}
	return nil, false
}
