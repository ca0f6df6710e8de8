package listing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a listing as reported by the MLS feed.
type Status string

const (
	StatusActive              Status = "Active"
	StatusActiveUnderContract Status = "ActiveUnderContract"
	StatusPending             Status = "Pending"
	StatusClosed              Status = "Closed"
	StatusExpired             Status = "Expired"
	StatusWithdrawn           Status = "Withdrawn"
	StatusCanceled            Status = "Canceled"
)

// LiveStatuses are the statuses held by the optimized store and the live partition.
var LiveStatuses = []Status{StatusActive, StatusActiveUnderContract, StatusPending}

// ArchiveStatuses are only ever found in the archive partition.
var ArchiveStatuses = []Status{StatusClosed, StatusExpired, StatusWithdrawn, StatusCanceled}

// IsLive reports whether s belongs to the live lifecycle set.
func (s Status) IsLive() bool {
	for _, live := range LiveStatuses {
		if s == live {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the seven known statuses.
func (s Status) Valid() bool {
	if s.IsLive() {
		return true
	}
	for _, archived := range ArchiveStatuses {
		if s == archived {
			return true
		}
	}
	return false
}

// Partition names the physical subset of the normalized store a listing lives in.
type Partition string

const (
	PartitionLive    Partition = "live"
	PartitionArchive Partition = "archive"
)

// PartitionFor returns the partition that owns a listing in the given status.
func PartitionFor(s Status) Partition {
	if s.IsLive() {
		return PartitionLive
	}
	return PartitionArchive
}

// Address is the decomposed postal address of a listing.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	Unit         string `json:"unit,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// Amenities are the boolean feature flags a listing can carry.
type Amenities struct {
	Waterfront      bool `json:"waterfront"`
	Pool            bool `json:"pool"`
	Fireplace       bool `json:"fireplace"`
	Cooling         bool `json:"cooling"`
	SeniorCommunity bool `json:"senior_community"`
	PetsAllowed     bool `json:"pets_allowed"`
	Basement        bool `json:"basement"`
	NewConstruction bool `json:"new_construction"`
	HorseProperty   bool `json:"horse_property"`
	Spa             bool `json:"spa"`
	GreenEnergy     bool `json:"green_energy"`
	VirtualTour     bool `json:"virtual_tour"`
	Furnished       bool `json:"furnished"`
}

// EventSummary is an open-house style event window owned by the event subsystem.
type EventSummary struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// DistrictGrade is the school-district rating for a listing's city.
type DistrictGrade struct {
	Grade      Grade `json:"grade"`
	Percentile int   `json:"percentile"`
}

// Listing is the logical listing entity. Both physical stores materialize
// into this one value type.
type Listing struct {
	ID              int64               `json:"id"`
	MLSNumber       string              `json:"mls_number"`
	Status          Status              `json:"status"`
	PropertyType    string              `json:"property_type"`
	PropertySubType string              `json:"property_subtype,omitempty"`
	ListPrice       decimal.Decimal     `json:"list_price"`
	ClosePrice      decimal.NullDecimal `json:"close_price"`
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	Address         Address             `json:"address"`
	Neighborhood    string              `json:"neighborhood,omitempty"`
	County          string              `json:"county,omitempty"`

	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    decimal.Decimal `json:"bathrooms"`
	LivingArea   int             `json:"living_area"`
	YearBuilt    int             `json:"year_built,omitempty"`
	LotSizeAcres decimal.Decimal `json:"lot_size_acres"`
	GarageSpaces int             `json:"garage_spaces"`
	ParkingTotal int             `json:"parking_total"`
	Stories      int             `json:"stories,omitempty"`
	DaysOnMarket int             `json:"days_on_market"`
	HOAFee       decimal.Decimal `json:"hoa_fee"`

	StructureType      []string  `json:"structure_type,omitempty"`
	ArchitecturalStyle []string  `json:"architectural_style,omitempty"`
	Amenities          Amenities `json:"amenities"`

	ListAgentKey  string   `json:"-"`
	BuyerAgentKey string   `json:"-"`
	TeamKeys      []string `json:"-"`
	LeaseTerm     string   `json:"lease_term,omitempty"`
	RentIncludes  []string `json:"rent_includes,omitempty"`

	PhotoURL   string    `json:"photo_url,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Partition  Partition `json:"-"`

	// Query-time enrichment; never persisted on the listing.
	Events      []EventSummary `json:"events"`
	SchoolGrade Grade          `json:"school_grade,omitempty"`
	District    *DistrictGrade `json:"district,omitempty"`
}

// EffectivePrice is the close price once a listing has closed, the list price otherwise.
func (l *Listing) EffectivePrice() decimal.Decimal {
	if l.Status == StatusClosed && l.ClosePrice.Valid {
		return l.ClosePrice.Decimal
	}
	return l.ListPrice
}

// RankedResult is an ordered page of listings plus the match count.
// TotalIsExact is false when a post-query filter made Total a best-effort figure.
type RankedResult struct {
	Listings     []Listing `json:"listings"`
	Total        int       `json:"total"`
	TotalIsExact bool      `json:"total_is_exact"`
}

// encodeTextArray mirrors the storage representation of multi-value columns:
// a small JSON array serialized as text.
func encodeTextArray(values []string) string {
	if len(values) == 0 {
		return ""
	}
	b, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(b)
}
