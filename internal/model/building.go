package model

import "time"

// AddressConfidence describes how certain the geocoder was about a
// standardized address.
type AddressConfidence string

const (
	AddressConfidenceHigh   AddressConfidence = "high"
	AddressConfidenceMedium AddressConfidence = "medium"
	AddressConfidenceLow    AddressConfidence = "low"
	AddressConfidenceError  AddressConfidence = "error"
)

// Provenance tags a group of attribute fields with the source that
// produced them.
type Provenance string

const (
	ProvenanceDeclared  Provenance = "declared"
	ProvenanceListing   Provenance = "listing_api"
	ProvenanceInferred  Provenance = "ai_inferred"
	ProvenanceEstimated Provenance = "estimated"
)

// Candidate is a raw discovery result: a building we know almost
// nothing about yet. Discarded after dedup rejection or promotion.
type Candidate struct {
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Source    string   `json:"source"`
}

// StandardizedAddress holds the canonical parts recovered from
// geocoding a free-text address. Immutable once computed.
type StandardizedAddress struct {
	Street     string            `json:"street"`
	Borough    string            `json:"borough"`
	State      string            `json:"state"`
	PostalCode string            `json:"postal_code"`
	Formatted  string            `json:"formatted"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Confidence AddressConfidence `json:"confidence"`
}

// Attributes are the enrichment fields for a building. Exactly one
// attribute source wins per building; Provenance records which.
type Attributes struct {
	Units             int        `json:"units,omitempty"`
	YearBuilt         int        `json:"year_built,omitempty"`
	SquareFootage     int        `json:"square_footage,omitempty"`
	Amenities         []string   `json:"amenities,omitempty"`
	BuildingClass     string     `json:"building_class,omitempty"`
	BuildingStyle     string     `json:"building_style,omitempty"`
	RentStabilized    bool       `json:"rent_stabilized,omitempty"`
	ManagementCompany string     `json:"management_company,omitempty"`
	PropertyManager   string     `json:"property_manager,omitempty"`
	Website           string     `json:"website,omitempty"`
	Provenance        Provenance `json:"provenance,omitempty"`
}

// Classification is the oracle's judgment of what kind of building
// this is. Confidence is "high"/"medium"/"low" on success, "error"
// when the oracle response failed to parse.
type Classification struct {
	BuildingType     string `json:"building_type"`
	ManagerType      string `json:"manager_type,omitempty"`
	InvestmentRating string `json:"investment_rating,omitempty"`
	Notes            string `json:"notes,omitempty"`
	Confidence       string `json:"confidence"`
}

// Building is a candidate after enrichment: standardized address,
// attributes, classification, and the residential-confirmation rule.
type Building struct {
	Name                 string               `json:"name,omitempty"`
	Address              string               `json:"address"`
	DeclaredType         string               `json:"declared_type,omitempty"`
	Source               string               `json:"source"`
	Standardized         *StandardizedAddress `json:"standardized,omitempty"`
	Attributes           Attributes           `json:"attributes"`
	Classification       Classification       `json:"classification"`
	ResidentialConfirmed bool                 `json:"residential_confirmed"`
}

// Record is a fully assembled building plus its resolved contact,
// keyed in the store by normalized address, standardized address and
// non-empty name.
type Record struct {
	ID        string           `json:"id"`
	Building  Building         `json:"building"`
	Contact   *ResolvedContact `json:"contact,omitempty"`
	Approved  bool             `json:"approved"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// KeySet carries the dedup keys for one building. Empty fields are
// not matched against.
type KeySet struct {
	NormalizedAddress   string
	StandardizedAddress string
	Name                string
}

// OutreachLog is one outbound message recorded against a record.
type OutreachLog struct {
	ID       string    `json:"id"`
	RecordID string    `json:"record_id"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Status   string    `json:"status"`
	SentAt   time.Time `json:"sent_at"`
}
