package valueobject

// Location identifies where stock physically moves: one of the two tracked
// warehouses, or direct fulfillment that never touches a warehouse shelf.
type Location string

const (
	// LocationA is the primary warehouse
	LocationA Location = "LOCATION_A"
	// LocationB is the secondary warehouse
	LocationB Location = "LOCATION_B"
	// LocationDirect is drop-shipped stock fulfilled straight from the vendor
	LocationDirect Location = "DIRECT"
)

// String returns the string representation of Location
func (l Location) String() string {
	return string(l)
}

// IsValid returns true if the location is one of the known values
func (l Location) IsValid() bool {
	switch l {
	case LocationA, LocationB, LocationDirect:
		return true
	}
	return false
}

// AllLocations returns every valid location
func AllLocations() []Location {
	return []Location{LocationA, LocationB, LocationDirect}
}
