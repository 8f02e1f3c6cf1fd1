package model

// GroundStation represents an operator-managed ground segment site: a fixed
// antenna location plus the elevation mask below which no contact is
// attempted.
type GroundStation struct {
	ID   string
	Name string

	// Geodetic position. Latitude/longitude in degrees, altitude in metres
	// above the WGS84 ellipsoid.
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64

	// MinElevationDeg is the horizon mask in degrees. A pass only counts
	// while the spacecraft is above this elevation.
	MinElevationDeg float64
}

// Spacecraft represents a space segment asset whose orbit is described by a
// two-line element set.
type Spacecraft struct {
	ID       string
	Name     string
	Callsign string

	// TLELine1 and TLELine2 hold the current two-line element set used for
	// pass prediction. An empty TLE means the spacecraft cannot generate
	// passes yet.
	TLELine1 string
	TLELine2 string
}
