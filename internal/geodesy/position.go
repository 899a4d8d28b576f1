package geodesy

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0
	earthRadiusM  = 6371000.0
)

// Position is a geographic point with altitude in meters.
type Position struct {
	Latitude  Coordinate
	Longitude Coordinate
	Altitude  float64
}

// FromDecimal builds a position from signed decimal degrees.
func FromDecimal(lat, lon, alt float64) (Position, error) {
	latHemi, lonHemi := North, East
	if lat < 0 {
		latHemi = South
	}
	if lon < 0 {
		lonHemi = West
	}
	latC, err := NewCoordinate(lat, latHemi)
	if err != nil {
		return Position{}, err
	}
	lonC, err := NewCoordinate(lon, lonHemi)
	if err != nil {
		return Position{}, err
	}
	return Position{Latitude: latC, Longitude: lonC, Altitude: alt}, nil
}

// PositionFromNMEA builds a position from NMEA coordinate strings plus
// hemisphere indicators.
func PositionFromNMEA(latStr string, latHemi Hemisphere, lonStr string, lonHemi Hemisphere, alt float64) (Position, error) {
	lat, err := FromNMEA(latStr, latHemi)
	if err != nil {
		return Position{}, err
	}
	lon, err := FromNMEA(lonStr, lonHemi)
	if err != nil {
		return Position{}, err
	}
	return Position{Latitude: lat, Longitude: lon, Altitude: alt}, nil
}

// Decimal returns the position as signed decimal degrees plus altitude.
func (p Position) Decimal() (lat, lon, alt float64) {
	return p.Latitude.Signed(), p.Longitude.Signed(), p.Altitude
}

// DistanceKm returns the great-circle distance to other in kilometers.
func (p Position) DistanceKm(other Position) float64 {
	return haversine(p.Latitude.Signed(), p.Longitude.Signed(),
		other.Latitude.Signed(), other.Longitude.Signed(), earthRadiusKm)
}

func (p Position) String() string {
	return fmt.Sprintf("Position(%s, %s, %.1fm)", p.Latitude, p.Longitude, p.Altitude)
}

// DistanceMeters returns the great-circle distance in meters between two
// points given as signed decimal degrees. This is the fix-to-fix call
// site used by the track store; Position.DistanceKm serves the
// kilometer-based one.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2, earthRadiusM)
}

func haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radius * c
}
