package geodesy

import (
	"fmt"
	"strconv"
	"strings"
)

// Hemisphere is the single-letter direction indicator of a coordinate.
type Hemisphere byte

const (
	North Hemisphere = 'N'
	South Hemisphere = 'S'
	East  Hemisphere = 'E'
	West  Hemisphere = 'W'
)

func (h Hemisphere) String() string { return string(rune(h)) }

// IsLatitude reports whether the hemisphere belongs to a latitude.
func (h Hemisphere) IsLatitude() bool { return h == North || h == South }

func (h Hemisphere) valid() bool {
	return h == North || h == South || h == East || h == West
}

// RangeError reports a coordinate outside its legal range.
type RangeError struct {
	Value float64
	Hemi  Hemisphere
}

func (e *RangeError) Error() string {
	if e.Hemi.IsLatitude() {
		return fmt.Sprintf("geodesy: latitude %v exceeds valid range [-90, 90]", e.Value)
	}
	return fmt.Sprintf("geodesy: longitude %v exceeds valid range [-180, 180]", e.Value)
}

// FormatError reports unparseable coordinate text.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("geodesy: invalid NMEA value %q", e.Input)
}

// Coordinate is one latitude or longitude: unsigned decimal degrees plus
// a hemisphere. Immutable once constructed.
type Coordinate struct {
	deg  float64
	hemi Hemisphere
}

// NewCoordinate builds a validated coordinate. The magnitude of deg is
// used; sign is carried by the hemisphere.
func NewCoordinate(deg float64, hemi Hemisphere) (Coordinate, error) {
	abs := deg
	if abs < 0 {
		abs = -abs
	}
	switch {
	case !hemi.valid():
		return Coordinate{}, fmt.Errorf("geodesy: invalid hemisphere %q", string(rune(hemi)))
	case hemi.IsLatitude() && abs > 90:
		return Coordinate{}, &RangeError{Value: deg, Hemi: hemi}
	case !hemi.IsLatitude() && abs > 180:
		return Coordinate{}, &RangeError{Value: deg, Hemi: hemi}
	}
	return Coordinate{deg: abs, hemi: hemi}, nil
}

// FromNMEA parses a coordinate in NMEA degree-minute form, DDMM.MMMM for
// latitude or DDDMM.MMMM for longitude.
func FromNMEA(value string, hemi Hemisphere) (Coordinate, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Coordinate{}, &FormatError{Input: value}
	}
	deg := float64(int(v / 100))
	mins := v - deg*100
	return NewCoordinate(deg+mins/60.0, hemi)
}

// DecimalDegrees returns the unsigned decimal degrees.
func (c Coordinate) DecimalDegrees() float64 { return c.deg }

// Hemisphere returns the direction indicator.
func (c Coordinate) Hemisphere() Hemisphere { return c.hemi }

// Signed returns decimal degrees with S/W negative.
func (c Coordinate) Signed() float64 {
	if c.hemi == South || c.hemi == West {
		return -c.deg
	}
	return c.deg
}

// DegreesMinutes returns the coordinate in DDDMM.MMMM numeric form.
func (c Coordinate) DegreesMinutes() float64 {
	deg := float64(int(c.deg))
	mins := (c.deg - deg) * 60.0
	return deg*100 + mins
}

// DMS returns whole degrees, whole minutes and fractional seconds.
func (c Coordinate) DMS() (int, int, float64) {
	deg := int(c.deg)
	rem := (c.deg - float64(deg)) * 60.0
	mins := int(rem)
	secs := (rem - float64(mins)) * 60.0
	return deg, mins, secs
}

// NMEA formats the coordinate as a zero-padded NMEA string: DDMM.MMMM
// when latFormat is true, DDDMM.MMMM otherwise.
func (c Coordinate) NMEA(latFormat bool) string {
	if latFormat {
		return fmt.Sprintf("%09.4f", c.DegreesMinutes())
	}
	return fmt.Sprintf("%010.4f", c.DegreesMinutes())
}

func (c Coordinate) String() string {
	d, m, s := c.DMS()
	return fmt.Sprintf("%d° %d' %.3f\" %s", d, m, s, c.hemi)
}
