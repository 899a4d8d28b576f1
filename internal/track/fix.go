package track

import (
	"time"

	"github.com/vaultecki/py-positioning-stuff/internal/geodesy"
)

// Fix is a single GPS position reading. Latitude and longitude are
// signed decimal degrees; optional readings use pointers so absence is
// distinguishable from zero.
type Fix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   float64   `json:"altitude"`
	Timestamp  time.Time `json:"timestamp"`
	Speed      *float64  `json:"speed,omitempty"`      // m/s
	Course     *float64  `json:"course,omitempty"`     // degrees
	Satellites *int      `json:"satellites,omitempty"` //
	Quality    *int      `json:"quality,omitempty"`    // GPS fix quality
}

// DistanceTo returns the great-circle distance to other in meters.
func (f Fix) DistanceTo(other Fix) float64 {
	return geodesy.DistanceMeters(f.Latitude, f.Longitude, other.Latitude, other.Longitude)
}

// Sink receives every fix committed to a Store, in commit order.
// Implementations must be fast or hand work off; they run on the
// caller's goroutine.
type Sink interface {
	OnFix(Fix)
}
