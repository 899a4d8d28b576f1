package track

import (
	"time"

	"github.com/google/uuid"
)

// Bounds is the bounding box of a track.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Track is an independently owned, unbounded sequence of fixes used for
// analysis. Unlike Store it has no capacity bound and no sinks.
type Track struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Positions []Fix     `json:"positions"`
}

// NewTrack creates an empty named track.
func NewTrack(name string) *Track {
	if name == "" {
		name = "GPS Track"
	}
	return &Track{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// Add appends a fix to the track.
func (t *Track) Add(fix Fix) {
	t.Positions = append(t.Positions, fix)
}

// TotalDistance returns the summed leg distances in meters.
func (t *Track) TotalDistance() float64 {
	if len(t.Positions) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(t.Positions); i++ {
		total += t.Positions[i-1].DistanceTo(t.Positions[i])
	}
	return total
}

// Duration returns the time span between first and last fix.
func (t *Track) Duration() time.Duration {
	if len(t.Positions) < 2 {
		return 0
	}
	return t.Positions[len(t.Positions)-1].Timestamp.Sub(t.Positions[0].Timestamp)
}

// AverageSpeed returns total distance over duration in m/s, 0 for
// degenerate tracks.
func (t *Track) AverageSpeed() float64 {
	d := t.Duration().Seconds()
	if d == 0 {
		return 0
	}
	return t.TotalDistance() / d
}

// Bounds returns the track's bounding box; a zero box for an empty
// track.
func (t *Track) Bounds() Bounds {
	if len(t.Positions) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: t.Positions[0].Latitude,
		MaxLat: t.Positions[0].Latitude,
		MinLon: t.Positions[0].Longitude,
		MaxLon: t.Positions[0].Longitude,
	}
	for _, p := range t.Positions[1:] {
		if p.Latitude < b.MinLat {
			b.MinLat = p.Latitude
		}
		if p.Latitude > b.MaxLat {
			b.MaxLat = p.Latitude
		}
		if p.Longitude < b.MinLon {
			b.MinLon = p.Longitude
		}
		if p.Longitude > b.MaxLon {
			b.MaxLon = p.Longitude
		}
	}
	return b
}
