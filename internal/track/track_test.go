package track

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTrackDistanceDurationSpeed(t *testing.T) {
	tr := NewTrack("test")
	require.NotEqual(t, uuid.Nil, tr.ID)

	base := time.Now()
	tr.Add(fixAt(48.0, 11.0, base))
	tr.Add(fixAt(48.1, 11.0, base.Add(100*time.Second)))
	tr.Add(fixAt(48.2, 11.0, base.Add(200*time.Second)))

	require.InDelta(t, 22240, tr.TotalDistance(), 2000)
	require.Equal(t, 200*time.Second, tr.Duration())
	require.InDelta(t, tr.TotalDistance()/200, tr.AverageSpeed(), 1e-9)
}

func TestTrackDegenerate(t *testing.T) {
	tr := NewTrack("")
	require.Equal(t, "GPS Track", tr.Name)
	require.Equal(t, 0.0, tr.TotalDistance())
	require.Equal(t, time.Duration(0), tr.Duration())
	require.Equal(t, 0.0, tr.AverageSpeed())
	require.Equal(t, Bounds{}, tr.Bounds())

	tr.Add(fixAt(48.0, 11.0, time.Now()))
	require.Equal(t, 0.0, tr.TotalDistance())
}

func TestTrackBounds(t *testing.T) {
	tr := NewTrack("bounds")
	base := time.Now()
	tr.Add(fixAt(48.0, 11.5, base))
	tr.Add(fixAt(48.3, 11.0, base))
	tr.Add(fixAt(47.9, 11.2, base))

	b := tr.Bounds()
	require.Equal(t, 47.9, b.MinLat)
	require.Equal(t, 48.3, b.MaxLat)
	require.Equal(t, 11.0, b.MinLon)
	require.Equal(t, 11.5, b.MaxLon)
}
