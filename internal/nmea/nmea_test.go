package nmea

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultecki/py-positioning-stuff/internal/geodesy"
)

// sentence wraps a payload with '$' and a correct checksum.
func sentence(body string) string {
	return fmt.Sprintf("$%s*%s", body, Checksum(body))
}

const refRMC = "$GPRMC,123456.00,A,4807.404,N,01131.324,E,0.0,0.0,191124,,,A*6C"

func TestChecksumReference(t *testing.T) {
	require.Equal(t, "6C", Checksum("GPRMC,123456.00,A,4807.404,N,01131.324,E,0.0,0.0,191124,,,A"))
}

func TestValidateChecksum(t *testing.T) {
	require.True(t, ValidateChecksum(refRMC))

	// Lowercase hex digits are accepted.
	require.True(t, ValidateChecksum(refRMC[:len(refRMC)-2]+"6c"))

	// Wrong checksum.
	require.False(t, ValidateChecksum(refRMC[:len(refRMC)-2]+"FF"))

	// No or multiple '*' separators.
	require.False(t, ValidateChecksum("$GPRMC,123456"))
	require.False(t, ValidateChecksum("$GPRMC,12*34*56"))
}

func TestValidateFormat(t *testing.T) {
	require.True(t, ValidateFormat(refRMC))
	require.False(t, ValidateFormat("GPRMC,no dollar*00"))
	require.False(t, ValidateFormat("$GP1MC,digit in type*00"))
	require.False(t, ValidateFormat("$GPRMC,short checksum*0"))
	require.False(t, ValidateFormat("$GPRMCnocomma*00"))
}

func TestSentenceTypeAndSupported(t *testing.T) {
	require.Equal(t, "GPRMC", SentenceType(refRMC))
	require.Equal(t, "GPGGA", SentenceType("$gpgga,1,2,3*00"))
	require.Equal(t, "", SentenceType("$GP"))

	require.True(t, IsSupported(refRMC))
	require.False(t, IsSupported("$GPXTE,a,b*00"))
}

func TestSafeParseReferenceSentence(t *testing.T) {
	s, err := SafeParse(refRMC, true)
	require.NoError(t, err)

	rmc, ok := s.(RMC)
	require.True(t, ok)
	require.Equal(t, "A", rmc.Status)
	require.InDelta(t, 48.1234, rmc.Latitude, 1e-4)
	require.InDelta(t, 11.5221, rmc.Longitude, 1e-4)

	info, ok := ExtractPositionInfo(s)
	require.True(t, ok)
	require.InDelta(t, 48.1234, info.Latitude, 1e-4)
	require.InDelta(t, 11.5221, info.Longitude, 1e-4)
	require.Equal(t, geodesy.North, info.LatDir)
	require.Equal(t, geodesy.East, info.LonDir)
}

func TestSafeParseBadChecksum(t *testing.T) {
	bad := refRMC[:len(refRMC)-2] + "FF"
	_, err := SafeParse(bad, true)
	var ce *ChecksumError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "6C", ce.Want)
}

func TestSafeParseBadFormat(t *testing.T) {
	_, err := SafeParse("not nmea at all", true)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestSafeParseUnsupportedType(t *testing.T) {
	line := sentence("GPXTE,A,A,0.67,L,N")
	_, err := SafeParse(line, true)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
}

func TestSafeParseLatitudeOutOfRange(t *testing.T) {
	line := sentence("GPRMC,123456.00,A,9907.404,N,01131.324,E,0.0,0.0,191124,,,A")
	_, err := SafeParse(line, true)
	var re *geodesy.RangeError
	require.ErrorAs(t, err, &re)
}

func TestSafeParseSkipValidation(t *testing.T) {
	// Without validation the sentence may omit its checksum entirely.
	s, err := SafeParse("$GPGLL,4807.404,N,01131.324,E,123456.00,A", false)
	require.NoError(t, err)
	gll, ok := s.(GLL)
	require.True(t, ok)
	require.InDelta(t, 48.1234, gll.Latitude, 1e-4)
}

func TestSafeParseGGA(t *testing.T) {
	line := sentence("GPGGA,123456.00,4807.404,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,")
	s, err := SafeParse(line, true)
	require.NoError(t, err)

	gga, ok := s.(GGA)
	require.True(t, ok)
	require.NotNil(t, gga.Quality)
	require.Equal(t, 1, *gga.Quality)
	require.NotNil(t, gga.Satellites)
	require.Equal(t, 8, *gga.Satellites)
	require.NotNil(t, gga.Altitude)
	require.InDelta(t, 545.4, *gga.Altitude, 1e-9)

	info, ok := ExtractPositionInfo(s)
	require.True(t, ok)
	require.Equal(t, 8, *info.Satellites)
	require.Equal(t, 1, *info.Quality)
}

func TestSafeParseNonPositionSentences(t *testing.T) {
	gsa := sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1")
	s, err := SafeParse(gsa, true)
	require.NoError(t, err)
	_, hasPos := ExtractPositionInfo(s)
	require.False(t, hasPos)
	require.Equal(t, []int{4, 5, 9, 12, 24}, s.(GSA).PRNs)

	vtg := sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	s, err = SafeParse(vtg, true)
	require.NoError(t, err)
	_, hasPos = ExtractPositionInfo(s)
	require.False(t, hasPos)
	require.InDelta(t, 5.5, *s.(VTG).SpeedKnots, 1e-9)

	gsv := sentence("GPGSV,2,1,08,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45")
	s, err = SafeParse(gsv, true)
	require.NoError(t, err)
	require.Equal(t, 8, *s.(GSV).SatellitesInView)
}

func TestGenerateRMCRoundTrip(t *testing.T) {
	at := time.Date(2024, 11, 19, 12, 34, 56, 0, time.UTC)

	for _, tc := range []struct{ lat, lon float64 }{
		{48.1234, 11.5678},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{-54.8019, -68.3030},
		{0, 0},
	} {
		line := GenerateRMC(tc.lat, tc.lon, at, 0, 0)
		require.True(t, ValidateFormat(line), "format: %s", line)
		require.True(t, ValidateChecksum(line), "checksum: %s", line)

		s, err := SafeParse(line, true)
		require.NoError(t, err)
		rmc := s.(RMC)
		require.InDelta(t, tc.lat, rmc.Latitude, 1e-4)
		require.InDelta(t, tc.lon, rmc.Longitude, 1e-4)
		require.Equal(t, "123456.000000", rmc.TimeOfDay)
		require.Equal(t, "191124", rmc.Date)
	}
}

func TestGenerateRMCLayout(t *testing.T) {
	at := time.Date(2024, 11, 19, 12, 34, 56, 0, time.UTC)
	line := GenerateRMC(48.1234, 11.5678, at, 12.5, 87.3)
	require.Equal(t, "$GPRMC,123456.000000,A,4807.4040,N,01134.0680,E,12.5,87.3,191124,,,A", line[:len(line)-3])
}
