package nmea

import (
	"strconv"
	"strings"

	"github.com/vaultecki/py-positioning-stuff/internal/geodesy"
)

// Sentence is one decoded NMEA sentence.
type Sentence interface {
	// Type returns the talker+type identifier, e.g. "GPRMC".
	Type() string
}

// PositionInfo is the position payload extracted from a decoded
// sentence. Latitude and longitude are signed decimal degrees.
type PositionInfo struct {
	Latitude   float64
	Longitude  float64
	LatDir     geodesy.Hemisphere
	LonDir     geodesy.Hemisphere
	Time       string // hhmmss.ss as transmitted, "" when absent
	Altitude   *float64
	Satellites *int
	Quality    *int
}

type positionCarrier interface {
	positionInfo() PositionInfo
}

// RMC: Recommended Minimum Specific GNSS Data.
type RMC struct {
	TimeOfDay  string
	Status     string
	Latitude   float64
	Longitude  float64
	LatDir     geodesy.Hemisphere
	LonDir     geodesy.Hemisphere
	SpeedKnots *float64
	CourseDeg  *float64
	Date       string
}

func (RMC) Type() string { return "GPRMC" }

func (s RMC) positionInfo() PositionInfo {
	return PositionInfo{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		LatDir:    s.LatDir,
		LonDir:    s.LonDir,
		Time:      s.TimeOfDay,
	}
}

// GGA: Global Positioning System Fix Data.
type GGA struct {
	TimeOfDay  string
	Latitude   float64
	Longitude  float64
	LatDir     geodesy.Hemisphere
	LonDir     geodesy.Hemisphere
	Quality    *int
	Satellites *int
	HDOP       *float64
	Altitude   *float64
}

func (GGA) Type() string { return "GPGGA" }

func (s GGA) positionInfo() PositionInfo {
	return PositionInfo{
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		LatDir:     s.LatDir,
		LonDir:     s.LonDir,
		Time:       s.TimeOfDay,
		Altitude:   s.Altitude,
		Satellites: s.Satellites,
		Quality:    s.Quality,
	}
}

// GLL: Geographic Position, Latitude/Longitude.
type GLL struct {
	Latitude  float64
	Longitude float64
	LatDir    geodesy.Hemisphere
	LonDir    geodesy.Hemisphere
	TimeOfDay string
	Status    string
}

func (GLL) Type() string { return "GPGLL" }

func (s GLL) positionInfo() PositionInfo {
	return PositionInfo{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		LatDir:    s.LatDir,
		LonDir:    s.LonDir,
		Time:      s.TimeOfDay,
	}
}

// GSA: GPS DOP and active satellites. Carries no position.
type GSA struct {
	Mode    string
	FixType *int
	PRNs    []int
	PDOP    *float64
	HDOP    *float64
	VDOP    *float64
}

func (GSA) Type() string { return "GPGSA" }

// GSV: GPS satellites in view. Carries no position.
type GSV struct {
	TotalMessages    *int
	MessageNumber    *int
	SatellitesInView *int
}

func (GSV) Type() string { return "GPGSV" }

// VTG: Track made good and ground speed. Carries no position.
type VTG struct {
	TrackTrueDeg     *float64
	TrackMagneticDeg *float64
	SpeedKnots       *float64
	SpeedKmh         *float64
}

func (VTG) Type() string { return "GPVTG" }

// SafeParse validates and decodes one NMEA sentence. When validate is
// true, format and checksum must both hold. The returned error is one
// of *FormatError, *ChecksumError, *FieldError or the geodesy range and
// format errors; it classifies the failure and never panics.
func SafeParse(sentence string, validate bool) (Sentence, error) {
	line := strings.TrimSpace(sentence)

	if validate {
		if !ValidateFormat(line) {
			return nil, &FormatError{Sentence: line}
		}
		if !ValidateChecksum(line) {
			star := strings.IndexByte(line, '*')
			return nil, &ChecksumError{
				Sentence: line,
				Want:     Checksum(strings.TrimPrefix(line[:star], "$")),
				Got:      line[star+1:],
			}
		}
	}

	typ := SentenceType(line)
	if !supportedSentences[typ] {
		return nil, &FieldError{Type: typ, Reason: "unsupported sentence type"}
	}

	body := strings.TrimPrefix(line, "$")
	if star := strings.IndexByte(body, '*'); star != -1 {
		body = body[:star]
	}
	fields := strings.Split(body, ",")

	switch typ {
	case "GPRMC":
		return parseRMC(fields)
	case "GPGGA":
		return parseGGA(fields)
	case "GPGLL":
		return parseGLL(fields)
	case "GPGSA":
		return parseGSA(fields)
	case "GPGSV":
		return parseGSV(fields)
	default: // GPVTG
		return parseVTG(fields)
	}
}

// ExtractPositionInfo returns the position payload of a decoded
// sentence, or ok=false when the sentence type carries none.
func ExtractPositionInfo(s Sentence) (PositionInfo, bool) {
	pc, ok := s.(positionCarrier)
	if !ok {
		return PositionInfo{}, false
	}
	return pc.positionInfo(), true
}

// parseLatLon decodes an NMEA coordinate pair into signed decimal
// degrees. Range violations surface as *geodesy.RangeError.
func parseLatLon(latStr, latDir, lonStr, lonDir string) (lat, lon float64, latH, lonH geodesy.Hemisphere, err error) {
	latDir = strings.TrimSpace(strings.ToUpper(latDir))
	lonDir = strings.TrimSpace(strings.ToUpper(lonDir))
	if latDir == "" {
		latDir = "N"
	}
	if lonDir == "" {
		lonDir = "E"
	}
	latH, lonH = geodesy.Hemisphere(latDir[0]), geodesy.Hemisphere(lonDir[0])

	latC, err := geodesy.FromNMEA(latStr, latH)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	lonC, err := geodesy.FromNMEA(lonStr, lonH)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return latC.Signed(), lonC.Signed(), latH, lonH, nil
}

func parseRMC(f []string) (Sentence, error) {
	if len(f) < 10 {
		return nil, &FieldError{Type: "GPRMC", Reason: "too few fields"}
	}
	lat, lon, latH, lonH, err := parseLatLon(f[3], f[4], f[5], f[6])
	if err != nil {
		return nil, err
	}
	return RMC{
		TimeOfDay:  strings.TrimSpace(f[1]),
		Status:     strings.TrimSpace(f[2]),
		Latitude:   lat,
		Longitude:  lon,
		LatDir:     latH,
		LonDir:     lonH,
		SpeedKnots: optFloat(f[7]),
		CourseDeg:  optFloat(f[8]),
		Date:       strings.TrimSpace(f[9]),
	}, nil
}

func parseGGA(f []string) (Sentence, error) {
	if len(f) < 10 {
		return nil, &FieldError{Type: "GPGGA", Reason: "too few fields"}
	}
	lat, lon, latH, lonH, err := parseLatLon(f[2], f[3], f[4], f[5])
	if err != nil {
		return nil, err
	}
	return GGA{
		TimeOfDay:  strings.TrimSpace(f[1]),
		Latitude:   lat,
		Longitude:  lon,
		LatDir:     latH,
		LonDir:     lonH,
		Quality:    optInt(f[6]),
		Satellites: optInt(f[7]),
		HDOP:       optFloat(f[8]),
		Altitude:   optFloat(f[9]),
	}, nil
}

func parseGLL(f []string) (Sentence, error) {
	if len(f) < 5 {
		return nil, &FieldError{Type: "GPGLL", Reason: "too few fields"}
	}
	lat, lon, latH, lonH, err := parseLatLon(f[1], f[2], f[3], f[4])
	if err != nil {
		return nil, err
	}
	out := GLL{Latitude: lat, Longitude: lon, LatDir: latH, LonDir: lonH}
	if len(f) > 5 {
		out.TimeOfDay = strings.TrimSpace(f[5])
	}
	if len(f) > 6 {
		out.Status = strings.TrimSpace(f[6])
	}
	return out, nil
}

func parseGSA(f []string) (Sentence, error) {
	if len(f) < 18 {
		return nil, &FieldError{Type: "GPGSA", Reason: "too few fields"}
	}
	out := GSA{
		Mode:    strings.TrimSpace(f[1]),
		FixType: optInt(f[2]),
		PDOP:    optFloat(f[15]),
		HDOP:    optFloat(f[16]),
		VDOP:    optFloat(f[17]),
	}
	for _, prn := range f[3:15] {
		if v := optInt(prn); v != nil {
			out.PRNs = append(out.PRNs, *v)
		}
	}
	return out, nil
}

func parseGSV(f []string) (Sentence, error) {
	if len(f) < 4 {
		return nil, &FieldError{Type: "GPGSV", Reason: "too few fields"}
	}
	return GSV{
		TotalMessages:    optInt(f[1]),
		MessageNumber:    optInt(f[2]),
		SatellitesInView: optInt(f[3]),
	}, nil
}

func parseVTG(f []string) (Sentence, error) {
	if len(f) < 8 {
		return nil, &FieldError{Type: "GPVTG", Reason: "too few fields"}
	}
	return VTG{
		TrackTrueDeg:     optFloat(f[1]),
		TrackMagneticDeg: optFloat(f[3]),
		SpeedKnots:       optFloat(f[5]),
		SpeedKmh:         optFloat(f[7]),
	}, nil
}

func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
