package nmea

import (
	"fmt"
	"time"
)

// GenerateRMC builds a complete GPRMC sentence from signed decimal
// degrees. A zero at means the current UTC instant. Speed is in knots,
// course in degrees.
//
// Field layout:
//
//	$GPRMC,hhmmss.ssssss,A,ddmm.mmmm,N|S,dddmm.mmmm,E|W,spd,crs,ddmmyy,,,A*CS
func GenerateRMC(latitude, longitude float64, at time.Time, speedKnots, courseDeg float64) string {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	absLat := latitude
	latDir := "N"
	if latitude < 0 {
		absLat = -latitude
		latDir = "S"
	}
	absLon := longitude
	lonDir := "E"
	if longitude < 0 {
		absLon = -longitude
		lonDir = "W"
	}

	latDeg := int(absLat)
	latMin := (absLat - float64(latDeg)) * 60
	lonDeg := int(absLon)
	lonMin := (absLon - float64(lonDeg)) * 60

	body := fmt.Sprintf("GPRMC,%s,A,%02d%07.4f,%s,%03d%07.4f,%s,%.1f,%.1f,%s,,,A",
		at.Format("150405.000000"),
		latDeg, latMin, latDir,
		lonDeg, lonMin, lonDir,
		speedKnots, courseDeg,
		at.Format("020106"))

	return fmt.Sprintf("$%s*%s", body, Checksum(body))
}
