// Package nmea implements the NMEA-0183 sentence codec: checksum and
// format validation, per-type field decoding, position extraction and
// RMC generation. All functions are stateless; malformed input is
// reported through typed errors and never panics.
package nmea

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatError reports a sentence that does not match the NMEA frame
// $XXYYY,payload*CC.
type FormatError struct {
	Sentence string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("nmea: invalid sentence format %q", e.Sentence)
}

// ChecksumError reports a checksum mismatch.
type ChecksumError struct {
	Sentence string
	Want     string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("nmea: checksum mismatch: want %s, got %s", e.Want, e.Got)
}

// FieldError reports a structurally valid sentence whose payload cannot
// be decoded.
type FieldError struct {
	Type   string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("nmea: %s: %s", e.Type, e.Reason)
}

// sentencePattern: $ + 2-letter talker + 3-letter type + comma-separated
// payload without '*' + 2-hex-digit checksum.
var sentencePattern = regexp.MustCompile(`^\$[A-Za-z]{2}[A-Za-z]{3},[^*]*\*[0-9A-Fa-f]{2}$`)

var supportedSentences = map[string]bool{
	"GPRMC": true, // Recommended Minimum Specific GPS/Transit Data
	"GPGGA": true, // Global Positioning System Fix Data
	"GPGLL": true, // Geographic Position - Latitude/Longitude
	"GPGSA": true, // GPS DOP and Active Satellites
	"GPGSV": true, // GPS Satellites in View
	"GPVTG": true, // Track Made Good and Ground Speed
}

// Checksum computes the NMEA checksum of body, the text strictly between
// '$' and '*': the XOR of every byte, rendered as two uppercase hex
// digits.
func Checksum(body string) string {
	var ck byte
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return fmt.Sprintf("%02X", ck)
}

// ValidateChecksum verifies the trailing checksum of a complete
// sentence. The sentence must contain exactly one '*'; comparison is
// case-insensitive.
func ValidateChecksum(sentence string) bool {
	if strings.Count(sentence, "*") != 1 {
		return false
	}
	star := strings.IndexByte(sentence, '*')
	body := sentence[:star]
	provided := sentence[star+1:]
	body = strings.TrimPrefix(body, "$")
	return strings.EqualFold(Checksum(body), provided)
}

// ValidateFormat reports whether the sentence matches the NMEA frame
// pattern.
func ValidateFormat(sentence string) bool {
	return sentencePattern.MatchString(strings.TrimSpace(sentence))
}

// SentenceType returns the five-character talker+type identifier (e.g.
// "GPRMC"), or "" when the sentence is too short.
func SentenceType(sentence string) string {
	if len(sentence) < 6 || sentence[0] != '$' {
		return ""
	}
	return strings.ToUpper(sentence[1:6])
}

// IsSupported reports whether the sentence's type is one this codec
// decodes.
func IsSupported(sentence string) bool {
	return supportedSentences[SentenceType(sentence)]
}

// IsValid runs format validation and, optionally, checksum
// verification.
func IsValid(sentence string, checkChecksum bool) bool {
	if !ValidateFormat(sentence) {
		return false
	}
	if checkChecksum && !ValidateChecksum(sentence) {
		return false
	}
	return true
}
