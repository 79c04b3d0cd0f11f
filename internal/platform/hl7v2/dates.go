package hl7v2

import "time"

// FrenchOffset is the fixed +02:00 offset stamped on every converted date-time.
// No daylight-saving calculation is applied.
var FrenchOffset = time.FixedZone("+02:00", 2*60*60)

const (
	isoDate         = "2006-01-02"
	isoDateTimeZone = "2006-01-02T15:04:05-07:00"
)

// FormatDate converts an HL7 YYYYMMDD[HHMMSS] value to a FHIR date (YYYY-MM-DD).
// It returns "" when the value cannot be parsed.
func FormatDate(hl7 string) string {
	t, err := parseHL7Timestamp(hl7)
	if err != nil {
		return ""
	}
	return t.Format(isoDate)
}

// FormatDateTimeWithTimezone converts an HL7 YYYYMMDD[HHMMSS] value to an
// ISO-8601 date-time carrying the +02:00 offset. The wall-clock value is kept
// as is; a date-only value gets a zero time.
func FormatDateTimeWithTimezone(hl7 string) string {
	t, err := parseHL7Timestamp(hl7)
	if err != nil {
		return ""
	}
	return FormatWallClock(t)
}

// FormatWallClock stamps the +02:00 offset on t's wall-clock reading without
// shifting it.
func FormatWallClock(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, FrenchOffset).Format(isoDateTimeZone)
}

// FormatInstant renders t in the +02:00 offset.
func FormatInstant(t time.Time) string {
	return t.In(FrenchOffset).Format(isoDateTimeZone)
}
