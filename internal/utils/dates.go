package utils

import (
	"fmt"
	"time"
)

// The bot speaks DD/MM/YYYY to users while the store keeps ISO dates.
// All conversion between the two happens here so nothing else ever
// compares one format against the other.
const (
	DisplayDateLayout = "02/01/2006"
	ISODateLayout     = "2006-01-02"
	SlotTimeLayout    = "3:04 PM"
)

// ParseDisplayDate parses a DD/MM/YYYY date.
func ParseDisplayDate(displayDate string) (time.Time, error) {
	d, err := time.Parse(DisplayDateLayout, displayDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid display date %q: %w", displayDate, err)
	}
	return d, nil
}

// ParseISODate parses a YYYY-MM-DD date.
func ParseISODate(isoDate string) (time.Time, error) {
	d, err := time.Parse(ISODateLayout, isoDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q: %w", isoDate, err)
	}
	return d, nil
}

// ToISODate converts a DD/MM/YYYY date to YYYY-MM-DD.
func ToISODate(displayDate string) (string, error) {
	d, err := ParseDisplayDate(displayDate)
	if err != nil {
		return "", err
	}
	return d.Format(ISODateLayout), nil
}

// ToDisplayDate converts a YYYY-MM-DD date to DD/MM/YYYY.
func ToDisplayDate(isoDate string) (string, error) {
	d, err := ParseISODate(isoDate)
	if err != nil {
		return "", err
	}
	return d.Format(DisplayDateLayout), nil
}

// DayOfWeekLabel returns the weekday name ("Sunday", "Monday", ...) for a
// display date, or "" if the date does not parse.
func DayOfWeekLabel(displayDate string) string {
	d, err := ParseDisplayDate(displayDate)
	if err != nil {
		return ""
	}
	return d.Format("Monday")
}

// FormatDisplayDateWithDay renders "DD/MM/YYYY (Weekday)" from a display
// date. Unparseable input is returned unchanged.
func FormatDisplayDateWithDay(displayDate string) string {
	d, err := ParseDisplayDate(displayDate)
	if err != nil {
		return displayDate
	}
	return fmt.Sprintf("%s (%s)", d.Format(DisplayDateLayout), d.Format("Monday"))
}

// FormatISODateWithDay renders "DD/MM/YYYY (Weekday)" from a stored ISO
// date. Unparseable input is returned unchanged.
func FormatISODateWithDay(isoDate string) string {
	d, err := ParseISODate(isoDate)
	if err != nil {
		return isoDate
	}
	return fmt.Sprintf("%s (%s)", d.Format(DisplayDateLayout), d.Format("Monday"))
}

// Next7Days returns the seven display dates following now (tomorrow first).
func Next7Days(now time.Time) []string {
	days := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		days = append(days, now.AddDate(0, 0, i).Format(DisplayDateLayout))
	}
	return days
}

// SlotClockTime parses a slot label like "10:20 AM" into hour and minute.
func SlotClockTime(label string) (hour, minute int, err error) {
	t, err := time.Parse(SlotTimeLayout, label)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid slot label %q: %w", label, err)
	}
	return t.Hour(), t.Minute(), nil
}
