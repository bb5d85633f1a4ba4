package utils

import (
	"time"
	_ "time/tzdata"
)

// SheetTimestampLayout matches the en-US locale string written to the sheet,
// e.g. "3/14/2026, 9:05:07 AM".
const SheetTimestampLayout = "1/2/2006, 3:04:05 PM"

// LongTimestampLayout is used in admin emails.
const LongTimestampLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// LoadLocation returns the named zone, or UTC when it cannot be loaded.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatIn renders t in loc with layout.
func FormatIn(t time.Time, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}
